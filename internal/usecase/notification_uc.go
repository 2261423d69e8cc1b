package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/adapter"
	"telegram-pix-subscription/internal/domain/ports/repository"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

type NotificationUseCase interface {
	// SendPendingReminders messages users whose charge is still payable and
	// under the reminder cap, incrementing reminders_sent per attempt.
	// Returns the number of reminders sent; one failing user does not stop
	// the batch.
	SendPendingReminders(ctx context.Context, maxReminders int) (int, error)

	// NotifyPaymentApproved tells the payer their access is being released.
	NotifyPaymentApproved(ctx context.Context, payment *model.Payment) error
}

type notificationUC struct {
	payments repository.PaymentRepository
	users    repository.UserRepository
	bot      adapter.MessengerBot
	log      *zerolog.Logger
}

func NewNotificationUseCase(
	payments repository.PaymentRepository,
	users repository.UserRepository,
	bot adapter.MessengerBot,
	logger *zerolog.Logger,
) *notificationUC {
	l := logger.With().Str("component", "NotificationUC").Logger()
	return &notificationUC{payments: payments, users: users, bot: bot, log: &l}
}

func (n *notificationUC) SendPendingReminders(ctx context.Context, maxReminders int) (int, error) {
	items, err := n.payments.ListPendingForReminder(ctx, repository.NoTX, time.Now().UTC(), maxReminders)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, p := range items {
		user, err := n.users.FindByID(ctx, repository.NoTX, p.UserID)
		if err != nil {
			n.log.Error().Err(err).Str("payment_id", p.ID).Msg("reminder: user lookup failed")
			continue
		}
		text := fmt.Sprintf("⏳ Seu Pix de %s ainda está pendente.\nEle expira em breve — conclua o pagamento para liberar o acesso.", formatAmount(p.AmountCents))
		if err := n.bot.SendMessage(ctx, user.TelegramID, text); err != nil {
			n.log.Error().Err(err).Str("payment_id", p.ID).Msg("reminder: send failed")
			continue
		}
		if err := n.payments.IncrementReminders(ctx, repository.NoTX, p.ID); err != nil {
			n.log.Error().Err(err).Str("payment_id", p.ID).Msg("reminder: counter update failed")
			continue
		}
		sent++
	}
	return sent, nil
}

func (n *notificationUC) NotifyPaymentApproved(ctx context.Context, payment *model.Payment) error {
	user, err := n.users.FindByID(ctx, repository.NoTX, payment.UserID)
	if err != nil {
		return err
	}
	return n.bot.SendMessage(ctx, user.TelegramID,
		"✅ Pagamento confirmado!\n\nSeu acesso será liberado automaticamente.")
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("R$ %d,%02d", cents/100, cents%100)
}
