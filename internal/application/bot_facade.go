package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/usecase"
)

// BotFacade composes usecases into high-level bot replies. Methods return
// plain strings so the Telegram adapter just forwards them to the chat.
type BotFacade struct {
	UserUC  usecase.UserUseCase
	SubUC   usecase.SubscriptionUseCase
	PayUC   usecase.PaymentUseCase
	StatsUC usecase.StatsUseCase
	Catalog *model.Catalog
}

func NewBotFacade(
	userUC usecase.UserUseCase,
	subUC usecase.SubscriptionUseCase,
	payUC usecase.PaymentUseCase,
	statsUC usecase.StatsUseCase,
	catalog *model.Catalog,
) *BotFacade {
	return &BotFacade{
		UserUC:  userUC,
		SubUC:   subUC,
		PayUC:   payUC,
		StatsUC: statsUC,
		Catalog: catalog,
	}
}

// HandleStart registers or fetches the user and returns the welcome text.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64, displayName string) (string, error) {
	if _, err := b.UserUC.RegisterOrFetch(ctx, tgID, displayName); err != nil {
		return "", fmt.Errorf("register/fetch user: %w", err)
	}
	return fmt.Sprintf("Olá, %s! 👋\n\nAqui você assina o acesso via Pix.\nUse /planos para ver os planos disponíveis.", displayName), nil
}

// HandlePlans returns the formatted plan list.
func (b *BotFacade) HandlePlans(ctx context.Context) (string, error) {
	plans := b.Catalog.List()
	if len(plans) == 0 {
		return "Nenhum plano disponível no momento.", nil
	}
	sb := strings.Builder{}
	sb.WriteString("Planos disponíveis:\n\n")
	for _, p := range plans {
		sb.WriteString(fmt.Sprintf("• %s — %s (%d dias)\n", p.Title, formatAmount(p.PriceCents), p.DurationDays))
	}
	sb.WriteString("\nToque em um plano para gerar o Pix.")
	return sb.String(), nil
}

// HandleBuy creates (or reuses) the Pix charge for the plan and returns the
// copy-and-paste payload the user should pay.
func (b *BotFacade) HandleBuy(ctx context.Context, tgID int64, displayName, planID string) (string, error) {
	user, err := b.UserUC.RegisterOrFetch(ctx, tgID, displayName)
	if err != nil {
		return "", fmt.Errorf("register/fetch user: %w", err)
	}
	plan, err := b.Catalog.Get(planID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownPlan) {
			return "Plano desconhecido. Use /planos para ver as opções.", nil
		}
		return "", err
	}

	p, err := b.PayUC.CreatePixCharge(ctx, user.ID, plan.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			return "O provedor de pagamento está instável agora. Tente novamente em instantes.", nil
		}
		return "", fmt.Errorf("create charge: %w", err)
	}

	return fmt.Sprintf(
		"🧾 %s — %s\n\nPague com o Pix copia e cola abaixo:\n\n`%s`\n\nO código expira em %s.\nDepois de pagar, use /status para conferir.",
		plan.Title, formatAmount(p.AmountCents), p.QRCode, p.ExpiresAt.Format("02/01 15:04"),
	), nil
}

// HandleStatus reports the user's subscription and pending charge state.
func (b *BotFacade) HandleStatus(ctx context.Context, tgID int64) (string, error) {
	user, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "Você ainda não tem cadastro. Use /start para começar.", nil
		}
		return "", err
	}

	sub, err := b.SubUC.GetActive(ctx, user.ID)
	if err == nil {
		plan, perr := b.Catalog.Get(sub.PlanID)
		title := sub.PlanID
		if perr == nil {
			title = plan.Title
		}
		return fmt.Sprintf("✅ Assinatura ativa: %s\nVálida até %s.", title, sub.EndsAt.Format("02/01/2006 15:04")), nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	// No active subscription; maybe a charge is waiting for payment.
	status, err := b.PayUC.CheckPendingStatus(ctx, user.ID)
	switch {
	case err == nil:
		switch status {
		case "approved":
			return "✅ Pagamento aprovado! Seu acesso está sendo liberado.", nil
		case "pending", "in_process":
			return "⏳ Seu Pix ainda não foi pago. Conclua o pagamento para liberar o acesso.", nil
		default:
			return "❌ O pagamento não foi concluído. Use /planos para gerar um novo Pix.", nil
		}
	case errors.Is(err, domain.ErrNotFound):
		return "Você não tem assinatura ativa nem pagamento pendente.\nUse /planos para assinar.", nil
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "Não consegui consultar o pagamento agora. Tente de novo em instantes.", nil
	default:
		return "", err
	}
}

// HandleStats formats admin statistics for the /stats command.
func (b *BotFacade) HandleStats(ctx context.Context) (string, error) {
	users, activeByPlan, err := b.StatsUC.Totals(ctx)
	if err != nil {
		return "", fmt.Errorf("stats totals: %w", err)
	}
	week, month, year, err := b.StatsUC.Revenue(ctx)
	if err != nil {
		return "", fmt.Errorf("stats revenue: %w", err)
	}

	sb := strings.Builder{}
	sb.WriteString("📊 Estatísticas\n\n")
	sb.WriteString(fmt.Sprintf("Usuários: %d\n", users))
	sb.WriteString("Assinaturas ativas:\n")
	if len(activeByPlan) == 0 {
		sb.WriteString("  (nenhuma)\n")
	}
	for _, p := range b.Catalog.List() {
		if n, ok := activeByPlan[p.ID]; ok {
			sb.WriteString(fmt.Sprintf("  %s: %d\n", p.Title, n))
		}
	}
	sb.WriteString(fmt.Sprintf("\nReceita confirmada:\n  Semana: %s\n  Mês: %s\n  Ano: %s",
		formatAmount(week), formatAmount(month), formatAmount(year)))
	return sb.String(), nil
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("R$ %d,%02d", cents/100, cents%100)
}
