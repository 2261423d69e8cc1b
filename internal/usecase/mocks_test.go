package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-pix-subscription/internal/domain"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/adapter"
	"telegram-pix-subscription/internal/domain/ports/repository"
)

// memTxManager satisfies TransactionManager without a database: the callback
// runs with a nil tx handle and conflict mapping is the caller's concern.
type memTxManager struct {
	// wrapErr, when set, replaces the error returned by fn (simulates the
	// commit-time conflict mapping done by the real manager).
	wrapErr func(error) error
}

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	err := fn(ctx, repository.NoTX)
	if err != nil && m.wrapErr != nil {
		return m.wrapErr(err)
	}
	return err
}

// memUserRepo is a small in-memory implementation used by unit tests.
type memUserRepo struct {
	mu       sync.RWMutex
	store    map[int64]*model.User // map by TelegramID
	saveErr  error                 // used by tests to simulate save failures
	saveHook func(*model.User) error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[int64]*model.User)}
}

func (m *memUserRepo) Save(ctx context.Context, _ repository.Tx, user *model.User) error {
	if m.saveHook != nil {
		if err := m.saveHook(user); err != nil {
			return err
		}
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.store[user.TelegramID] = &cp
	return nil
}

func (m *memUserRepo) FindByTelegramID(ctx context.Context, _ repository.Tx, telegramID int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[telegramID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) CountUsers(ctx context.Context, _ repository.Tx) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.store)), nil
}

// memPaymentRepo keeps payments by id and enforces the one-pending-per-user
// rule the way the partial unique index does.
type memPaymentRepo struct {
	mu       sync.RWMutex
	store    map[string]*model.Payment
	saveErr  error
	saveHook func(*model.Payment) error // runs before the insert when set

	// consumed marks payment ids that already have a subscription; used by
	// ListConfirmedUnprocessed. The sub repo updates it via the test.
	consumed map[string]bool
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{store: make(map[string]*model.Payment), consumed: make(map[string]bool)}
}

func (m *memPaymentRepo) Save(ctx context.Context, _ repository.Tx, p *model.Payment) error {
	if m.saveHook != nil {
		if err := m.saveHook(p); err != nil {
			return err
		}
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Status == model.PaymentStatusPending {
		for _, q := range m.store {
			if q.UserID == p.UserID && q.Status == model.PaymentStatusPending && q.ID != p.ID {
				return domain.ErrConflict
			}
		}
	}
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPaymentRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) FindByGatewayID(ctx context.Context, _ repository.Tx, gatewayID string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.GatewayPaymentID == gatewayID && gatewayID != "" {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) FindPendingByUser(ctx context.Context, _ repository.Tx, userID string, now time.Time) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *model.Payment
	for _, p := range m.store {
		if p.UserID == userID && p.Payable(now) {
			if best == nil || p.CreatedAt.After(best.CreatedAt) {
				best = p
			}
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *memPaymentRepo) FindLastByUser(ctx context.Context, _ repository.Tx, userID string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *model.Payment
	for _, p := range m.store {
		if p.UserID == userID {
			if best == nil || p.CreatedAt.After(best.CreatedAt) {
				best = p
			}
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *memPaymentRepo) UpdateStatus(ctx context.Context, _ repository.Tx, id string, status model.PaymentStatus, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	if status == model.PaymentStatusConfirmed && p.ConfirmedAt == nil {
		t := now
		p.ConfirmedAt = &t
	}
	return nil
}

func (m *memPaymentRepo) ExpirePendingByUser(ctx context.Context, _ repository.Tx, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.UserID == userID && p.Status == model.PaymentStatusPending {
			p.Status = model.PaymentStatusExpired
		}
	}
	return nil
}

func (m *memPaymentRepo) IncrementReminders(ctx context.Context, _ repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.RemindersSent++
	return nil
}

func (m *memPaymentRepo) ListExpiredPending(ctx context.Context, _ repository.Tx, now time.Time) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.Status == model.PaymentStatusPending && !p.ExpiresAt.After(now) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (m *memPaymentRepo) ListPendingForReminder(ctx context.Context, _ repository.Tx, now time.Time, maxReminders int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.Payable(now) && p.RemindersSent < maxReminders {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (m *memPaymentRepo) ListConfirmedUnprocessed(ctx context.Context, _ repository.Tx) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.Status == model.PaymentStatusConfirmed && !m.consumed[p.ID] {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (m *memPaymentRepo) SumConfirmedByPeriod(ctx context.Context, _ repository.Tx, period string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, p := range m.store {
		if p.Status == model.PaymentStatusConfirmed {
			sum += p.AmountCents
		}
	}
	return sum, nil
}

func sortByCreated(ps []*model.Payment) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].CreatedAt.Before(ps[j].CreatedAt) })
}

// memSubRepo stores subscriptions keyed by id with the payment_id uniqueness
// the real table enforces.
type memSubRepo struct {
	mu       sync.RWMutex
	store    map[string]*model.Subscription
	payments *memPaymentRepo // optional, to flag consumed payments
	saveErr  error
	saveHook func(*model.Subscription) error // runs before the insert when set
	locked   []string                        // user ids LockUser was called for, in order
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{store: make(map[string]*model.Subscription)}
}

func (m *memSubRepo) Save(ctx context.Context, _ repository.Tx, s *model.Subscription) error {
	if m.saveHook != nil {
		if err := m.saveHook(s); err != nil {
			return err
		}
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.store {
		if q.PaymentID == s.PaymentID && q.ID != s.ID {
			return domain.ErrConflict
		}
	}
	cp := *s
	m.store[s.ID] = &cp
	if m.payments != nil {
		m.payments.mu.Lock()
		m.payments.consumed[s.PaymentID] = true
		m.payments.mu.Unlock()
	}
	return nil
}

func (m *memSubRepo) FindByPaymentID(ctx context.Context, _ repository.Tx, paymentID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.PaymentID == paymentID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSubRepo) FindActiveByUser(ctx context.Context, _ repository.Tx, userID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *model.Subscription
	for _, s := range m.store {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			if best == nil || s.CreatedAt.After(best.CreatedAt) {
				best = s
			}
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *memSubRepo) ListLapsedActive(ctx context.Context, _ repository.Tx, now time.Time) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.Status == model.SubscriptionStatusActive && !s.EndsAt.After(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSubRepo) MarkExpired(ctx context.Context, _ repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok || s.Status != model.SubscriptionStatusActive {
		return domain.ErrNotFound
	}
	s.Status = model.SubscriptionStatusExpired
	return nil
}

func (m *memSubRepo) LockUser(ctx context.Context, _ repository.Tx, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = append(m.locked, userID)
	return nil
}

func (m *memSubRepo) CountActiveByPlan(ctx context.Context, _ repository.Tx) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64)
	for _, s := range m.store {
		if s.Status == model.SubscriptionStatusActive {
			out[s.PlanID]++
		}
	}
	return out, nil
}

// fakeGateway is a scriptable PaymentGateway.
type fakeGateway struct {
	mu         sync.Mutex
	createErr  error
	status     string
	statusErr  error
	created    int
	lastExpiry time.Time
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) CreateCharge(ctx context.Context, amountCents int64, description, payerRef, externalRef string, expiresAt time.Time) (*adapter.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created++
	g.lastExpiry = expiresAt
	return &adapter.Charge{
		GatewayPaymentID: "gw-" + externalRef,
		QRCode:           "qr-" + externalRef,
	}, nil
}

func (g *fakeGateway) GetStatus(ctx context.Context, gatewayPaymentID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.statusErr != nil {
		return "", g.statusErr
	}
	if g.status == "" {
		return "pending", nil
	}
	return g.status, nil
}

func (g *fakeGateway) SearchByReference(ctx context.Context, externalRef string) (string, error) {
	return "gw-" + externalRef, nil
}

// fakeBot records sent messages.
type fakeBot struct {
	mu      sync.Mutex
	sent    []string
	chats   []int64
	sendErr error
}

func (b *fakeBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return b.sendErr
	}
	b.chats = append(b.chats, chatID)
	b.sent = append(b.sent, text)
	return nil
}

func (b *fakeBot) sentContaining(sub string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range b.sent {
		if strings.Contains(s, sub) {
			n++
		}
	}
	return n
}

func testCatalog() *model.Catalog {
	weekly, _ := model.NewPlan("semanal", "Plano Semanal", 199, 7)
	monthly, _ := model.NewPlan("mensal", "Plano Mensal", 199, 30)
	c, _ := model.NewCatalog([]*model.Plan{weekly, monthly})
	return c
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
