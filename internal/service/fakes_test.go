package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/offer-escrow/internal/models"
	"github.com/ignatzorin/offer-escrow/internal/repository"
)

// fakeOffers хранит копии предложений и проверяет версию как репозиторий.
type fakeOffers struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.Offer
}

func newFakeOffers() *fakeOffers {
	return &fakeOffers{items: make(map[uuid.UUID]models.Offer)}
}

func cloneOffer(o models.Offer) models.Offer {
	o.History = append(models.NegotiationHistory(nil), o.History...)
	return o
}

func (f *fakeOffers) Create(ctx context.Context, offer *models.Offer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.PostingID == offer.PostingID && existing.ProviderID == offer.ProviderID {
			return repository.ErrOfferExists
		}
	}
	offer.Version = 1
	offer.CreatedAt = time.Now()
	offer.UpdatedAt = offer.CreatedAt
	f.items[offer.ID] = cloneOffer(*offer)
	return nil
}

func (f *fakeOffers) GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.items[id]
	if !ok {
		return nil, repository.ErrOfferNotFound
	}
	offer := cloneOffer(stored)
	return &offer, nil
}

func (f *fakeOffers) ListByPosting(ctx context.Context, postingID uuid.UUID) ([]models.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var offers []models.Offer
	for _, stored := range f.items {
		if stored.PostingID == postingID {
			offers = append(offers, cloneOffer(stored))
		}
	}
	return offers, nil
}

func (f *fakeOffers) Update(ctx context.Context, offer *models.Offer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.items[offer.ID]
	if !ok {
		return repository.ErrOfferNotFound
	}
	if stored.Version != offer.Version {
		return repository.ErrStaleOffer
	}
	offer.Version++
	f.items[offer.ID] = cloneOffer(*offer)
	return nil
}

func (f *fakeOffers) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrOfferNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeOffers) get(t *testing.T, id uuid.UUID) *models.Offer {
	t.Helper()
	offer, err := f.GetByID(context.Background(), id)
	require.NoError(t, err)
	return offer
}

// force переводит сохранённое предложение в нужное состояние в обход сервисов.
func (f *fakeOffers) force(t *testing.T, id uuid.UUID, status models.OfferStatus, payment models.PaymentStatus) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.items[id]
	require.True(t, ok)
	stored.Status = status
	stored.PaymentStatus = payment
	f.items[id] = stored
}

func (f *fakeOffers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// fakeEscrows повторяет частичный уникальный индекс и условие по статусу.
type fakeEscrows struct {
	mu      sync.Mutex
	records []models.EscrowRecord
}

func (f *fakeEscrows) Create(ctx context.Context, record *models.EscrowRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.records {
		if existing.OfferID == record.OfferID && existing.Status.IsLive() {
			return repository.ErrEscrowExists
		}
	}
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeEscrows) GetLiveByOffer(ctx context.Context, offerID uuid.UUID) (*models.EscrowRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.records {
		if existing.OfferID == offerID && existing.Status.IsLive() {
			record := existing
			return &record, nil
		}
	}
	return nil, repository.ErrEscrowNotFound
}

func (f *fakeEscrows) ListByOffer(ctx context.Context, offerID uuid.UUID) ([]models.EscrowRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []models.EscrowRecord
	for _, existing := range f.records {
		if existing.OfferID == offerID {
			records = append(records, existing)
		}
	}
	return records, nil
}

func (f *fakeEscrows) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.EscrowStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !from.CanTransitionTo(to) {
		return repository.ErrEscrowTransition
	}
	for i := range f.records {
		if f.records[i].ID != id {
			continue
		}
		if f.records[i].Status != from {
			return repository.ErrEscrowTransition
		}
		f.records[i].Status = to
		f.records[i].UpdatedAt = at
		if to == models.EscrowStatusCaptured {
			f.records[i].CapturedAt = &at
		}
		return nil
	}
	return repository.ErrEscrowTransition
}

func (f *fakeEscrows) list(t *testing.T, offerID uuid.UUID) []models.EscrowRecord {
	t.Helper()
	records, err := f.ListByOffer(context.Background(), offerID)
	require.NoError(t, err)
	return records
}

type fakePostings struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.Posting
}

func (f *fakePostings) GetPosting(ctx context.Context, id uuid.UUID) (*models.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	posting, ok := f.items[id]
	if !ok {
		return nil, repository.ErrPostingNotFound
	}
	return &posting, nil
}

func (f *fakePostings) DeletePosting(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrPostingNotFound
	}
	delete(f.items, id)
	return nil
}

// fakeLedger - заработок и заказы исполнителей в памяти.
type fakeLedger struct {
	mu       sync.Mutex
	earnings map[uuid.UUID]decimal.Decimal
	orders   map[uuid.UUID]models.ProviderOrder
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		earnings: make(map[uuid.UUID]decimal.Decimal),
		orders:   make(map[uuid.UUID]models.ProviderOrder),
	}
}

func (f *fakeLedger) ProviderExists(ctx context.Context, providerID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.earnings[providerID]
	return ok, nil
}

func (f *fakeLedger) UpsertOrder(ctx context.Context, order models.ProviderOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.OfferID] = order
	return nil
}

func (f *fakeLedger) RemoveOrder(ctx context.Context, offerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.orders, offerID)
	return nil
}

func (f *fakeLedger) Credit(ctx context.Context, providerID uuid.UUID, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.earnings[providerID] = f.earnings[providerID].Add(amount)
	return nil
}

func (f *fakeLedger) Debit(ctx context.Context, providerID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.earnings[providerID]
	if !ok {
		return decimal.Zero, repository.ErrProviderNotFound
	}
	debited := decimal.Min(current, amount)
	f.earnings[providerID] = current.Sub(debited)
	return debited, nil
}

func (f *fakeLedger) earningsOf(providerID uuid.UUID) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.earnings[providerID]
}

func (f *fakeLedger) order(offerID uuid.UUID) (models.ProviderOrder, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[offerID]
	return order, ok
}

type sentMessage struct {
	recipient uuid.UUID
	msg       models.NotificationMessage
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeNotifier) Enqueue(recipientID uuid.UUID, msg models.NotificationMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{recipient: recipientID, msg: msg})
}

// events возвращает события, отправленные получателю, в порядке отправки.
func (f *fakeNotifier) events(recipientID uuid.UUID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []string
	for _, sent := range f.sent {
		if sent.recipient == recipientID {
			events = append(events, sent.msg.Event)
		}
	}
	return events
}

func (f *fakeNotifier) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateHold(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*models.GatewayHold, error) {
	args := m.Called(ctx, amount, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GatewayHold), args.Error(1)
}

func (m *mockGateway) Retrieve(ctx context.Context, id string) (*models.GatewayHold, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GatewayHold), args.Error(1)
}

func (m *mockGateway) Capture(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockGateway) Cancel(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockGateway) Refund(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// amountOf сравнивает суммы по значению, а не по представлению.
func amountOf(v int64) interface{} {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(v)) })
}

// testEnv собирает сервисы поверх фейков с общими блокировками и часами.
type testEnv struct {
	ctx  context.Context
	now  time.Time
	mu   sync.Mutex
	clck func() time.Time

	offers   *fakeOffers
	escrows  *fakeEscrows
	postings *fakePostings
	ledger   *fakeLedger
	notifier *fakeNotifier
	gateway  *mockGateway

	offerSvc    *OfferService
	escrowSvc   *EscrowService
	deliverySvc *DeliveryService
	cleanupSvc  *CleanupService

	buyerID    uuid.UUID
	providerID uuid.UUID
	posting    models.Posting
}

func newTestEnv(t *testing.T, withGateway bool) *testEnv {
	t.Helper()

	env := &testEnv{
		ctx:        context.Background(),
		now:        time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		offers:     newFakeOffers(),
		escrows:    &fakeEscrows{},
		postings:   &fakePostings{items: make(map[uuid.UUID]models.Posting)},
		ledger:     newFakeLedger(),
		notifier:   &fakeNotifier{},
		gateway:    new(mockGateway),
		buyerID:    uuid.New(),
		providerID: uuid.New(),
	}
	env.clck = func() time.Time {
		env.mu.Lock()
		defer env.mu.Unlock()
		return env.now
	}

	deadline := env.now.Add(48 * time.Hour)
	env.posting = models.Posting{
		ID:       uuid.New(),
		OwnerID:  env.buyerID,
		Title:    "Лендинг для кофейни",
		Amount:   decimal.NewFromInt(5000),
		Deadline: &deadline,
	}
	env.postings.items[env.posting.ID] = env.posting
	env.ledger.earnings[env.providerID] = decimal.Zero

	var gateway PaymentGateway
	if withGateway {
		gateway = env.gateway
	}

	locks := NewOfferLocks()
	env.offerSvc = NewOfferService(env.offers, env.postings, env.ledger, nil, env.notifier, locks)
	env.escrowSvc = NewEscrowService(env.offers, env.escrows, env.ledger, gateway, env.notifier, locks, "usd")
	env.offerSvc.escrow = env.escrowSvc
	env.deliverySvc = NewDeliveryService(env.offers, env.postings, env.ledger, env.escrowSvc, env.notifier, locks)
	env.cleanupSvc = NewCleanupService(env.offers, env.postings, env.ledger, env.escrowSvc, env.notifier, locks)

	env.offerSvc.now = env.clck
	env.escrowSvc.now = env.clck
	env.deliverySvc.now = env.clck

	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

// submit создаёт предложение исполнителя на указанную сумму.
func (e *testEnv) submit(t *testing.T, amount int64) *models.Offer {
	t.Helper()
	offer, err := e.offerSvc.SubmitOffer(e.ctx, e.posting.ID, e.providerID, decimal.NewFromInt(amount), "Сделаю за неделю")
	require.NoError(t, err)
	return offer
}

// submitOther создаёт предложение второго исполнителя по той же публикации.
func (e *testEnv) submitOther(t *testing.T) *models.Offer {
	t.Helper()
	providerID := uuid.New()
	e.ledger.mu.Lock()
	e.ledger.earnings[providerID] = decimal.Zero
	e.ledger.mu.Unlock()

	offer, err := e.offerSvc.SubmitOffer(e.ctx, e.posting.ID, providerID, decimal.NewFromInt(4800), "")
	require.NoError(t, err)
	return offer
}

// heldOffline возвращает предложение на 5000 с офлайн-удержанием.
func (e *testEnv) heldOffline(t *testing.T) *models.Offer {
	t.Helper()
	offer := e.submit(t, 5000)
	result, err := e.escrowSvc.CreateHold(e.ctx, offer.ID, e.buyerID, decimal.NewFromInt(5000), models.EscrowRailOffline)
	require.NoError(t, err)
	require.True(t, result.Completed())
	return result.Offer
}

// heldViaGateway проводит удержание через шлюз до статуса held.
func (e *testEnv) heldViaGateway(t *testing.T, reference string) *models.Offer {
	t.Helper()
	offer := e.submit(t, 5000)

	e.gateway.On("CreateHold", mock.Anything, amountOf(5000), "usd", mock.Anything).
		Return(&models.GatewayHold{ID: reference, ClientSecret: reference + "_secret", Status: models.GatewayStatusRequiresPaymentMethod}, nil).Once()
	e.gateway.On("Retrieve", mock.Anything, reference).
		Return(&models.GatewayHold{ID: reference, Status: models.GatewayStatusRequiresCapture}, nil).Once()

	_, err := e.escrowSvc.CreateHold(e.ctx, offer.ID, e.buyerID, decimal.NewFromInt(5000), models.EscrowRailGateway)
	require.NoError(t, err)
	result, err := e.escrowSvc.FinalizeHold(e.ctx, offer.ID, e.buyerID, reference)
	require.NoError(t, err)
	require.True(t, result.Completed())
	return result.Offer
}

func (e *testEnv) deliver(t *testing.T, offerID uuid.UUID) *models.Offer {
	t.Helper()
	offer, err := e.deliverySvc.SubmitDelivery(e.ctx, offerID, e.providerID, "https://example.com/result.zip")
	require.NoError(t, err)
	return offer
}
