package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
	"github.com/vladislavdragonenkov/photokiosk/internal/service/compose"
	"github.com/vladislavdragonenkov/photokiosk/internal/service/payment"
	"github.com/vladislavdragonenkov/photokiosk/internal/storage/files"
	"github.com/vladislavdragonenkov/photokiosk/internal/storage/memory"
)

// fixture собирает движок на in-memory хранилищах с синхронной генерацией.
type fixture struct {
	engine   *Engine
	orders   domain.OrderRepository
	photos   domain.PhotoRepository
	payments domain.PaymentRepository
	outbox   domain.OutboxRepository
	composer *compose.MockGateway
	gateway  *payment.MockGateway
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	store, err := files.NewLocalStore(t.TempDir(), "http://localhost/media")
	if err != nil {
		t.Fatalf("create file store: %v", err)
	}

	f := &fixture{
		orders:   memory.NewOrderRepository(),
		photos:   memory.NewPhotoRepository(),
		payments: memory.NewPaymentRepository(),
		outbox:   memory.NewOutboxRepository(),
		composer: compose.NewMockGateway(),
		gateway:  payment.NewMockGateway(),
	}

	base := []Option{
		WithLogger(log.New().WithField("test", t.Name())),
		WithComposeSync(true),
		WithComposeRetry(3, time.Millisecond),
	}
	f.engine = NewEngine(
		memory.NewSessionRepository(),
		f.photos,
		memory.NewCollageRepository(),
		f.orders,
		f.payments,
		memory.NewDeliveryRepository(),
		f.outbox,
		memory.NewTimelineRepository(),
		store,
		f.composer,
		map[string]domain.PaymentGateway{payment.ProviderMock: f.gateway},
		payment.ProviderMock,
		append(base, opts...)...,
	)
	return f
}

// seedSession открывает сессию, грузит оригинал и кладёт коллаж в каталог.
func (f *fixture) seedSession(t *testing.T) (domain.Session, domain.Collage) {
	t.Helper()
	ctx := context.Background()

	session, err := f.engine.StartSession(ctx, "kiosk-1")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := f.engine.UploadPhoto(ctx, session.ID, []byte("jpeg-bytes")); err != nil {
		t.Fatalf("upload photo: %v", err)
	}

	collage := domain.Collage{
		ID:         "collage-1",
		Title:      "Космонавт",
		Prompt:     "космонавт на луне",
		PriceMinor: 50000,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := f.engine.collages.Create(collage); err != nil {
		t.Fatalf("create collage: %v", err)
	}
	return session, collage
}

func collectOutbox(t *testing.T, outbox domain.OutboxRepository) []domain.OutboxMessage {
	t.Helper()

	type allPending interface {
		AllPending() []domain.OutboxMessage
	}
	repo, ok := outbox.(allPending)
	if !ok {
		t.Fatalf("outbox repository does not support AllPending")
	}
	return repo.AllPending()
}

func hasEvent(events []domain.OutboxMessage, eventType string) bool {
	for _, e := range events {
		if e.EventType == eventType {
			return true
		}
	}
	return false
}

func TestCreateOrder_SuccessFlow(t *testing.T) {
	f := newFixture(t)
	session, collage := f.seedSession(t)

	order, err := f.engine.CreateOrder(context.Background(), session.ID, collage.ID)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if order.Status != domain.OrderStatusReadyBlurred {
		t.Fatalf("expected status ready_blurred, got %s", order.Status)
	}
	if !domain.OrderCodePattern.MatchString(order.Code) {
		t.Fatalf("order code %q does not match NNN-NNN", order.Code)
	}
	if order.PriceMinor != collage.PriceMinor {
		t.Fatalf("expected price %d, got %d", collage.PriceMinor, order.PriceMinor)
	}

	// Ровно два результата: финал и тизер.
	final, err := f.photos.FindResult(session.ID)
	if err != nil {
		t.Fatalf("find result: %v", err)
	}
	if final.BlurLevel != 0 {
		t.Fatalf("expected unlocked result, got blur %d", final.BlurLevel)
	}
	teaser, err := f.photos.FindTeaser(session.ID)
	if err != nil {
		t.Fatalf("find teaser: %v", err)
	}
	if teaser.BlurLevel != domain.TeaserBlurLevel {
		t.Fatalf("expected teaser blur %d, got %d", domain.TeaserBlurLevel, teaser.BlurLevel)
	}

	events := collectOutbox(t, f.outbox)
	if !hasEvent(events, "OrderCreated") {
		t.Fatal("expected OrderCreated event")
	}
	if !hasEvent(events, "OrderStatusChanged") {
		t.Fatal("expected OrderStatusChanged event")
	}
}

func TestCreateOrder_RequiresOriginalPhoto(t *testing.T) {
	f := newFixture(t)

	session, err := f.engine.StartSession(context.Background(), "kiosk-1")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	collage := domain.Collage{ID: "collage-1", Prompt: "p", PriceMinor: 100, Active: true}
	if err := f.engine.collages.Create(collage); err != nil {
		t.Fatalf("create collage: %v", err)
	}

	if _, err := f.engine.CreateOrder(context.Background(), session.ID, collage.ID); !errors.Is(err, domain.ErrPhotoNotFound) {
		t.Fatalf("expected ErrPhotoNotFound, got %v", err)
	}
}

func TestCreateOrder_InactiveCollage(t *testing.T) {
	f := newFixture(t)
	session, _ := f.seedSession(t)

	inactive := domain.Collage{ID: "collage-2", Prompt: "p", PriceMinor: 100, Active: false}
	if err := f.engine.collages.Create(inactive); err != nil {
		t.Fatalf("create collage: %v", err)
	}

	if _, err := f.engine.CreateOrder(context.Background(), session.ID, inactive.ID); !errors.Is(err, domain.ErrCollageInactive) {
		t.Fatalf("expected ErrCollageInactive, got %v", err)
	}
}

func TestCreateOrder_FinishedSession(t *testing.T) {
	f := newFixture(t)
	session, collage := f.seedSession(t)

	if err := f.engine.FinishSession(context.Background(), session.ID); err != nil {
		t.Fatalf("finish session: %v", err)
	}
	if _, err := f.engine.CreateOrder(context.Background(), session.ID, collage.ID); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected ErrSessionFinished, got %v", err)
	}
}

func TestComposeJob_TemporaryFailuresRetried(t *testing.T) {
	f := newFixture(t)
	session, collage := f.seedSession(t)
	f.composer.FailuresBeforeSuccess = 2

	order, err := f.engine.CreateOrder(context.Background(), session.ID, collage.ID)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != domain.OrderStatusReadyBlurred {
		t.Fatalf("expected ready_blurred after retries, got %s", order.Status)
	}
	if f.composer.Calls != 3 {
		t.Fatalf("expected 3 compose calls, got %d", f.composer.Calls)
	}
}

func TestComposeJob_RejectedFailsOrder(t *testing.T) {
	f := newFixture(t)
	session, collage := f.seedSession(t)
	f.composer.Err = domain.ErrComposeRejected

	order, err := f.engine.CreateOrder(context.Background(), session.ID, collage.ID)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != domain.OrderStatusFailed {
		t.Fatalf("expected failed, got %s", order.Status)
	}
	if order.FailureReason == "" {
		t.Fatal("expected failure reason to be recorded")
	}
	if !hasEvent(collectOutbox(t, f.outbox), "OrderFailed") {
		t.Fatal("expected OrderFailed event")
	}
}

func TestComposeJob_ExhaustedRetriesFailOrder(t *testing.T) {
	f := newFixture(t)
	session, collage := f.seedSession(t)
	f.composer.FailuresBeforeSuccess = 10

	order, err := f.engine.CreateOrder(context.Background(), session.ID, collage.ID)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != domain.OrderStatusFailed {
		t.Fatalf("expected failed after exhausted retries, got %s", order.Status)
	}
	if f.composer.Calls != 3 {
		t.Fatalf("expected 3 compose calls, got %d", f.composer.Calls)
	}
}

func TestComposeJob_IdempotentForProcessedOrder(t *testing.T) {
	f := newFixture(t)
	session, collage := f.seedSession(t)

	order, err := f.engine.CreateOrder(context.Background(), session.ID, collage.ID)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	calls := f.composer.Calls

	// Повторный запуск по уже готовому заказу — no-op.
	if err := f.engine.RunComposeJob(context.Background(), order.ID); err != nil {
		t.Fatalf("rerun compose: %v", err)
	}
	if f.composer.Calls != calls {
		t.Fatalf("expected no extra compose calls, got %d", f.composer.Calls-calls)
	}
}

func TestComposeJob_CancelledContextAbortsRetry(t *testing.T) {
	f := newFixture(t, WithComposeRetry(3, time.Minute))
	session, collage := f.seedSession(t)
	f.composer.FailuresBeforeSuccess = 10

	now := time.Now().UTC()
	order := domain.Order{
		ID:         "order-interrupted",
		UUID:       "uuid-interrupted",
		Code:       "111-222",
		SessionID:  session.ID,
		CollageID:  collage.ID,
		PriceMinor: collage.PriceMinor,
		Status:     domain.OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := f.orders.Create(order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.engine.RunComposeJob(ctx, order.ID); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if f.composer.Calls != 1 {
		t.Fatalf("expected single compose call before abort, got %d", f.composer.Calls)
	}

	// Прерванный заказ не проваливается: генерацию можно запустить снова.
	stored, err := f.orders.Get(order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.Status != domain.OrderStatusPending {
		t.Fatalf("interrupted order must stay pending, got %s", stored.Status)
	}
}

func TestEngineShutdown_DrainsBackgroundCompose(t *testing.T) {
	f := newFixture(t, WithComposeSync(false), WithComposeRetry(3, time.Minute))
	session, collage := f.seedSession(t)
	f.composer.FailuresBeforeSuccess = 10

	order, err := f.engine.CreateOrder(context.Background(), session.ID, collage.ID)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending right after async create, got %s", order.Status)
	}

	done := make(chan struct{})
	go func() {
		f.engine.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not drain background compose")
	}

	stored, err := f.orders.Get(order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.Status != domain.OrderStatusPending {
		t.Fatalf("interrupted order must stay pending, got %s", stored.Status)
	}
}

func TestOrderCodes_Unique(t *testing.T) {
	f := newFixture(t)
	session, collage := f.seedSession(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		order, err := f.engine.CreateOrder(context.Background(), session.ID, collage.ID)
		if err != nil {
			t.Fatalf("create order %d: %v", i, err)
		}
		if !domain.OrderCodePattern.MatchString(order.Code) {
			t.Fatalf("order code %q does not match NNN-NNN", order.Code)
		}
		if seen[order.Code] {
			t.Fatalf("duplicate order code %q", order.Code)
		}
		seen[order.Code] = true
	}
}
