package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
	"github.com/vladislavdragonenkov/photokiosk/internal/storage/files"
	"github.com/vladislavdragonenkov/photokiosk/internal/storage/memory"
)

// apiCall — одно обращение бота к Bot API, записанное тестовым сервером.
type apiCall struct {
	method string
	text   string
}

// fakeBotAPI поднимает сервер, отвечающий ok на любой метод Bot API.
type fakeBotAPI struct {
	mu    sync.Mutex
	calls []apiCall
}

func (f *fakeBotAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		method := parts[len(parts)-1]

		call := apiCall{method: method}
		if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
			var payload map[string]any
			if err := json.NewDecoder(r.Body).Decode(&payload); err == nil {
				if text, ok := payload["text"].(string); ok {
					call.text = text
				}
			}
		}

		f.mu.Lock()
		f.calls = append(f.calls, call)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}
}

func (f *fakeBotAPI) last(t *testing.T) apiCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("expected at least one bot api call")
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeBotAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// stubDelivery записывает запросы на выдачу.
type stubDelivery struct {
	err        error
	orderIDs   []string
	recipients []string
}

func (s *stubDelivery) Request(_ context.Context, orderID string, _ domain.DeliveryChannel, recipient string) (domain.Delivery, error) {
	s.orderIDs = append(s.orderIDs, orderID)
	s.recipients = append(s.recipients, recipient)
	if s.err != nil {
		return domain.Delivery{}, s.err
	}
	return domain.Delivery{ID: "delivery-1", OrderID: orderID, Status: domain.DeliveryStatusDelivered}, nil
}

type botFixture struct {
	bot      *Bot
	api      *fakeBotAPI
	orders   domain.OrderRepository
	photos   domain.PhotoRepository
	users    domain.TelegramUserRepository
	store    domain.FileStore
	delivery *stubDelivery
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()

	api := &fakeBotAPI{}
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	store, err := files.NewLocalStore(t.TempDir(), "http://localhost/media")
	if err != nil {
		t.Fatalf("create file store: %v", err)
	}

	f := &botFixture{
		api:      api,
		orders:   memory.NewOrderRepository(),
		photos:   memory.NewPhotoRepository(),
		users:    memory.NewTelegramUserRepository(),
		store:    store,
		delivery: &stubDelivery{},
	}
	f.bot = NewBot(NewClient(server.URL, "test-token"), f.orders, f.photos, f.users, store, f.delivery)
	return f
}

// seedOrder кладёт заказ с размытым тизером в указанном статусе.
func (f *botFixture) seedOrder(t *testing.T, status domain.OrderStatus) domain.Order {
	t.Helper()
	now := time.Now().UTC()

	order := domain.Order{
		ID:        "order-1",
		Code:      "123-456",
		SessionID: "sess-1",
		CollageID: "collage-1",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.orders.Create(order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	teaserPath := "photos/results/teaser.jpg"
	if err := f.store.Put(teaserPath, []byte("blurred-jpeg")); err != nil {
		t.Fatalf("put teaser: %v", err)
	}
	teaser := domain.Photo{
		ID:        "photo-teaser",
		SessionID: order.SessionID,
		Type:      domain.PhotoTypeResult,
		BlurLevel: domain.TeaserBlurLevel,
		Path:      teaserPath,
		Status:    domain.PhotoStatusReadyBlurred,
		CreatedAt: now,
	}
	if err := f.photos.Create(teaser); err != nil {
		t.Fatalf("create teaser: %v", err)
	}
	return order
}

func message(chatID int64, text string) Update {
	return Update{
		UpdateID: 1,
		Message: &Message{
			MessageID: 10,
			From:      &User{ID: chatID, Username: "buyer"},
			Chat:      Chat{ID: chatID},
			Text:      text,
		},
	}
}

func TestHandleUpdate_HelpOnUnknownText(t *testing.T) {
	f := newBotFixture(t)

	if err := f.bot.HandleUpdate(context.Background(), message(100, "привет")); err != nil {
		t.Fatalf("handle update: %v", err)
	}

	call := f.api.last(t)
	if call.method != "sendMessage" {
		t.Fatalf("expected sendMessage, got %s", call.method)
	}
	if !strings.Contains(call.text, "код заказа") {
		t.Fatalf("expected help text, got %q", call.text)
	}
}

func TestHandleUpdate_UnknownCode(t *testing.T) {
	f := newBotFixture(t)

	if err := f.bot.HandleUpdate(context.Background(), message(100, "999-999")); err != nil {
		t.Fatalf("handle update: %v", err)
	}
	if !strings.Contains(f.api.last(t).text, "не найден") {
		t.Fatalf("expected not-found text, got %q", f.api.last(t).text)
	}
}

func TestHandleUpdate_ReadyBlurredSendsTeaser(t *testing.T) {
	f := newBotFixture(t)
	order := f.seedOrder(t, domain.OrderStatusReadyBlurred)

	if err := f.bot.HandleUpdate(context.Background(), message(100, order.Code)); err != nil {
		t.Fatalf("handle update: %v", err)
	}

	call := f.api.last(t)
	if call.method != "sendPhoto" {
		t.Fatalf("expected sendPhoto, got %s", call.method)
	}

	// Чат привязан к заказу.
	user, err := f.users.Get(100)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.LinkedOrderID != order.ID {
		t.Fatalf("expected linked order %s, got %s", order.ID, user.LinkedOrderID)
	}
	if user.Username != "buyer" {
		t.Fatalf("expected username buyer, got %q", user.Username)
	}
}

func TestHandleUpdate_PaidTriggersDelivery(t *testing.T) {
	f := newBotFixture(t)
	order := f.seedOrder(t, domain.OrderStatusPaid)

	if err := f.bot.HandleUpdate(context.Background(), message(100, "/start "+order.Code)); err != nil {
		t.Fatalf("handle update: %v", err)
	}

	if len(f.delivery.orderIDs) != 1 || f.delivery.orderIDs[0] != order.ID {
		t.Fatalf("expected delivery request for %s, got %v", order.ID, f.delivery.orderIDs)
	}
	if f.delivery.recipients[0] != "100" {
		t.Fatalf("expected recipient 100, got %q", f.delivery.recipients[0])
	}
}

func TestHandleUpdate_PaidDuplicateDelivery(t *testing.T) {
	f := newBotFixture(t)
	order := f.seedOrder(t, domain.OrderStatusPaid)
	f.delivery.err = domain.ErrDeliveryDuplicate

	if err := f.bot.HandleUpdate(context.Background(), message(100, order.Code)); err != nil {
		t.Fatalf("handle update: %v", err)
	}
	if !strings.Contains(f.api.last(t).text, "уже отправлено") {
		t.Fatalf("expected duplicate text, got %q", f.api.last(t).text)
	}
}

func TestHandleUpdate_PendingOrder(t *testing.T) {
	f := newBotFixture(t)
	order := f.seedOrder(t, domain.OrderStatusPending)

	if err := f.bot.HandleUpdate(context.Background(), message(100, order.Code)); err != nil {
		t.Fatalf("handle update: %v", err)
	}
	if !strings.Contains(f.api.last(t).text, "готовится") {
		t.Fatalf("expected pending text, got %q", f.api.last(t).text)
	}
}

func TestHandleUpdate_IgnoresEmptyMessage(t *testing.T) {
	f := newBotFixture(t)

	if err := f.bot.HandleUpdate(context.Background(), Update{UpdateID: 1}); err != nil {
		t.Fatalf("handle update: %v", err)
	}
	if f.api.count() != 0 {
		t.Fatalf("expected no api calls, got %d", f.api.count())
	}
}

func TestExtractOrderCode(t *testing.T) {
	cases := map[string]string{
		"123-456":          "123-456",
		"/start 123-456":   "123-456",
		"/start":           "",
		"  123-456  ":      "123-456",
		"код 123-456":      "",
		"1234-56":          "",
		"/start 1234-5678": "",
	}
	for input, want := range cases {
		if got := extractOrderCode(input); got != want {
			t.Errorf("extractOrderCode(%q) = %q, want %q", input, got, want)
		}
	}
}
