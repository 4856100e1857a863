package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

type fakeOutboxQueue struct {
	pending   []domain.OutboxMessage
	sentIDs   []string
	failedIDs []string
}

func (f *fakeOutboxQueue) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	return msg, nil
}

func (f *fakeOutboxQueue) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 || limit >= len(f.pending) {
		return append([]domain.OutboxMessage(nil), f.pending...), nil
	}
	return append([]domain.OutboxMessage(nil), f.pending[:limit]...), nil
}

func (f *fakeOutboxQueue) Stats() (domain.OutboxStats, error) {
	stats := domain.OutboxStats{PendingCount: len(f.pending)}
	if len(f.pending) > 0 {
		stats.OldestPendingAt = time.Now().UTC().Add(-time.Second)
	}
	return stats, nil
}

func (f *fakeOutboxQueue) MarkSent(id string) error {
	f.sentIDs = append(f.sentIDs, id)
	return nil
}

func (f *fakeOutboxQueue) MarkFailed(id string) error {
	f.failedIDs = append(f.failedIDs, id)
	return nil
}

// fakePublisher отдаёт ошибки из sequence по одной, затем постоянную err.
type fakePublisher struct {
	mu        sync.Mutex
	err       error
	sequence  []error
	callCount int
}

func (f *fakePublisher) Publish(_ domain.OutboxMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callCount++
	if len(f.sequence) > 0 {
		err := f.sequence[0]
		f.sequence = f.sequence[1:]
		return err
	}
	return f.err
}

func (f *fakePublisher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}

var (
	_ domain.OutboxRepository = (*fakeOutboxQueue)(nil)
	_ domain.OutboxPublisher  = (*fakePublisher)(nil)
)

func pendingOrderEvent(id, orderID, eventType string) domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            id,
		AggregateType: "order",
		AggregateID:   orderID,
		EventType:     eventType,
		Payload:       []byte(`{"order_id":"` + orderID + `"}`),
	}
}

func TestWorker_ProcessOnce_MarkSent(t *testing.T) {
	t.Parallel()

	queue := &fakeOutboxQueue{
		pending: []domain.OutboxMessage{pendingOrderEvent("msg-1", "order-1", "order.created")},
	}
	publisher := &fakePublisher{}

	worker := NewWorker(queue, publisher, WithRetryBaseDelay(0), WithMaxAttempts(3))
	worker.ProcessOnce(context.Background())

	if len(queue.sentIDs) != 1 || queue.sentIDs[0] != "msg-1" {
		t.Fatalf("unexpected sent marks: %v", queue.sentIDs)
	}
	if len(queue.failedIDs) != 0 {
		t.Fatalf("expected no failed marks, got %v", queue.failedIDs)
	}
	if got := publisher.calls(); got != 1 {
		t.Fatalf("expected 1 publish call, got %d", got)
	}
}

func TestWorker_ProcessOnce_MarkFailedAndDLQAfterRetries(t *testing.T) {
	t.Parallel()

	queue := &fakeOutboxQueue{
		pending: []domain.OutboxMessage{pendingOrderEvent("msg-2", "order-2", "order.paid")},
	}
	publisher := &fakePublisher{err: errors.New("publish failed")}
	dlqPublisher := &fakePublisher{}

	worker := NewWorker(
		queue,
		publisher,
		WithDLQPublisher(dlqPublisher),
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
	)
	worker.ProcessOnce(context.Background())

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	if len(queue.sentIDs) != 0 {
		t.Fatalf("expected no sent marks, got %v", queue.sentIDs)
	}
	if len(queue.failedIDs) != 1 || queue.failedIDs[0] != "msg-2" {
		t.Fatalf("unexpected failed marks: %v", queue.failedIDs)
	}
	if got := dlqPublisher.calls(); got != 1 {
		t.Fatalf("expected 1 DLQ publish, got %d", got)
	}
}

func TestWorker_ProcessOnce_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	queue := &fakeOutboxQueue{
		pending: []domain.OutboxMessage{pendingOrderEvent("msg-3", "order-3", "order.ready_blurred")},
	}
	publisher := &fakePublisher{
		sequence: []error{errors.New("broker unavailable"), errors.New("broker unavailable"), nil},
	}

	worker := NewWorker(queue, publisher, WithRetryBaseDelay(0), WithMaxAttempts(3))
	worker.ProcessOnce(context.Background())

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	if len(queue.sentIDs) != 1 {
		t.Fatalf("expected 1 sent mark, got %v", queue.sentIDs)
	}
	if len(queue.failedIDs) != 0 {
		t.Fatalf("expected no failed marks, got %v", queue.failedIDs)
	}
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	worker := NewWorker(
		&fakeOutboxQueue{},
		&fakePublisher{},
		WithPollInterval(5*time.Millisecond),
		WithRetryBaseDelay(0),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}
