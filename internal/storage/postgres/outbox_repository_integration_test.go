package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

func enqueueOutboxEvent(t *testing.T, repo domain.OutboxRepository, msg domain.OutboxMessage) domain.OutboxMessage {
	t.Helper()

	stored, err := repo.Enqueue(msg)
	require.NoError(t, err)
	return stored
}

func TestOutboxRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	created := enqueueOutboxEvent(t, repo, domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "order.created",
		Payload:       []byte(`{"order_id":"order-1"}`),
	})
	require.NotEmpty(t, created.ID, "enqueue should generate an id")

	paid := enqueueOutboxEvent(t, repo, domain.OutboxMessage{
		ID:            "outbox-fixed-id",
		AggregateType: "order",
		AggregateID:   "order-2",
		EventType:     "order.paid",
		Payload:       []byte(`{"order_id":"order-2"}`),
	})
	require.Equal(t, "outbox-fixed-id", paid.ID, "caller-provided id should survive")

	// limit=0 идёт по ветке дефолтного лимита.
	pending, err := repo.PullPending(0)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	stats, err := repo.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, stats.PendingCount)
	require.False(t, stats.OldestPendingAt.IsZero(), "oldest pending timestamp expected")

	require.NoError(t, repo.MarkSent(created.ID))
	require.NoError(t, repo.MarkFailed(paid.ID))

	after, err := repo.PullPending(10)
	require.NoError(t, err)
	require.Empty(t, after, "sent and failed messages must leave the pending set")

	stats, err = repo.Stats()
	require.NoError(t, err)
	require.Equal(t, 0, stats.PendingCount)
}

func TestOutboxRepository_PostgresMissingRows(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	require.ErrorIs(t, repo.MarkSent("missing-outbox"), domain.ErrOutboxPublish)
	require.ErrorIs(t, repo.MarkFailed("missing-outbox"), domain.ErrOutboxPublish)
}

func TestOutboxRepository_PostgresStatsOldestPendingOrder(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	first := enqueueOutboxEvent(t, repo, domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-old",
		EventType:     "order.created",
		Payload:       []byte(`{"order_id":"order-old"}`),
	})

	time.Sleep(5 * time.Millisecond)

	enqueueOutboxEvent(t, repo, domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-new",
		EventType:     "order.created",
		Payload:       []byte(`{"order_id":"order-new"}`),
	})

	stats, err := repo.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, stats.PendingCount)
	require.False(t, stats.OldestPendingAt.IsZero())

	require.NoError(t, repo.MarkSent(first.ID))
}
