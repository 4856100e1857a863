package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

func TestTimelineRepository_PostgresAppendAndList(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedSessionAndCollage(t, store, "sess-1", "collage-1")
	orderRepo := NewOrderRepository(store)
	timelineRepo := NewTimelineRepository(store)

	createdAt := time.Now().UTC().Add(-time.Minute).Round(time.Microsecond)
	order := sampleOrder("timeline-order", "444-444", createdAt)
	require.NoError(t, orderRepo.Create(order))

	// Пустой occurred проставляется репозиторием.
	require.NoError(t, timelineRepo.Append(domain.TimelineEvent{
		OrderID: order.ID,
		Type:    "OrderCreated",
	}))

	require.NoError(t, timelineRepo.Append(domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     "OrderPaid",
		Reason:   "webhook",
		Occurred: createdAt.Add(10 * time.Second),
	}))

	events, err := timelineRepo.List(order.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.False(t, events[0].Occurred.After(events[1].Occurred), "history must be sorted by occurred asc")

	types := []string{events[0].Type, events[1].Type}
	require.Contains(t, types, "OrderCreated")
	require.Contains(t, types, "OrderPaid")
}

func TestTimelineRepository_PostgresMissingOrder(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	timelineRepo := NewTimelineRepository(store)

	// FK на orders не даёт писать историю несуществующего заказа.
	err := timelineRepo.Append(domain.TimelineEvent{
		OrderID: "missing-order",
		Type:    "OrderCreated",
	})
	require.Error(t, err)

	events, err := timelineRepo.List("missing-order")
	require.NoError(t, err)
	require.Empty(t, events)
}
