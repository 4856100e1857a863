package memory_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
	"github.com/vladislavdragonenkov/photokiosk/internal/storage/memory"
)

func newDelivery(id string) domain.Delivery {
	now := time.Now().UTC()
	return domain.Delivery{
		ID:      id,
		OrderID: "order-1",
		Channel: domain.DeliveryChannelEmail,
		Status:  domain.DeliveryStatusPending,
		Meta: map[string]string{
			domain.DeliveryMetaRecipient: "user@example.com",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestDeliveryRepository_DuplicateChannelRejected(t *testing.T) {
	repo := memory.NewDeliveryRepository()

	if err := repo.Create(newDelivery("d1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(newDelivery("d2")); err != domain.ErrDeliveryDuplicate {
		t.Fatalf("expected ErrDeliveryDuplicate, got %v", err)
	}

	// После провала первой попытки канал снова свободен.
	failed, err := repo.Get("d1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	failed.Status = domain.DeliveryStatusFailed
	if err := repo.Save(failed); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := repo.Create(newDelivery("d3")); err != nil {
		t.Fatalf("retry create failed: %v", err)
	}
}

func TestDeliveryRepository_FindActive(t *testing.T) {
	repo := memory.NewDeliveryRepository()
	if err := repo.Create(newDelivery("d1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	active, err := repo.FindActive("order-1", domain.DeliveryChannelEmail)
	if err != nil {
		t.Fatalf("find active failed: %v", err)
	}
	if active.ID != "d1" {
		t.Fatalf("expected d1, got %s", active.ID)
	}

	if _, err := repo.FindActive("order-1", domain.DeliveryChannelPrint); err != domain.ErrDeliveryNotFound {
		t.Fatalf("expected ErrDeliveryNotFound, got %v", err)
	}
}

func TestDeliveryRepository_MetaIsolated(t *testing.T) {
	repo := memory.NewDeliveryRepository()
	d := newDelivery("d1")
	if err := repo.Create(d); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	d.Meta[domain.DeliveryMetaRecipient] = "mutated@example.com"

	stored, err := repo.Get("d1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Meta[domain.DeliveryMetaRecipient] != "user@example.com" {
		t.Fatal("meta map leaked between caller and storage")
	}
}
