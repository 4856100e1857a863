package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

func TestPhotoRepository_PostgresLookups(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedSessionAndCollage(t, store, "sess-1", "collage-1")
	repo := NewPhotoRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	original := domain.Photo{
		ID:        "photo-original",
		SessionID: "sess-1",
		Type:      domain.PhotoTypeOriginal,
		Path:      "photos/originals/photo-original.jpg",
		Status:    domain.PhotoStatusUploaded,
		CreatedAt: now.Add(-3 * time.Minute),
	}
	teaserWeak := domain.Photo{
		ID:        "photo-teaser-weak",
		SessionID: "sess-1",
		Type:      domain.PhotoTypeResult,
		BlurLevel: 10,
		Path:      "photos/results/photo-teaser-weak.jpg",
		Status:    domain.PhotoStatusReadyBlurred,
		CreatedAt: now.Add(-2 * time.Minute),
	}
	teaserStrong := domain.Photo{
		ID:        "photo-teaser-strong",
		SessionID: "sess-1",
		Type:      domain.PhotoTypeResult,
		BlurLevel: 25,
		Path:      "photos/results/photo-teaser-strong.jpg",
		Status:    domain.PhotoStatusReadyBlurred,
		CreatedAt: now.Add(-time.Minute),
	}
	result := domain.Photo{
		ID:        "photo-result",
		SessionID: "sess-1",
		Type:      domain.PhotoTypeResult,
		Path:      "photos/results/photo-result.jpg",
		Status:    domain.PhotoStatusReady,
		CreatedAt: now,
	}

	for _, photo := range []domain.Photo{original, teaserWeak, teaserStrong, result} {
		if err := repo.Create(photo); err != nil {
			t.Fatalf("create photo %s: %v", photo.ID, err)
		}
	}

	gotOriginal, err := repo.FindOriginal("sess-1")
	if err != nil {
		t.Fatalf("find original: %v", err)
	}
	if gotOriginal.ID != original.ID {
		t.Fatalf("expected original %s, got %s", original.ID, gotOriginal.ID)
	}

	gotResult, err := repo.FindResult("sess-1")
	if err != nil {
		t.Fatalf("find result: %v", err)
	}
	if gotResult.ID != result.ID {
		t.Fatalf("expected result %s, got %s", result.ID, gotResult.ID)
	}

	// Тизером считается самый сильно размытый результат.
	gotTeaser, err := repo.FindTeaser("sess-1")
	if err != nil {
		t.Fatalf("find teaser: %v", err)
	}
	if gotTeaser.ID != teaserStrong.ID {
		t.Fatalf("expected teaser %s, got %s", teaserStrong.ID, gotTeaser.ID)
	}

	listed, err := repo.ListBySession("sess-1")
	if err != nil {
		t.Fatalf("list by session: %v", err)
	}
	if len(listed) != 4 {
		t.Fatalf("expected 4 photos, got %d", len(listed))
	}
}

func TestPhotoRepository_PostgresOriginalUniquePerSession(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedSessionAndCollage(t, store, "sess-1", "collage-1")
	repo := NewPhotoRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	first := domain.Photo{
		ID:        "photo-first",
		SessionID: "sess-1",
		Type:      domain.PhotoTypeOriginal,
		Path:      "photos/originals/photo-first.jpg",
		Status:    domain.PhotoStatusUploaded,
		CreatedAt: now,
	}
	if err := repo.Create(first); err != nil {
		t.Fatalf("create first original: %v", err)
	}

	second := first
	second.ID = "photo-second"
	second.Path = "photos/originals/photo-second.jpg"
	if err := repo.Create(second); !errors.Is(err, domain.ErrOriginalPhotoExists) {
		t.Fatalf("expected ErrOriginalPhotoExists, got %v", err)
	}

	if _, err := repo.Get("missing-photo"); !errors.Is(err, domain.ErrPhotoNotFound) {
		t.Fatalf("expected ErrPhotoNotFound, got %v", err)
	}
	if _, err := repo.FindResult("sess-1"); !errors.Is(err, domain.ErrPhotoNotFound) {
		t.Fatalf("expected ErrPhotoNotFound for absent result, got %v", err)
	}
}
