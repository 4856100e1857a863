package app

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

type catalogEntry struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Prompt          string   `json:"prompt"`
	ReferenceImages []string `json:"reference_images"`
	PriceMinor      int64    `json:"price_minor"`
	Active          bool     `json:"active"`
}

// seedCollageCatalog загружает шаблоны коллажей в репозиторий.
// Путь к JSON-файлу каталога задаёт админка; без него киоск
// получает встроенный демо-каталог, если репозиторий пуст.
func seedCollageCatalog(repo domain.CollageRepository, path string, logger *log.Entry) error {
	if path == "" {
		return seedDefaultCatalog(repo, logger)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read collage catalog %s: %w", path, err)
	}

	var entries []catalogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("parse collage catalog %s: %w", path, err)
	}

	now := time.Now().UTC()
	loaded := 0
	for _, entry := range entries {
		collage := domain.Collage{
			ID:              entry.ID,
			Title:           entry.Title,
			Prompt:          entry.Prompt,
			ReferenceImages: entry.ReferenceImages,
			PriceMinor:      entry.PriceMinor,
			Active:          entry.Active,
			CreatedAt:       now,
		}
		if err := repo.Create(collage); err != nil {
			// Повторный запуск поверх той же базы: шаблон уже загружен.
			logger.WithError(err).WithField("collage_id", entry.ID).Debug("skip existing collage")
			continue
		}
		loaded++
	}

	logger.WithFields(log.Fields{"path": path, "loaded": loaded}).Info("collage catalog loaded")
	return nil
}

func seedDefaultCatalog(repo domain.CollageRepository, logger *log.Entry) error {
	existing, err := repo.ListActive()
	if err != nil {
		return fmt.Errorf("list collages: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now().UTC()
	defaults := []domain.Collage{
		{
			ID:         "collage-cosmonaut",
			Title:      "Космонавт",
			Prompt:     "портрет человека в скафандре на фоне Луны",
			PriceMinor: 50000,
			Active:     true,
			CreatedAt:  now,
		},
		{
			ID:         "collage-royal",
			Title:      "Королевский портрет",
			Prompt:     "парадный портрет в стиле XVIII века, масло",
			PriceMinor: 50000,
			Active:     true,
			CreatedAt:  now,
		},
		{
			ID:         "collage-cyberpunk",
			Title:      "Киберпанк",
			Prompt:     "неоновый портрет в ночном городе будущего",
			PriceMinor: 60000,
			Active:     true,
			CreatedAt:  now,
		},
	}

	for _, collage := range defaults {
		if err := repo.Create(collage); err != nil {
			return fmt.Errorf("seed collage %s: %w", collage.ID, err)
		}
	}

	logger.WithField("count", len(defaults)).Info("default collage catalog seeded")
	return nil
}
