package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

type collageRepository struct {
	db *sql.DB
}

// NewCollageRepository создаёт PostgreSQL-реализацию CollageRepository.
// Референсные изображения хранятся JSONB-массивом путей.
func NewCollageRepository(store *Store) domain.CollageRepository {
	return &collageRepository{db: store.DB()}
}

func (r *collageRepository) Create(collage domain.Collage) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	refs, err := json.Marshal(collage.ReferenceImages)
	if err != nil {
		return fmt.Errorf("marshal reference images: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO collages (
			id, title, prompt, reference_images, price_minor, active, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		collage.ID, collage.Title, collage.Prompt, refs,
		collage.PriceMinor, collage.Active, collage.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("collage id already taken: %s", collage.ID)
		}
		return fmt.Errorf("insert collage: %w", err)
	}

	return nil
}

func (r *collageRepository) Get(id string) (domain.Collage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.scanOne(r.db.QueryRowContext(ctx, selectCollageSQL+` WHERE id = $1`, id))
}

func (r *collageRepository) ListActive() ([]domain.Collage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, selectCollageSQL+`
		WHERE active
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list active collages: %w", err)
	}
	defer rows.Close()

	collages := make([]domain.Collage, 0)
	for rows.Next() {
		collage, err := scanCollage(rows)
		if err != nil {
			return nil, err
		}
		collages = append(collages, collage)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collage rows: %w", err)
	}

	return collages, nil
}

const selectCollageSQL = `
	SELECT id, title, prompt, reference_images, price_minor, active, created_at
	FROM collages
`

func (r *collageRepository) scanOne(row rowScanner) (domain.Collage, error) {
	collage, err := scanCollage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Collage{}, domain.ErrCollageNotFound
		}
		return domain.Collage{}, err
	}
	return collage, nil
}

func scanCollage(row rowScanner) (domain.Collage, error) {
	var (
		collage domain.Collage
		refsRaw []byte
	)

	if err := row.Scan(
		&collage.ID, &collage.Title, &collage.Prompt, &refsRaw,
		&collage.PriceMinor, &collage.Active, &collage.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Collage{}, err
		}
		return domain.Collage{}, fmt.Errorf("scan collage row: %w", err)
	}

	if len(refsRaw) > 0 {
		if err := json.Unmarshal(refsRaw, &collage.ReferenceImages); err != nil {
			return domain.Collage{}, fmt.Errorf("unmarshal reference images: %w", err)
		}
	}
	return collage, nil
}

var _ domain.CollageRepository = (*collageRepository)(nil)
