package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

type photoRepository struct {
	db *sql.DB
}

// NewPhotoRepository создаёт PostgreSQL-реализацию PhotoRepository.
// Единственность оригинала на сессию обеспечивает частичный unique-индекс.
func NewPhotoRepository(store *Store) domain.PhotoRepository {
	return &photoRepository{db: store.DB()}
}

func (r *photoRepository) Create(photo domain.Photo) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO photos (
			id, session_id, type, blur_level, path, status, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		photo.ID, photo.SessionID, string(photo.Type), photo.BlurLevel,
		photo.Path, string(photo.Status), photo.CreatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolationConstraint(err); ok {
			if constraint == "photos_original_per_session" {
				return domain.ErrOriginalPhotoExists
			}
			return fmt.Errorf("photo id already taken: %s", photo.ID)
		}
		return fmt.Errorf("insert photo: %w", err)
	}

	return nil
}

func (r *photoRepository) Get(id string) (domain.Photo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.scanOne(r.db.QueryRowContext(ctx, selectPhotoSQL+` WHERE id = $1`, id))
}

func (r *photoRepository) FindOriginal(sessionID string) (domain.Photo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.scanOne(r.db.QueryRowContext(ctx, selectPhotoSQL+`
		WHERE session_id = $1 AND type = $2
		ORDER BY created_at ASC
		LIMIT 1
	`, sessionID, string(domain.PhotoTypeOriginal)))
}

func (r *photoRepository) FindResult(sessionID string) (domain.Photo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.scanOne(r.db.QueryRowContext(ctx, selectPhotoSQL+`
		WHERE session_id = $1 AND type = $2 AND blur_level = 0
		ORDER BY created_at DESC
		LIMIT 1
	`, sessionID, string(domain.PhotoTypeResult)))
}

func (r *photoRepository) FindTeaser(sessionID string) (domain.Photo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.scanOne(r.db.QueryRowContext(ctx, selectPhotoSQL+`
		WHERE session_id = $1 AND type = $2 AND blur_level > 0
		ORDER BY blur_level DESC, created_at DESC
		LIMIT 1
	`, sessionID, string(domain.PhotoTypeResult)))
}

func (r *photoRepository) ListBySession(sessionID string) ([]domain.Photo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, selectPhotoSQL+`
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	photos := make([]domain.Photo, 0)
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photo rows: %w", err)
	}

	return photos, nil
}

const selectPhotoSQL = `
	SELECT id, session_id, type, blur_level, path, status, created_at
	FROM photos
`

func (r *photoRepository) scanOne(row rowScanner) (domain.Photo, error) {
	photo, err := scanPhoto(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Photo{}, domain.ErrPhotoNotFound
		}
		return domain.Photo{}, err
	}
	return photo, nil
}

func scanPhoto(row rowScanner) (domain.Photo, error) {
	var (
		photo       domain.Photo
		photoType   string
		photoStatus string
	)

	if err := row.Scan(
		&photo.ID, &photo.SessionID, &photoType, &photo.BlurLevel,
		&photo.Path, &photoStatus, &photo.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Photo{}, err
		}
		return domain.Photo{}, fmt.Errorf("scan photo row: %w", err)
	}

	photo.Type = domain.PhotoType(photoType)
	photo.Status = domain.PhotoStatus(photoStatus)
	return photo, nil
}

var _ domain.PhotoRepository = (*photoRepository)(nil)
