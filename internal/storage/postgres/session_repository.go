package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository создаёт PostgreSQL-реализацию SessionRepository.
func NewSessionRepository(store *Store) domain.SessionRepository {
	return &sessionRepository{db: store.DB()}
}

func (r *sessionRepository) Create(session domain.Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (
			id, device_id, status, started_at, finished_at, last_activity
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		session.ID, session.DeviceID, string(session.Status),
		session.StartedAt, session.FinishedAt, session.LastActivity,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("session id already taken: %s", session.ID)
		}
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

func (r *sessionRepository) Get(id string) (domain.Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		session    domain.Session
		status     string
		finishedAt sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, device_id, status, started_at, finished_at, last_activity
		FROM sessions
		WHERE id = $1
	`, id).Scan(
		&session.ID, &session.DeviceID, &status,
		&session.StartedAt, &finishedAt, &session.LastActivity,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("select session: %w", err)
	}

	session.Status = domain.SessionStatus(status)
	if finishedAt.Valid {
		t := finishedAt.Time.UTC()
		session.FinishedAt = &t
	}
	return session, nil
}

func (r *sessionRepository) Save(session domain.Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = $1,
		    finished_at = $2,
		    last_activity = $3
		WHERE id = $4
	`,
		string(session.Status), session.FinishedAt, session.LastActivity, session.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}

	return nil
}

var _ domain.SessionRepository = (*sessionRepository)(nil)
