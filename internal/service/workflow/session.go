package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// originalsDir — каталог оригиналов внутри медиахранилища.
const originalsDir = "photos/originals"

// StartSession открывает новую сессию киоска и возвращает её токен.
func (e *Engine) StartSession(ctx context.Context, deviceID string) (domain.Session, error) {
	now := time.Now().UTC()
	session := domain.Session{
		ID:           "sess_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		DeviceID:     deviceID,
		Status:       domain.SessionStatusActive,
		StartedAt:    now,
		LastActivity: now,
	}
	if err := e.sessions.Create(session); err != nil {
		return domain.Session{}, err
	}

	e.logger.WithFields(log.Fields{
		"session_id": session.ID,
		"device_id":  deviceID,
	}).Info("сессия открыта")
	return session, nil
}

// FinishSession закрывает сессию. Повторное закрытие — no-op.
func (e *Engine) FinishSession(ctx context.Context, sessionID string) error {
	session, err := e.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	if !session.Active() {
		return nil
	}

	now := time.Now().UTC()
	session.Status = domain.SessionStatusFinished
	session.FinishedAt = &now
	session.LastActivity = now
	if err := e.sessions.Save(session); err != nil {
		return err
	}

	e.logger.WithField("session_id", sessionID).Info("сессия закрыта")
	return nil
}

// UploadPhoto сохраняет оригинальное фото сессии. На сессию допускается
// ровно один оригинал, повторная загрузка отклоняется хранилищем.
func (e *Engine) UploadPhoto(ctx context.Context, sessionID string, data []byte) (domain.Photo, error) {
	session, err := e.sessions.Get(sessionID)
	if err != nil {
		return domain.Photo{}, err
	}
	if !session.Active() {
		return domain.Photo{}, domain.ErrSessionFinished
	}

	path := fmt.Sprintf("%s/%s.jpg", originalsDir, uuid.NewString())
	if err := e.files.Put(path, data); err != nil {
		return domain.Photo{}, err
	}

	photo := domain.Photo{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Type:      domain.PhotoTypeOriginal,
		BlurLevel: 0,
		Path:      path,
		Status:    domain.PhotoStatusUploaded,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.photos.Create(photo); err != nil {
		return domain.Photo{}, err
	}

	session.LastActivity = time.Now().UTC()
	if err := e.sessions.Save(session); err != nil {
		e.logger.WithError(err).WithField("session_id", sessionID).Warn("не удалось обновить активность сессии")
	}

	e.logger.WithFields(log.Fields{
		"session_id": sessionID,
		"photo_id":   photo.ID,
	}).Info("оригинал загружен")
	return photo, nil
}

// ListCollages возвращает активные коллажи каталога.
func (e *Engine) ListCollages(ctx context.Context) ([]domain.Collage, error) {
	return e.collages.ListActive()
}

// GetCollage возвращает шаблон коллажа по идентификатору.
func (e *Engine) GetCollage(ctx context.Context, collageID string) (domain.Collage, error) {
	return e.collages.Get(collageID)
}
