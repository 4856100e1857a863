package domain

import "time"

// PhotoType различает исходник клиента и сгенерированный результат.
type PhotoType string

const (
	// PhotoTypeOriginal — фото, снятое киоском. Не более одного на сессию.
	PhotoTypeOriginal PhotoType = "original"
	// PhotoTypeResult — результат генерации (финал или размытый тизер).
	PhotoTypeResult PhotoType = "result"
)

// PhotoStatus фиксирует этап обработки файла.
type PhotoStatus string

const (
	PhotoStatusUploaded     PhotoStatus = "uploaded"
	PhotoStatusReady        PhotoStatus = "ready"
	PhotoStatusReadyBlurred PhotoStatus = "ready_blurred"
)

// TeaserBlurLevel — степень размытия тизера. Каноническое соглашение:
// blur_level 0 означает разблокированный финал, >0 — деградированный превью.
const TeaserBlurLevel = 80

// Photo описывает файл, привязанный к сессии. Записи неизменяемы:
// новый результат добавляет строки, а не перезаписывает существующие.
type Photo struct {
	ID        string
	SessionID string
	Type      PhotoType
	// BlurLevel: 0 — разблокированный финал, TeaserBlurLevel — тизер.
	BlurLevel int
	// Path — путь файла относительно корня медиахранилища.
	Path      string
	Status    PhotoStatus
	CreatedAt time.Time
}

// Unlocked сообщает, что фото — финальный результат без размытия.
func (p *Photo) Unlocked() bool {
	return p.Type == PhotoTypeResult && p.BlurLevel == 0
}

// Teaser сообщает, что фото — размытый превью результата.
func (p *Photo) Teaser() bool {
	return p.Type == PhotoTypeResult && p.BlurLevel > 0
}
