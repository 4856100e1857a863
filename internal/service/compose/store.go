package compose

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// resultsDir — каталог готовых изображений внутри медиахранилища.
const resultsDir = "photos/results"

// storeResult сохраняет сгенерированное изображение и его размытую версию.
// Обе записи идут в хранилище под свежими uuid-именами, размытая — с суффиксом -bl.
func storeResult(store domain.FileStore, data []byte) (domain.ComposeResult, error) {
	name := uuid.NewString()

	imagePath := fmt.Sprintf("%s/%s.jpg", resultsDir, name)
	if err := store.Put(imagePath, data); err != nil {
		return domain.ComposeResult{}, fmt.Errorf("compose: store result: %w", err)
	}

	blurredData, err := Teaser(data)
	if err != nil {
		return domain.ComposeResult{}, err
	}

	blurredPath := fmt.Sprintf("%s/%s-bl.jpg", resultsDir, name)
	if err := store.Put(blurredPath, blurredData); err != nil {
		return domain.ComposeResult{}, fmt.Errorf("compose: store blurred result: %w", err)
	}

	return domain.ComposeResult{
		ImagePath:   imagePath,
		BlurredPath: blurredPath,
	}, nil
}
