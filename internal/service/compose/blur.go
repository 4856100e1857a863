package compose

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/disintegration/imaging"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

// Teaser применяет гауссово размытие к изображению и кодирует результат в JPEG.
// Уровень размытия фиксирован (TeaserBlurLevel): превью должно интриговать,
// но не раскрывать результат до оплаты.
func Teaser(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("compose: decode image: %w", err)
	}

	blurred := imaging.Blur(img, float64(domain.TeaserBlurLevel)/10)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, blurred, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("compose: encode blurred image: %w", err)
	}
	return buf.Bytes(), nil
}
