package domain

import "time"

// Collage — покупаемый шаблон: промпт, референсные изображения и цена.
// Управляется извне (админкой) и для workflow-движка только читается.
type Collage struct {
	ID     string
	Title  string
	Prompt string
	// ReferenceImages — пути референсов, передаваемых генератору вместе с фото.
	ReferenceImages []string
	PriceMinor      int64
	Active          bool
	CreatedAt       time.Time
}
