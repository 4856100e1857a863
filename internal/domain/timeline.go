package domain

import "time"

// TimelineEvent — запись в истории заказа: переход статуса, попытка
// доставки, результат оплаты. Reason заполняется для отказов.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}
