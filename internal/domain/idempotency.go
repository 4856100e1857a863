package domain

import "time"

// IdempotencyStatus — стадия обработки запроса, занявшего ключ.
type IdempotencyStatus string

const (
	// IdempotencyStatusProcessing — запрос принят, ответа ещё нет.
	IdempotencyStatusProcessing IdempotencyStatus = "processing"
	// IdempotencyStatusDone — запрос выполнен, ответ сохранён для replay.
	IdempotencyStatusDone IdempotencyStatus = "done"
	// IdempotencyStatusFailed — обработка завершилась ошибкой.
	IdempotencyStatusFailed IdempotencyStatus = "failed"
)

// Valid сообщает, относится ли статус к поддерживаемым значениям.
func (s IdempotencyStatus) Valid() bool {
	switch s {
	case IdempotencyStatusProcessing, IdempotencyStatusDone, IdempotencyStatusFailed:
		return true
	}
	return false
}

// IdempotencyRecord — занятый Idempotency-Key вместе с сохранённым
// ответом. Повтор запроса с тем же ключом и телом получает ответ из
// записи, а не создаёт второй заказ.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseBody []byte
	HTTPStatus   int
	Status       IdempotencyStatus
	TTLAt        time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone возвращает копию записи с собственным буфером ответа.
func (r IdempotencyRecord) Clone() IdempotencyRecord {
	dst := r
	dst.ResponseBody = append([]byte(nil), r.ResponseBody...)
	return dst
}
