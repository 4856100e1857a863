package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

type deliveryRepository struct {
	db *sql.DB
}

// NewDeliveryRepository создаёт PostgreSQL-реализацию DeliveryRepository.
// Частичный unique-индекс допускает одну не-failed доставку на (заказ, канал).
func NewDeliveryRepository(store *Store) domain.DeliveryRepository {
	return &deliveryRepository{db: store.DB()}
}

func (r *deliveryRepository) Create(delivery domain.Delivery) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	meta, err := json.Marshal(delivery.Meta)
	if err != nil {
		return fmt.Errorf("marshal delivery meta: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO deliveries (
			id, order_id, channel, status, meta, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		delivery.ID, delivery.OrderID, string(delivery.Channel),
		string(delivery.Status), meta, delivery.CreatedAt, delivery.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolationConstraint(err); ok {
			if constraint == "deliveries_active_per_channel" {
				return domain.ErrDeliveryDuplicate
			}
			return fmt.Errorf("delivery id already taken: %s", delivery.ID)
		}
		return fmt.Errorf("insert delivery: %w", err)
	}

	return nil
}

func (r *deliveryRepository) Get(id string) (domain.Delivery, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.scanOne(r.db.QueryRowContext(ctx, selectDeliverySQL+` WHERE id = $1`, id))
}

func (r *deliveryRepository) FindActive(orderID string, channel domain.DeliveryChannel) (domain.Delivery, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.scanOne(r.db.QueryRowContext(ctx, selectDeliverySQL+`
		WHERE order_id = $1 AND channel = $2 AND status <> $3
		ORDER BY created_at DESC
		LIMIT 1
	`, orderID, string(channel), string(domain.DeliveryStatusFailed)))
}

func (r *deliveryRepository) ListByOrder(orderID string) ([]domain.Delivery, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, selectDeliverySQL+`
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	deliveries := make([]domain.Delivery, 0)
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, delivery)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery rows: %w", err)
	}

	return deliveries, nil
}

func (r *deliveryRepository) Save(delivery domain.Delivery) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	meta, err := json.Marshal(delivery.Meta)
	if err != nil {
		return fmt.Errorf("marshal delivery meta: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE deliveries
		SET status = $1,
		    meta = $2,
		    updated_at = $3
		WHERE id = $4
	`,
		string(delivery.Status), meta, delivery.UpdatedAt, delivery.ID,
	)
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrDeliveryNotFound
	}

	return nil
}

const selectDeliverySQL = `
	SELECT id, order_id, channel, status, meta, created_at, updated_at
	FROM deliveries
`

func (r *deliveryRepository) scanOne(row rowScanner) (domain.Delivery, error) {
	delivery, err := scanDelivery(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Delivery{}, domain.ErrDeliveryNotFound
		}
		return domain.Delivery{}, err
	}
	return delivery, nil
}

func scanDelivery(row rowScanner) (domain.Delivery, error) {
	var (
		delivery domain.Delivery
		channel  string
		status   string
		metaRaw  []byte
	)

	if err := row.Scan(
		&delivery.ID, &delivery.OrderID, &channel, &status,
		&metaRaw, &delivery.CreatedAt, &delivery.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Delivery{}, err
		}
		return domain.Delivery{}, fmt.Errorf("scan delivery row: %w", err)
	}

	delivery.Channel = domain.DeliveryChannel(channel)
	delivery.Status = domain.DeliveryStatus(status)
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &delivery.Meta); err != nil {
			return domain.Delivery{}, fmt.Errorf("unmarshal delivery meta: %w", err)
		}
	}
	return delivery, nil
}

var _ domain.DeliveryRepository = (*deliveryRepository)(nil)
