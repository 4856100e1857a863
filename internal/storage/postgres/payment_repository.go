package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
)

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository создаёт PostgreSQL-реализацию PaymentRepository.
func NewPaymentRepository(store *Store) domain.PaymentRepository {
	return &paymentRepository{db: store.DB()}
}

func (r *paymentRepository) Create(payment domain.Payment) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (
			id, order_id, method, provider, provider_payment_id, amount_minor,
			status, paid_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		payment.ID, payment.OrderID, string(payment.Method), payment.Provider,
		payment.ProviderPaymentID, payment.AmountMinor, string(payment.Status),
		payment.PaidAt, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("payment id already taken: %s", payment.ID)
		}
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

func (r *paymentRepository) Get(id string) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.scanOne(r.db.QueryRowContext(ctx, selectPaymentSQL+` WHERE id = $1`, id))
}

func (r *paymentRepository) GetByProviderID(provider, providerPaymentID string) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.scanOne(r.db.QueryRowContext(ctx, selectPaymentSQL+`
		WHERE provider = $1 AND provider_payment_id = $2
	`, provider, providerPaymentID))
}

func (r *paymentRepository) ListByOrder(orderID string) ([]domain.Payment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, selectPaymentSQL+`
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}

	return payments, nil
}

func (r *paymentRepository) Save(payment domain.Payment) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $1,
		    provider_payment_id = $2,
		    paid_at = $3,
		    updated_at = $4
		WHERE id = $5
	`,
		string(payment.Status), payment.ProviderPaymentID,
		payment.PaidAt, payment.UpdatedAt, payment.ID,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrPaymentNotFound
	}

	return nil
}

const selectPaymentSQL = `
	SELECT id, order_id, method, provider, provider_payment_id, amount_minor,
	       status, paid_at, created_at, updated_at
	FROM payments
`

func (r *paymentRepository) scanOne(row rowScanner) (domain.Payment, error) {
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, err
	}
	return payment, nil
}

func scanPayment(row rowScanner) (domain.Payment, error) {
	var (
		payment domain.Payment
		method  string
		status  string
		paidAt  sql.NullTime
	)

	if err := row.Scan(
		&payment.ID, &payment.OrderID, &method, &payment.Provider,
		&payment.ProviderPaymentID, &payment.AmountMinor, &status,
		&paidAt, &payment.CreatedAt, &payment.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, err
		}
		return domain.Payment{}, fmt.Errorf("scan payment row: %w", err)
	}

	payment.Method = domain.PaymentMethod(method)
	payment.Status = domain.PaymentStatus(status)
	if paidAt.Valid {
		t := paidAt.Time.UTC()
		payment.PaidAt = &t
	}
	return payment, nil
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
