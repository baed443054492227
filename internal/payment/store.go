package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kainapp/backend-kain/internal/pricing"
)

// ErrNotFound is returned when a payment record does not exist.
var ErrNotFound = errors.New("payment not found")

// Record is a persisted payment intent.
type Record struct {
	ID          uuid.UUID     `json:"id"`
	OrderID     uuid.UUID     `json:"orderId"`
	Provider    string        `json:"provider"`
	ProviderRef string        `json:"providerRef"`
	Amount      pricing.Money `json:"amount"`
	Currency    string        `json:"currency"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// PgStore persists payment intents.
type PgStore struct {
	Pool *pgxpool.Pool
}

const paymentColumns = `id, order_id, provider, provider_ref, amount, currency, status, created_at, updated_at`

func scanPayment(row pgx.Row) (Record, error) {
	var p Record
	err := row.Scan(&p.ID, &p.OrderID, &p.Provider, &p.ProviderRef, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *PgStore) Insert(ctx context.Context, p Record) (Record, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO payments (order_id, provider, provider_ref, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+paymentColumns,
		p.OrderID, p.Provider, p.ProviderRef, p.Amount, p.Currency, p.Status)
	created, err := scanPayment(row)
	if err != nil {
		return Record{}, fmt.Errorf("insert payment: %w", err)
	}
	return created, nil
}

// GetLatestByOrder returns the most recent intent for an order.
func (s *PgStore) GetLatestByOrder(ctx context.Context, orderID uuid.UUID) (Record, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`, orderID)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("get payment by order: %w", err)
	}
	return p, nil
}

// SetStatusByOrder transitions every open intent for an order.
func (s *PgStore) SetStatusByOrder(ctx context.Context, orderID uuid.UUID, status string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE payments SET status = $2, updated_at = now()
		WHERE order_id = $1 AND status = $3`, orderID, status, StatusPending)
	if err != nil {
		return fmt.Errorf("set payment status: %w", err)
	}
	return nil
}
