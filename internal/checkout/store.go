package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kainapp/backend-kain/internal/cart"
	"github.com/kainapp/backend-kain/internal/gateway"
	"github.com/kainapp/backend-kain/internal/pricing"
)

// ErrOrderNotFound is returned when an order does not exist.
var ErrOrderNotFound = errors.New("order not found")

// Order statuses.
const (
	StatusPendingPayment = "PENDING_PAYMENT"
	StatusConfirmed      = "CONFIRMED"
	StatusPaid           = "PAID"
	StatusCancelled      = "CANCELLED"
)

// Address is the shipping destination, serialised verbatim onto the order.
type Address struct {
	ReceiverName string `json:"receiverName"`
	Phone        string `json:"phone"`
	Country      string `json:"country" validate:"required,len=2"`
	State        string `json:"state"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
}

// Order is a placed order with its locked totals.
type Order struct {
	ID         uuid.UUID           `json:"id"`
	UserID     *uuid.UUID          `json:"userId,omitempty"`
	CartID     uuid.UUID           `json:"cartId"`
	Status     string              `json:"status"`
	Currency   string              `json:"currency"`
	Gateway    gateway.Gateway     `json:"gateway"`
	CouponCode *string             `json:"couponCode,omitempty"`
	Totals     pricing.OrderTotals `json:"totals"`

	// AdvanceDue is the online portion collected up front for PARTIAL_COD
	// orders; zero for every other gateway.
	AdvanceDue pricing.Money `json:"advanceDue"`

	Address   Address   `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

// PgStore persists orders and their lines.
type PgStore struct {
	Pool *pgxpool.Pool
}

const orderColumns = `id, user_id, cart_id, status, currency, gateway, coupon_code,
	subtotal, discount, gst, shipping, cod_charge, grand_total, advance_due, address, created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o    Order
		addr []byte
	)
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.CartID,
		&o.Status,
		&o.Currency,
		&o.Gateway,
		&o.CouponCode,
		&o.Totals.Subtotal,
		&o.Totals.Discount,
		&o.Totals.GST,
		&o.Totals.Shipping,
		&o.Totals.CODCharge,
		&o.Totals.GrandTotal,
		&o.AdvanceDue,
		&addr,
		&o.CreatedAt,
	)
	if err != nil {
		return Order{}, err
	}
	if len(addr) > 0 {
		if err := json.Unmarshal(addr, &o.Address); err != nil {
			return Order{}, fmt.Errorf("decode address: %w", err)
		}
	}
	return o, nil
}

// CreateOrder snapshots the cart lines into an order in one transaction.
// The cart is closed by expiring it so the same lines cannot be ordered
// twice.
func (s *PgStore) CreateOrder(ctx context.Context, o Order, items []cart.Item) (Order, error) {
	addr, err := json.Marshal(o.Address)
	if err != nil {
		return Order{}, fmt.Errorf("encode address: %w", err)
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, cart_id, status, currency, gateway, coupon_code,
			subtotal, discount, gst, shipping, cod_charge, grand_total, advance_due, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::jsonb)
		RETURNING `+orderColumns,
		o.UserID, o.CartID, o.Status, o.Currency, o.Gateway, o.CouponCode,
		o.Totals.Subtotal, o.Totals.Discount, o.Totals.GST, o.Totals.Shipping,
		o.Totals.CODCharge, o.Totals.GrandTotal, o.AdvanceDue, addr)
	created, err := scanOrder(row)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	for _, it := range items {
		sel, err := json.Marshal(it.Selections)
		if err != nil {
			return Order{}, fmt.Errorf("encode selections: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, slug, title, product_type, quantity, selections,
				unit_price, line_total, design_component, fabric_component, variant_component)
			VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12)`,
			created.ID, it.ProductID, it.Slug, it.Title, it.Type, it.Quantity, sel,
			it.Line.UnitPrice, it.Line.LineTotal, it.Line.DesignComponent, it.Line.FabricComponent, it.Line.VariantComponent)
		if err != nil {
			return Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE carts SET expires_at = now(), updated_at = now() WHERE id = $1`, o.CartID); err != nil {
		return Order{}, fmt.Errorf("close cart: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("commit create order: %w", err)
	}
	return created, nil
}

// GetOrder loads one order.
func (s *PgStore) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	o, err := scanOrder(s.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// SetStatus transitions an order.
func (s *PgStore) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
