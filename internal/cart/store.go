package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kainapp/backend-kain/internal/pricing"
)

// Cart is the persistent shopping cart header.
type Cart struct {
	ID         uuid.UUID  `json:"id"`
	UserID     *uuid.UUID `json:"userId,omitempty"`
	AnonID     *string    `json:"anonId,omitempty"`
	CouponCode *string    `json:"couponCode,omitempty"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Item is one configured cart line. The price breakdown is locked in at
// add time and recomposed only when the quantity changes.
type Item struct {
	ID         uuid.UUID           `json:"id"`
	CartID     uuid.UUID           `json:"cartId"`
	ProductID  uuid.UUID           `json:"productId"`
	Slug       string              `json:"slug"`
	Title      string              `json:"title"`
	Type       pricing.ProductType `json:"type"`
	Quantity   int                 `json:"quantity"`
	Selections map[string]string   `json:"selections,omitempty"`
	Line       pricing.LineItem    `json:"line"`
}

// PgStore persists carts and their lines.
type PgStore struct {
	Pool *pgxpool.Pool
}

const cartColumns = `id, user_id, anon_id, coupon_code, expires_at, created_at, updated_at`

func scanCart(row pgx.Row) (Cart, error) {
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.AnonID, &c.CouponCode, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const itemColumns = `id, cart_id, product_id, slug, title, product_type, quantity, selections,
	unit_price, line_total, design_component, fabric_component, variant_component`

func scanItem(row pgx.Row) (Item, error) {
	var (
		it  Item
		sel []byte
	)
	err := row.Scan(
		&it.ID,
		&it.CartID,
		&it.ProductID,
		&it.Slug,
		&it.Title,
		&it.Type,
		&it.Quantity,
		&sel,
		&it.Line.UnitPrice,
		&it.Line.LineTotal,
		&it.Line.DesignComponent,
		&it.Line.FabricComponent,
		&it.Line.VariantComponent,
	)
	if err != nil {
		return Item{}, err
	}
	it.Line.Quantity = it.Quantity
	if len(sel) > 0 {
		if err := json.Unmarshal(sel, &it.Selections); err != nil {
			return Item{}, fmt.Errorf("decode selections: %w", err)
		}
	}
	return it, nil
}

func (s *PgStore) GetByID(ctx context.Context, id uuid.UUID) (Cart, error) {
	c, err := scanCart(s.Pool.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, fmt.Errorf("get cart: %w", err)
	}
	return c, nil
}

func (s *PgStore) GetActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (Cart, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT `+cartColumns+` FROM carts
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY updated_at DESC LIMIT 1`, userID, now)
	c, err := scanCart(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, fmt.Errorf("get cart by user: %w", err)
	}
	return c, nil
}

func (s *PgStore) GetActiveByAnon(ctx context.Context, anonID string, now time.Time) (Cart, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT `+cartColumns+` FROM carts
		WHERE anon_id = $1 AND expires_at > $2
		ORDER BY updated_at DESC LIMIT 1`, anonID, now)
	c, err := scanCart(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, fmt.Errorf("get cart by anon id: %w", err)
	}
	return c, nil
}

func (s *PgStore) Create(ctx context.Context, userID *uuid.UUID, anonID *string, expiresAt time.Time) (Cart, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO carts (user_id, anon_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING `+cartColumns, userID, anonID, expiresAt)
	c, err := scanCart(row)
	if err != nil {
		return Cart{}, fmt.Errorf("create cart: %w", err)
	}
	return c, nil
}

func (s *PgStore) Touch(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	_, err := s.Pool.Exec(ctx, `UPDATE carts SET expires_at = $2, updated_at = now() WHERE id = $1`, id, expiresAt)
	return err
}

func (s *PgStore) SetCoupon(ctx context.Context, id uuid.UUID, code *string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE carts SET coupon_code = $2, updated_at = now() WHERE id = $1`, id, code)
	return err
}

func (s *PgStore) ListItems(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+itemColumns+` FROM cart_items WHERE cart_id = $1 ORDER BY created_at`, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *PgStore) GetItem(ctx context.Context, itemID uuid.UUID) (Item, error) {
	it, err := scanItem(s.Pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM cart_items WHERE id = $1`, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, fmt.Errorf("get cart item: %w", err)
	}
	return it, nil
}

// FindItem locates a line with the same product and the same selections.
func (s *PgStore) FindItem(ctx context.Context, cartID, productID uuid.UUID, selections map[string]string) (Item, error) {
	sel, err := encodeSelections(selections)
	if err != nil {
		return Item{}, err
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT `+itemColumns+` FROM cart_items
		WHERE cart_id = $1 AND product_id = $2 AND selections = $3::jsonb`,
		cartID, productID, sel)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, fmt.Errorf("find cart item: %w", err)
	}
	return it, nil
}

func (s *PgStore) InsertItem(ctx context.Context, it Item) (Item, error) {
	sel, err := encodeSelections(it.Selections)
	if err != nil {
		return Item{}, err
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO cart_items (cart_id, product_id, slug, title, product_type, quantity, selections,
			unit_price, line_total, design_component, fabric_component, variant_component)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12)
		RETURNING `+itemColumns,
		it.CartID, it.ProductID, it.Slug, it.Title, it.Type, it.Quantity, sel,
		it.Line.UnitPrice, it.Line.LineTotal, it.Line.DesignComponent, it.Line.FabricComponent, it.Line.VariantComponent)
	inserted, err := scanItem(row)
	if err != nil {
		return Item{}, fmt.Errorf("insert cart item: %w", err)
	}
	return inserted, nil
}

// UpdateItemLine rewrites a line's quantity and locked price breakdown.
func (s *PgStore) UpdateItemLine(ctx context.Context, itemID uuid.UUID, quantity int, line pricing.LineItem) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE cart_items SET quantity = $2, unit_price = $3, line_total = $4,
			design_component = $5, fabric_component = $6, variant_component = $7, updated_at = now()
		WHERE id = $1`,
		itemID, quantity, line.UnitPrice, line.LineTotal, line.DesignComponent, line.FabricComponent, line.VariantComponent)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	return err
}

func encodeSelections(selections map[string]string) ([]byte, error) {
	if selections == nil {
		selections = map[string]string{}
	}
	data, err := json.Marshal(selections)
	if err != nil {
		return nil, fmt.Errorf("encode selections: %w", err)
	}
	return data, nil
}
