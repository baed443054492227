package coupon

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kainapp/backend-kain/internal/pricing"
)

// Record is a stored coupon row.
type Record struct {
	ID uuid.UUID
	Coupon
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PgStore persists coupons and their usage in Postgres.
type PgStore struct {
	Pool *pgxpool.Pool
}

const couponColumns = `id, code, kind, value, percent_bps, min_order, max_discount,
	usage_limit, used_count, per_user_limit, valid_from, valid_until, active, created_at, updated_at`

func scanCoupon(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID, &rec.Code, &rec.Kind, &rec.Value, &rec.PercentBps, &rec.MinOrder,
		&rec.MaxDiscount, &rec.UsageLimit, &rec.UsedCount, &rec.PerUserLimit,
		&rec.ValidFrom, &rec.ValidUntil, &rec.Active, &rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}

// GetByCode loads a coupon by its code.
func (s *PgStore) GetByCode(ctx context.Context, code string) (Record, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code)
	rec, err := scanCoupon(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// CountUsageByUser returns how many settled orders of the user consumed the coupon.
func (s *PgStore) CountUsageByUser(ctx context.Context, couponID, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM coupon_usage WHERE coupon_id = $1 AND user_id = $2`,
		couponID, userID).Scan(&count)
	return count, err
}

// InsertUsage records one settled usage per order. It reports whether a row
// was inserted; a duplicate order settles as a no-op.
func (s *PgStore) InsertUsage(ctx context.Context, couponID, orderID uuid.UUID, userID *uuid.UUID, amount pricing.Money) (bool, error) {
	tag, err := s.Pool.Exec(ctx,
		`INSERT INTO coupon_usage (coupon_id, order_id, user_id, amount)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (coupon_id, order_id) DO NOTHING`,
		couponID, orderID, userID, amount)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// IncrementUsedCount bumps the coupon's global usage counter.
func (s *PgStore) IncrementUsedCount(ctx context.Context, id uuid.UUID) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE coupons SET used_count = used_count + 1, updated_at = now() WHERE id = $1`, id)
	return err
}

// Create inserts a new coupon.
func (s *PgStore) Create(ctx context.Context, c Coupon) (Record, error) {
	row := s.Pool.QueryRow(ctx,
		`INSERT INTO coupons (code, kind, value, percent_bps, min_order, max_discount,
			usage_limit, per_user_limit, valid_from, valid_until, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+couponColumns,
		c.Code, c.Kind, c.Value, c.PercentBps, c.MinOrder, c.MaxDiscount,
		c.UsageLimit, c.PerUserLimit, c.ValidFrom, c.ValidUntil, c.Active)
	return scanCoupon(row)
}

// Update replaces all mutable fields of the coupon identified by its code.
func (s *PgStore) Update(ctx context.Context, c Coupon) (Record, error) {
	row := s.Pool.QueryRow(ctx,
		`UPDATE coupons SET kind = $2, value = $3, percent_bps = $4, min_order = $5,
			max_discount = $6, usage_limit = $7, per_user_limit = $8,
			valid_from = $9, valid_until = $10, active = $11, updated_at = now()
		 WHERE code = $1
		 RETURNING `+couponColumns,
		c.Code, c.Kind, c.Value, c.PercentBps, c.MinOrder, c.MaxDiscount,
		c.UsageLimit, c.PerUserLimit, c.ValidFrom, c.ValidUntil, c.Active)
	rec, err := scanCoupon(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}
