package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kainapp/backend-kain/internal/pricing"
)

// ErrNotFound is returned when a product does not exist.
var ErrNotFound = errors.New("product not found")

// PgStore persists products, their variants, and their quantity slabs.
type PgStore struct {
	Pool *pgxpool.Pool
}

const productColumns = `id, slug, title, description, type, base_price, design_price, fabric_id, unit_label, active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.Title,
		&p.Description,
		&p.Type,
		&p.BasePrice,
		&p.DesignPrice,
		&p.FabricID,
		&p.UnitLabel,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// List returns active products without their variant and slab payloads.
func (s *PgStore) List(ctx context.Context) ([]Product, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE active ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetBySlug loads a product with its variants and slabs.
func (s *PgStore) GetBySlug(ctx context.Context, slug string) (Product, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product by slug: %w", err)
	}
	return s.hydrate(ctx, p)
}

// GetByID loads a product with its variants and slabs.
func (s *PgStore) GetByID(ctx context.Context, id uuid.UUID) (Product, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product by id: %w", err)
	}
	return s.hydrate(ctx, p)
}

func (s *PgStore) hydrate(ctx context.Context, p Product) (Product, error) {
	variants, err := s.listVariants(ctx, p.ID)
	if err != nil {
		return Product{}, err
	}
	slabs, err := s.listSlabs(ctx, p.ID)
	if err != nil {
		return Product{}, err
	}
	p.Variants = variants
	p.Slabs = slabs
	return p, nil
}

func (s *PgStore) listVariants(ctx context.Context, productID uuid.UUID) ([]pricing.Variant, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT v.id, v.name, v.unit, o.id, o.value, o.price_modifier
		FROM product_variants v
		JOIN variant_options o ON o.variant_id = v.id
		WHERE v.product_id = $1
		ORDER BY v.position, o.position`, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var out []pricing.Variant
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			variantID uuid.UUID
			name      string
			unit      string
			optionID  uuid.UUID
			opt       pricing.VariantOption
		)
		if err := rows.Scan(&variantID, &name, &unit, &optionID, &opt.Value, &opt.PriceModifier); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		opt.ID = optionID.String()
		i, ok := index[variantID]
		if !ok {
			out = append(out, pricing.Variant{ID: variantID.String(), Name: name, Unit: unit})
			i = len(out) - 1
			index[variantID] = i
		}
		out[i].Options = append(out[i].Options, opt)
	}
	return out, rows.Err()
}

func (s *PgStore) listSlabs(ctx context.Context, productID uuid.UUID) ([]pricing.Slab, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT min_quantity, max_quantity, kind, value, percent_bps, price_per_meter
		FROM pricing_slabs
		WHERE product_id = $1
		ORDER BY min_quantity, id`, productID)
	if err != nil {
		return nil, fmt.Errorf("list slabs: %w", err)
	}
	defer rows.Close()

	var out []pricing.Slab
	for rows.Next() {
		var slab pricing.Slab
		if err := rows.Scan(&slab.MinQuantity, &slab.MaxQuantity, &slab.Kind, &slab.Value, &slab.PercentBps, &slab.PricePerMeter); err != nil {
			return nil, fmt.Errorf("scan slab: %w", err)
		}
		out = append(out, slab)
	}
	return out, rows.Err()
}

// Create inserts a product with its variants and slabs in one transaction.
func (s *PgStore) Create(ctx context.Context, p Product) (Product, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Product{}, fmt.Errorf("begin create product: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO products (slug, title, description, type, base_price, design_price, fabric_id, unit_label, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+productColumns,
		p.Slug, p.Title, p.Description, p.Type, p.BasePrice, p.DesignPrice, p.FabricID, p.UnitLabel, p.Active)
	created, err := scanProduct(row)
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}

	for vi, v := range p.Variants {
		var variantID uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO product_variants (product_id, name, unit, position)
			VALUES ($1, $2, $3, $4) RETURNING id`,
			created.ID, v.Name, v.Unit, vi).Scan(&variantID)
		if err != nil {
			return Product{}, fmt.Errorf("insert variant: %w", err)
		}
		for oi, o := range v.Options {
			_, err := tx.Exec(ctx, `
				INSERT INTO variant_options (variant_id, value, price_modifier, position)
				VALUES ($1, $2, $3, $4)`,
				variantID, o.Value, o.PriceModifier, oi)
			if err != nil {
				return Product{}, fmt.Errorf("insert variant option: %w", err)
			}
		}
	}
	if err := insertSlabs(ctx, tx, created.ID, p.Slabs); err != nil {
		return Product{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Product{}, fmt.Errorf("commit create product: %w", err)
	}
	created.Variants = p.Variants
	created.Slabs = p.Slabs
	return created, nil
}

// ReplaceSlabs swaps a product's slab set atomically.
func (s *PgStore) ReplaceSlabs(ctx context.Context, productID uuid.UUID, slabs []pricing.Slab) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace slabs: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM pricing_slabs WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("clear slabs: %w", err)
	}
	if err := insertSlabs(ctx, tx, productID, slabs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertSlabs(ctx context.Context, tx pgx.Tx, productID uuid.UUID, slabs []pricing.Slab) error {
	for _, slab := range slabs {
		_, err := tx.Exec(ctx, `
			INSERT INTO pricing_slabs (product_id, min_quantity, max_quantity, kind, value, percent_bps, price_per_meter)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			productID, slab.MinQuantity, slab.MaxQuantity, slab.Kind, slab.Value, slab.PercentBps, slab.PricePerMeter)
		if err != nil {
			return fmt.Errorf("insert slab: %w", err)
		}
	}
	return nil
}
