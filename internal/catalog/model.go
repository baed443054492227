package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/kainapp/backend-kain/internal/pricing"
)

// Product is a sellable item: plain fabric sold by the meter, a designed
// print bound to a fabric, a made-to-order custom piece, or a digital
// download.
type Product struct {
	ID          uuid.UUID           `json:"id"`
	Slug        string              `json:"slug"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Type        pricing.ProductType `json:"type"`

	// BasePrice is the fabric per-unit price for PLAIN products and the
	// design charge baseline for DIGITAL ones.
	BasePrice   pricing.Money `json:"basePrice"`
	DesignPrice pricing.Money `json:"designPrice,omitempty"`

	// FabricID links DESIGNED and CUSTOM products to the PLAIN product
	// whose material they are printed on.
	FabricID *uuid.UUID `json:"fabricId,omitempty"`

	// UnitLabel is the selling unit shown to buyers, e.g. "meter".
	UnitLabel string `json:"unitLabel"`

	Variants []pricing.Variant `json:"variants"`
	Slabs    []pricing.Slab    `json:"slabs"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListItem is the compact listing payload.
type ListItem struct {
	ID        uuid.UUID           `json:"id"`
	Slug      string              `json:"slug"`
	Title     string              `json:"title"`
	Type      pricing.ProductType `json:"type"`
	BasePrice pricing.Money       `json:"basePrice"`
	UnitLabel string              `json:"unitLabel"`
	Display   string              `json:"display,omitempty"`
}

// SlabPreview shows buyers what each quantity tier costs per unit.
type SlabPreview struct {
	MinQuantity int           `json:"minQuantity"`
	MaxQuantity *int          `json:"maxQuantity,omitempty"`
	UnitPrice   pricing.Money `json:"unitPrice"`
}

// Detail is the full product payload including tier previews.
type Detail struct {
	Product
	SlabPreviews []SlabPreview `json:"slabPreviews,omitempty"`
	Display      string        `json:"display,omitempty"`
}

// QuoteRequest asks for a line price for a concrete configuration.
type QuoteRequest struct {
	Quantity   int               `json:"quantity" validate:"required,gte=1"`
	Selections map[string]string `json:"selections"`
	Currency   string            `json:"currency"`
}

// Quote is the composed line price for a QuoteRequest.
type Quote struct {
	Slug     string           `json:"slug"`
	Quantity int              `json:"quantity"`
	Line     pricing.LineItem `json:"line"`
	Display  string           `json:"display,omitempty"`
}
