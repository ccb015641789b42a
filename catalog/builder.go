package catalog

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-catalog-cache/pkg/clock"
)

// Builder assembles a Product. Build assigns defaults for the fields left
// unset and validates the full invariant before returning.
type Builder struct {
	id             uuid.UUID
	displayCode    string
	name           string
	category       string
	wholesalePrice decimal.Decimal
	salePrice      decimal.Decimal
	quantity       int
	barcode        string
	unit           Unit
	supplierID     *uuid.UUID
	manufacturerID *uuid.UUID
	arrivalDate    time.Time
	expirationDate *time.Time
	clock          clock.Clock
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{unit: UnitPiece}
}

func (b *Builder) WithID(id uuid.UUID) *Builder {
	b.id = id
	return b
}

func (b *Builder) WithDisplayCode(code string) *Builder {
	b.displayCode = code
	return b
}

func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

func (b *Builder) WithCategory(category string) *Builder {
	b.category = category
	return b
}

func (b *Builder) WithWholesalePrice(price decimal.Decimal) *Builder {
	b.wholesalePrice = price
	return b
}

func (b *Builder) WithSalePrice(price decimal.Decimal) *Builder {
	b.salePrice = price
	return b
}

func (b *Builder) WithQuantity(quantity int) *Builder {
	b.quantity = quantity
	return b
}

func (b *Builder) WithBarcode(code string) *Builder {
	b.barcode = code
	return b
}

func (b *Builder) WithUnit(unit Unit) *Builder {
	b.unit = unit
	return b
}

func (b *Builder) WithSupplier(id uuid.UUID) *Builder {
	b.supplierID = &id
	return b
}

func (b *Builder) WithManufacturer(id uuid.UUID) *Builder {
	b.manufacturerID = &id
	return b
}

func (b *Builder) WithArrivalDate(arrival time.Time) *Builder {
	b.arrivalDate = arrival
	return b
}

func (b *Builder) WithExpirationDate(expiration time.Time) *Builder {
	b.expirationDate = &expiration
	return b
}

// WithClock sets the clock used for the arrival default and for every later
// "not in the future" check on the built product.
func (b *Builder) WithClock(clk clock.Clock) *Builder {
	b.clock = clk
	return b
}

// Build creates the product. Defaults: a random id, a display code derived
// from the id, unit Piece and arrival at the current time.
func (b *Builder) Build() (*Product, error) {
	clk := clock.OrReal(b.clock)

	id := b.id
	if id == uuid.Nil {
		id = uuid.New()
	}

	displayCode := b.displayCode
	if displayCode == "" {
		displayCode = DisplayCodeFromID(id)
	}

	arrival := b.arrivalDate
	if arrival.IsZero() {
		arrival = clk.Now()
	}

	p := &Product{
		id:             id,
		displayCode:    displayCode,
		name:           strings.TrimSpace(b.name),
		category:       strings.TrimSpace(b.category),
		wholesalePrice: b.wholesalePrice,
		salePrice:      b.salePrice,
		quantity:       b.quantity,
		unit:           b.unit,
		supplierID:     copyUUID(b.supplierID),
		manufacturerID: copyUUID(b.manufacturerID),
		arrivalDate:    arrival,
		expirationDate: copyTime(b.expirationDate),
		clock:          clk,
	}

	if err := p.SetBarcode(b.barcode); err != nil {
		return nil, err
	}
	if err := p.ValidateInvariant(); err != nil {
		return nil, err
	}
	return p, nil
}

// DisplayCodeFromID derives a stable 8 digit display code from an id.
func DisplayCodeFromID(id uuid.UUID) string {
	n := binary.BigEndian.Uint64(id[:8]) % 100_000_000
	return fmt.Sprintf("%08d", n)
}
