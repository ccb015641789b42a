package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-catalog-cache/pkg/clock"
)

// VersionToken is the optimistic concurrency token assigned by the store.
// Domain logic never inspects it.
type VersionToken int64

// Product is the aggregate under management. Every mutation goes through a
// setter that validates its own field; cross-field rules are re-checked by
// ValidateInvariant.
type Product struct {
	id             uuid.UUID
	displayCode    string
	name           string
	category       string
	wholesalePrice decimal.Decimal
	salePrice      decimal.Decimal
	quantity       int
	barcode        Barcode
	unit           Unit
	supplierID     *uuid.UUID
	manufacturerID *uuid.UUID
	arrivalDate    time.Time
	expirationDate *time.Time
	isDeleted      bool
	isArchived     bool
	version        VersionToken

	clock clock.Clock
}

// Snapshot is a plain copy of a product's state, used for persistence,
// caching and fixtures.
type Snapshot struct {
	ID             uuid.UUID       `json:"id"`
	DisplayCode    string          `json:"display_code"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	WholesalePrice decimal.Decimal `json:"wholesale_price"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	Quantity       int             `json:"quantity"`
	Barcode        string          `json:"barcode,omitempty"`
	Unit           Unit            `json:"unit"`
	SupplierID     *uuid.UUID      `json:"supplier_id,omitempty"`
	ManufacturerID *uuid.UUID      `json:"manufacturer_id,omitempty"`
	ArrivalDate    time.Time       `json:"arrival_date"`
	ExpirationDate *time.Time      `json:"expiration_date,omitempty"`
	IsDeleted      bool            `json:"is_deleted"`
	IsArchived     bool            `json:"is_archived"`
	Version        VersionToken    `json:"version"`
}

// Rehydrate reconstitutes a product from persisted state without running
// validation. A nil clock uses the system clock.
func Rehydrate(s Snapshot, clk clock.Clock) *Product {
	return &Product{
		id:             s.ID,
		displayCode:    s.DisplayCode,
		name:           s.Name,
		category:       s.Category,
		wholesalePrice: s.WholesalePrice,
		salePrice:      s.SalePrice,
		quantity:       s.Quantity,
		barcode:        Barcode{value: s.Barcode},
		unit:           s.Unit,
		supplierID:     copyUUID(s.SupplierID),
		manufacturerID: copyUUID(s.ManufacturerID),
		arrivalDate:    s.ArrivalDate,
		expirationDate: copyTime(s.ExpirationDate),
		isDeleted:      s.IsDeleted,
		isArchived:     s.IsArchived,
		version:        s.Version,
		clock:          clock.OrReal(clk),
	}
}

// Getters
func (p *Product) ID() uuid.UUID                   { return p.id }
func (p *Product) DisplayCode() string             { return p.displayCode }
func (p *Product) Name() string                    { return p.name }
func (p *Product) Category() string                { return p.category }
func (p *Product) WholesalePrice() decimal.Decimal { return p.wholesalePrice }
func (p *Product) SalePrice() decimal.Decimal      { return p.salePrice }
func (p *Product) Quantity() int                   { return p.quantity }
func (p *Product) Barcode() Barcode                { return p.barcode }
func (p *Product) HasBarcode() bool                { return !p.barcode.IsZero() }
func (p *Product) Unit() Unit                      { return p.unit }
func (p *Product) SupplierID() *uuid.UUID          { return copyUUID(p.supplierID) }
func (p *Product) ManufacturerID() *uuid.UUID      { return copyUUID(p.manufacturerID) }
func (p *Product) ArrivalDate() time.Time          { return p.arrivalDate }
func (p *Product) ExpirationDate() *time.Time      { return copyTime(p.expirationDate) }
func (p *Product) IsDeleted() bool                 { return p.isDeleted }
func (p *Product) IsArchived() bool                { return p.isArchived }
func (p *Product) Version() VersionToken           { return p.version }

// SetVersion records the token assigned by the store after a write.
func (p *Product) SetVersion(v VersionToken) { p.version = v }

// SetName trims and validates the product name.
func (p *Product) SetName(name string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	p.name = name
	return nil
}

// SetCategory trims and validates the product category.
func (p *Product) SetCategory(category string) error {
	category = strings.TrimSpace(category)
	if err := validateCategory(category); err != nil {
		return err
	}
	p.category = category
	return nil
}

// SetWholesalePrice validates the wholesale price against field rules only.
// Ordering against the sale price is enforced by SetSalePrice and
// ValidateInvariant.
func (p *Product) SetWholesalePrice(price decimal.Decimal) error {
	if err := validatePrice(FieldWholesalePrice, price); err != nil {
		return err
	}
	p.wholesalePrice = price
	return nil
}

// SetSalePrice validates the sale price, including that it is not lower than
// the current wholesale price.
func (p *Product) SetSalePrice(price decimal.Decimal) error {
	if err := validateSalePrice(price, p.wholesalePrice); err != nil {
		return err
	}
	p.salePrice = price
	return nil
}

// SetQuantity replaces the stock quantity.
func (p *Product) SetQuantity(quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	p.quantity = quantity
	return nil
}

// ReduceQuantity removes amount units from stock. The quantity is left
// untouched when there is not enough stock.
func (p *Product) ReduceQuantity(amount int) error {
	if amount <= 0 {
		return NewValidationError(KindInvalidQuantity, FieldQuantity, amount, "amount must be positive")
	}
	if amount > p.quantity {
		return NewValidationError(KindNotEnoughStock, FieldQuantity, amount, "not enough stock")
	}
	p.quantity -= amount
	return nil
}

// IncreaseQuantity adds amount units to stock.
func (p *Product) IncreaseQuantity(amount int) error {
	if amount <= 0 {
		return NewValidationError(KindInvalidQuantity, FieldQuantity, amount, "amount must be positive")
	}
	if err := validateQuantity(p.quantity + amount); err != nil {
		return err
	}
	p.quantity += amount
	return nil
}

// SetBarcode parses and assigns an EAN-13 barcode. An empty code clears it.
func (p *Product) SetBarcode(code string) error {
	if code == "" {
		p.barcode = Barcode{}
		return nil
	}
	barcode, err := NewBarcode(code)
	if err != nil {
		return err
	}
	p.barcode = barcode
	return nil
}

// SetUnit assigns the unit of measure.
func (p *Product) SetUnit(unit Unit) error {
	if err := validateUnit(unit); err != nil {
		return err
	}
	p.unit = unit
	return nil
}

// SetSupplier references a supplier by id; nil clears the reference.
func (p *Product) SetSupplier(id *uuid.UUID) error {
	if err := validateReference(FieldSupplier, id); err != nil {
		return err
	}
	p.supplierID = copyUUID(id)
	return nil
}

// SetManufacturer references a manufacturer by id; nil clears the reference.
func (p *Product) SetManufacturer(id *uuid.UUID) error {
	if err := validateReference(FieldManufacturer, id); err != nil {
		return err
	}
	p.manufacturerID = copyUUID(id)
	return nil
}

// SetArrivalDate replaces the arrival date. It must not be in the future.
func (p *Product) SetArrivalDate(arrival time.Time) error {
	if err := validateArrivalDate(arrival, p.clock.Now()); err != nil {
		return err
	}
	p.arrivalDate = arrival
	return nil
}

// SetExpirationDate replaces the expiration date; nil clears it. A date must
// fall within the shelf-life window that starts at the arrival date.
func (p *Product) SetExpirationDate(expiration *time.Time) error {
	if err := validateExpirationDate(expiration, p.arrivalDate); err != nil {
		return err
	}
	p.expirationDate = copyTime(expiration)
	return nil
}

// MarkAsDeleted soft-deletes the product.
func (p *Product) MarkAsDeleted() {
	p.isDeleted = true
}

// MarkAsArchived archives the product. The product must already be deleted;
// that precondition is enforced by ValidateInvariant, which the repository
// runs before every persist.
func (p *Product) MarkAsArchived() {
	p.isArchived = true
}

// ValidateInvariant checks every field rule and every cross-field rule and
// returns the first violation found.
func (p *Product) ValidateInvariant() error {
	checks := []func() error{
		func() error { return validateID(p.id) },
		func() error { return validateDisplayCode(p.displayCode) },
		func() error { return validateName(p.name) },
		func() error { return validateCategory(p.category) },
		func() error { return validatePrice(FieldWholesalePrice, p.wholesalePrice) },
		func() error { return validateSalePrice(p.salePrice, p.wholesalePrice) },
		func() error { return validateQuantity(p.quantity) },
		func() error { return validateBarcode(p.barcode) },
		func() error { return validateUnit(p.unit) },
		func() error { return validateReference(FieldSupplier, p.supplierID) },
		func() error { return validateReference(FieldManufacturer, p.manufacturerID) },
		func() error { return validateArrivalDate(p.arrivalDate, p.clock.Now()) },
		func() error { return validateExpirationDate(p.expirationDate, p.arrivalDate) },
		p.validateState,
	}

	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Product) validateState() error {
	if p.isArchived && !p.isDeleted {
		return NewValidationError(KindInvalidStateTransition, FieldState, "archived", "an archived product must be deleted first")
	}
	return nil
}

func validateBarcode(b Barcode) error {
	if b.IsZero() {
		return nil
	}
	_, err := NewBarcode(b.value)
	return err
}

// Snapshot returns a copy of the product state.
func (p *Product) Snapshot() Snapshot {
	return Snapshot{
		ID:             p.id,
		DisplayCode:    p.displayCode,
		Name:           p.name,
		Category:       p.category,
		WholesalePrice: p.wholesalePrice,
		SalePrice:      p.salePrice,
		Quantity:       p.quantity,
		Barcode:        p.barcode.value,
		Unit:           p.unit,
		SupplierID:     copyUUID(p.supplierID),
		ManufacturerID: copyUUID(p.manufacturerID),
		ArrivalDate:    p.arrivalDate,
		ExpirationDate: copyTime(p.expirationDate),
		IsDeleted:      p.isDeleted,
		IsArchived:     p.isArchived,
		Version:        p.version,
	}
}

// Clone returns a deep copy of the product sharing only its clock.
func (p *Product) Clone() *Product {
	return Rehydrate(p.Snapshot(), p.clock)
}

func copyUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
