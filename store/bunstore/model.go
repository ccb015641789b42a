package bunstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-catalog-cache/catalog"
)

type productRow struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID             uuid.UUID       `bun:"id,pk,type:varchar(36)"`
	DisplayCode    string          `bun:"display_code,notnull,unique,type:varchar(8)"`
	Name           string          `bun:"name,notnull,type:varchar(200)"`
	Category       string          `bun:"category,notnull,type:varchar(100)"`
	WholesalePrice decimal.Decimal `bun:"wholesale_price,notnull,type:numeric(12,2)"`
	SalePrice      decimal.Decimal `bun:"sale_price,notnull,type:numeric(12,2)"`
	Quantity       int             `bun:"quantity,notnull"`
	Barcode        *string         `bun:"barcode,unique,type:varchar(13)"`
	Unit           int16           `bun:"unit,notnull"`
	SupplierID     *uuid.UUID      `bun:"supplier_id,type:varchar(36)"`
	ManufacturerID *uuid.UUID      `bun:"manufacturer_id,type:varchar(36)"`
	ArrivalDate    time.Time       `bun:"arrival_date,notnull"`
	ExpirationDate *time.Time      `bun:"expiration_date"`
	IsDeleted      bool            `bun:"is_deleted,notnull"`
	IsArchived     bool            `bun:"is_archived,notnull"`
	Version        int64           `bun:"version,notnull"`
}

func rowFromProduct(p *catalog.Product) *productRow {
	s := p.Snapshot()

	var barcode *string
	if s.Barcode != "" {
		code := s.Barcode
		barcode = &code
	}

	return &productRow{
		ID:             s.ID,
		DisplayCode:    s.DisplayCode,
		Name:           s.Name,
		Category:       s.Category,
		WholesalePrice: s.WholesalePrice,
		SalePrice:      s.SalePrice,
		Quantity:       s.Quantity,
		Barcode:        barcode,
		Unit:           int16(s.Unit),
		SupplierID:     s.SupplierID,
		ManufacturerID: s.ManufacturerID,
		ArrivalDate:    s.ArrivalDate.UTC(),
		ExpirationDate: utc(s.ExpirationDate),
		IsDeleted:      s.IsDeleted,
		IsArchived:     s.IsArchived,
		Version:        int64(s.Version),
	}
}

func (r *productRow) snapshot() catalog.Snapshot {
	var barcode string
	if r.Barcode != nil {
		barcode = *r.Barcode
	}

	return catalog.Snapshot{
		ID:             r.ID,
		DisplayCode:    r.DisplayCode,
		Name:           r.Name,
		Category:       r.Category,
		WholesalePrice: r.WholesalePrice,
		SalePrice:      r.SalePrice,
		Quantity:       r.Quantity,
		Barcode:        barcode,
		Unit:           catalog.Unit(r.Unit),
		SupplierID:     r.SupplierID,
		ManufacturerID: r.ManufacturerID,
		ArrivalDate:    r.ArrivalDate.UTC(),
		ExpirationDate: utc(r.ExpirationDate),
		IsDeleted:      r.IsDeleted,
		IsArchived:     r.IsArchived,
		Version:        catalog.VersionToken(r.Version),
	}
}

// utc stores and reads every timestamp in UTC whatever the driver or the
// process time zone does with it.
func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
