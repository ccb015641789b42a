package testsupport

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/pkg/clock"
)

//go:embed testdata/products.json
var productsJSON []byte

// ProductFixture is the JSON shape of a fixture product. Dates are given as
// offsets from the clock passed to Build so fixtures never go stale.
type ProductFixture struct {
	ID             uuid.UUID       `json:"id"`
	DisplayCode    string          `json:"display_code"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	WholesalePrice decimal.Decimal `json:"wholesale_price"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	Quantity       int             `json:"quantity"`
	Barcode        string          `json:"barcode"`
	Unit           catalog.Unit    `json:"unit"`
	SupplierID     *uuid.UUID      `json:"supplier_id"`
	ArrivalOffset  string          `json:"arrival_offset"`
	ShelfLife      string          `json:"shelf_life"`
}

// Build turns the fixture into a valid product.
func (f ProductFixture) Build(clk clock.Clock) (*catalog.Product, error) {
	clk = clock.OrReal(clk)

	offset, err := parseOptionalDuration(f.ArrivalOffset)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: arrival_offset: %w", f.Name, err)
	}
	arrival := clk.Now().Add(offset).Truncate(time.Second)

	b := catalog.NewBuilder().
		WithID(f.ID).
		WithDisplayCode(f.DisplayCode).
		WithName(f.Name).
		WithCategory(f.Category).
		WithWholesalePrice(f.WholesalePrice).
		WithSalePrice(f.SalePrice).
		WithQuantity(f.Quantity).
		WithBarcode(f.Barcode).
		WithUnit(f.Unit).
		WithArrivalDate(arrival).
		WithClock(clk)
	if f.SupplierID != nil {
		b.WithSupplier(*f.SupplierID)
	}

	shelfLife, err := parseOptionalDuration(f.ShelfLife)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: shelf_life: %w", f.Name, err)
	}
	if shelfLife > 0 {
		b.WithExpirationDate(arrival.Add(shelfLife))
	}

	return b.Build()
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Products returns the built-in product fixtures, freshly built.
func Products(t testing.TB, clk clock.Clock) []*catalog.Product {
	t.Helper()

	var doc struct {
		Products []ProductFixture `json:"products"`
	}
	if err := json.Unmarshal(productsJSON, &doc); err != nil {
		t.Fatalf("failed to decode product fixtures: %v", err)
	}

	out := make([]*catalog.Product, 0, len(doc.Products))
	for _, f := range doc.Products {
		p, err := f.Build(clk)
		if err != nil {
			t.Fatalf("failed to build fixture product %q: %v", f.Name, err)
		}
		out = append(out, p)
	}
	return out
}

var displaySeq atomic.Int64

// NewProduct builds a valid product named name with a display code that is
// unique within the test binary. Mutators adjust the builder before Build.
func NewProduct(t testing.TB, name string, mutate ...func(*catalog.Builder)) *catalog.Product {
	t.Helper()

	b := catalog.NewBuilder().
		WithDisplayCode(fmt.Sprintf("%08d", 20_000_000+displaySeq.Add(1))).
		WithName(name).
		WithCategory("General").
		WithWholesalePrice(decimal.RequireFromString("2.00")).
		WithSalePrice(decimal.RequireFromString("3.50")).
		WithQuantity(25).
		WithArrivalDate(time.Now().UTC().Add(-time.Hour).Truncate(time.Second))
	for _, m := range mutate {
		m(b)
	}

	p, err := b.Build()
	if err != nil {
		t.Fatalf("failed to build product %q: %v", name, err)
	}
	return p
}
