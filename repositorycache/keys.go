package repositorycache

import (
	"github.com/google/uuid"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
)

// Key prefixes. Other producers sharing the cache build the same keys, so
// these strings must not change.
const (
	PrefixProductID      = "Product_Id"
	PrefixProductBarcode = "Product_Barcode"
	PrefixProductsName   = "Products_Name"
	PrefixExistsID       = "Exists_Id"
	PrefixExistsBarcode  = "Exists_Barcode"
	PrefixSearch         = "Search"
	KeyAllProducts       = "AllProducts"
)

// Keys builds cache keys.
type Keys struct {
	serializer cache.KeySerializer
}

// NewKeys returns a Keys using serializer, or the default serializer when
// serializer is nil.
func NewKeys(serializer cache.KeySerializer) Keys {
	if serializer == nil {
		serializer = cache.NewDefaultKeySerializer()
	}
	return Keys{serializer: serializer}
}

func (k Keys) ProductID(id uuid.UUID) string {
	return k.serializer.SerializeKey(PrefixProductID, id)
}

func (k Keys) ProductBarcode(code string) string {
	return k.serializer.SerializeKey(PrefixProductBarcode, code)
}

func (k Keys) ProductsName(name string) string {
	return k.serializer.SerializeKey(PrefixProductsName, name)
}

func (k Keys) ExistsID(id uuid.UUID) string {
	return k.serializer.SerializeKey(PrefixExistsID, id)
}

func (k Keys) ExistsBarcode(code string) string {
	return k.serializer.SerializeKey(PrefixExistsBarcode, code)
}

func (k Keys) AllProducts() string {
	return k.serializer.SerializeKey(KeyAllProducts)
}

// Search renders the criteria as given by the caller, before the order
// column is normalised, so equal requests from any producer share a key.
func (k Keys) Search(c SearchCriteria) string {
	return k.serializer.SerializeKey(PrefixSearch,
		c.Name,
		c.Category,
		c.SupplierID,
		c.Skip,
		c.Take,
		c.OrderBy,
		c.Ascending,
	)
}

// ForProduct returns every key that can describe p: the list key, its id
// and name keys, the id existence key and, when p has a barcode, both
// barcode keys.
func (k Keys) ForProduct(p *catalog.Product) []string {
	keys := []string{
		k.AllProducts(),
		k.ProductID(p.ID()),
		k.ProductsName(p.Name()),
		k.ExistsID(p.ID()),
	}
	if p.HasBarcode() {
		code := p.Barcode().String()
		keys = append(keys, k.ProductBarcode(code), k.ExistsBarcode(code))
	}
	return keys
}
