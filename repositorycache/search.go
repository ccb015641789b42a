package repositorycache

import (
	"fmt"
	"slices"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/store"
)

// Paging limits for Search.
const (
	DefaultTake = 50
	MaxTake     = 1000
)

// SearchCriteria describes a product search. Nil or blank filters are not
// applied. OrderBy accepts a column name in Go or snake case ("SalePrice",
// "sale_price"); empty orders by name.
type SearchCriteria struct {
	Name       *string
	Category   *string
	SupplierID *uuid.UUID
	Skip       int
	Take       int
	OrderBy    string
	Ascending  bool
}

// DefaultSearchCriteria returns criteria for the first page of every active
// product in ascending name order.
func DefaultSearchCriteria() SearchCriteria {
	return SearchCriteria{Take: DefaultTake, Ascending: true}
}

// Validate checks paging and the order column.
func (c SearchCriteria) Validate() error {
	if c.Skip < 0 {
		return outOfRange("skip", c.Skip, "skip cannot be negative")
	}
	if c.Take < 1 || c.Take > MaxTake {
		return outOfRange("take", c.Take, fmt.Sprintf("take must be between 1 and %d", MaxTake))
	}
	if _, err := orderColumn(c.OrderBy); err != nil {
		return err
	}
	return nil
}

// query converts validated criteria into a store query.
func (c SearchCriteria) query() (store.SearchQuery, error) {
	column, err := orderColumn(c.OrderBy)
	if err != nil {
		return store.SearchQuery{}, err
	}
	return store.SearchQuery{
		Name:       nonBlank(c.Name),
		Category:   nonBlank(c.Category),
		SupplierID: c.SupplierID,
		Skip:       c.Skip,
		Take:       c.Take,
		OrderBy:    column,
		Ascending:  c.Ascending,
	}, nil
}

func orderColumn(orderBy string) (string, error) {
	if strings.TrimSpace(orderBy) == "" {
		return store.SortName, nil
	}
	column := toSnake(orderBy)
	if !slices.Contains(store.SortColumns, column) {
		return "", catalog.NewError(catalog.KindInvalidOrderBy, goerrors.CategoryBadInput,
			fmt.Sprintf("cannot order by %q", orderBy)).
			WithMetadata(map[string]any{"orderBy": orderBy, "allowed": store.SortColumns})
	}
	return column, nil
}

func outOfRange(argument string, value int, message string) error {
	return catalog.NewError(catalog.KindOutOfRange, goerrors.CategoryBadInput, message).
		WithMetadata(map[string]any{"argument": argument, "value": value})
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
