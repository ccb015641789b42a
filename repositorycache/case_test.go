package repositorycache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"name", "name"},
		{"Name", "name"},
		{"SalePrice", "sale_price"},
		{"salePrice", "sale_price"},
		{"sale_price", "sale_price"},
		{"sale-price", "sale_price"},
		{"  Sale Price ", "sale_price"},
		{"__name", "name"},
		{"ArrivalDate", "arrival_date"},
		{"DisplayCODE", "display_code"},
		{"HTTPServer", "http_server"},
		{"wholesale__price", "wholesale_price"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, toSnake(tt.in))
		})
	}
}
