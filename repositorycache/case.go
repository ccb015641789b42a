package repositorycache

import (
	"strings"
	"unicode"
)

// toSnake lower-cases s and separates words with a single underscore.
// Word boundaries are case changes (SalePrice, salePrice), spaces, dashes
// and underscores, so "SalePrice", "sale-price" and "sale_price" all map to
// "sale_price". Acronyms stay together: "DisplayCODE" maps to "display_code".
func toSnake(s string) string {
	runes := []rune(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(runes) + 4)

	pendingSep := false
	for i, r := range runes {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			pendingSep = b.Len() > 0
			continue
		}

		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				pendingSep = b.Len() > 0
			}
		}

		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
