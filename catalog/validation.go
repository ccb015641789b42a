package catalog

import (
	"errors"
	"math/big"
	"regexp"
	"strings"
	"time"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field names reported in validation failures.
const (
	FieldID             = "id"
	FieldDisplayCode    = "displayCode"
	FieldName           = "name"
	FieldCategory       = "category"
	FieldWholesalePrice = "wholesalePrice"
	FieldSalePrice      = "salePrice"
	FieldQuantity       = "quantity"
	FieldBarcode        = "barcode"
	FieldUnit           = "unit"
	FieldSupplier       = "supplier"
	FieldManufacturer   = "manufacturer"
	FieldArrivalDate    = "arrivalDate"
	FieldExpirationDate = "expirationDate"
	FieldState          = "state"
)

// Limits enforced by the invariant engine.
const (
	MaxNameLength       = 200
	MaxCategoryLength   = 100
	MaxQuantity         = 1_000_000
	MaxPriceDecimals    = 2
	DisplayCodeLength   = 8
	ArrivalTolerance    = time.Minute
	MaxShelfLifeInYears = 20
)

// MaxPrice is the ceiling for wholesale and sale prices.
var MaxPrice = decimal.NewFromInt(1_000_000)

var displayCodePattern = regexp.MustCompile(`^[0-9]{8}$`)

func validateID(id uuid.UUID) error {
	if id == uuid.Nil {
		return NewValidationError(KindInvalidID, FieldID, id, "id cannot be empty")
	}
	return nil
}

func validateDisplayCode(code string) error {
	err := validation.Validate(code,
		validation.Required,
		validation.Match(displayCodePattern).Error("must be exactly 8 digits"),
	)
	return fieldError(KindInvalidDisplayCode, FieldDisplayCode, code, err)
}

func validateName(name string) error {
	return validateLabel(KindInvalidName, FieldName, name, MaxNameLength)
}

func validateCategory(category string) error {
	return validateLabel(KindInvalidCategory, FieldCategory, category, MaxCategoryLength)
}

// validateLabel applies the shared text rules for names and categories. The
// value is expected to be trimmed already.
func validateLabel(kind Kind, field, value string, maxLength int) error {
	err := validation.Validate(value,
		validation.Required,
		validation.RuneLength(1, maxLength),
		validation.By(trimmed),
		validation.By(noControlCharacters),
		validation.By(noDoubledWhitespace),
	)
	return fieldError(kind, field, value, err)
}

func validatePrice(field string, price decimal.Decimal) error {
	err := validation.Validate(price,
		validation.By(nonNegativeDecimal),
		validation.By(decimalAtMost(MaxPrice)),
		validation.By(decimalPlacesAtMost(MaxPriceDecimals)),
	)
	return fieldError(KindInvalidPrice, field, price.String(), err)
}

func validateSalePrice(sale, wholesale decimal.Decimal) error {
	if err := validatePrice(FieldSalePrice, sale); err != nil {
		return err
	}
	if sale.LessThan(wholesale) {
		return NewValidationError(KindInvalidPrice, FieldSalePrice, sale.String(), "sale price cannot be lower than the wholesale price")
	}
	return nil
}

func validateQuantity(quantity int) error {
	err := validation.Validate(quantity,
		validation.Min(0),
		validation.Max(MaxQuantity),
	)
	return fieldError(KindInvalidQuantity, FieldQuantity, quantity, err)
}

func validateUnit(unit Unit) error {
	if !unit.IsValid() {
		return NewValidationError(KindInvalidUnit, FieldUnit, uint8(unit), "unknown unit")
	}
	return nil
}

func validateReference(field string, ref *uuid.UUID) error {
	if ref != nil && *ref == uuid.Nil {
		return NewValidationError(KindInvalidReference, field, ref.String(), "reference cannot be the empty id")
	}
	return nil
}

func validateArrivalDate(arrival, now time.Time) error {
	if arrival.IsZero() {
		return NewValidationError(KindInvalidArrivalDate, FieldArrivalDate, arrival, "arrival date is required")
	}
	if arrival.After(now.Add(ArrivalTolerance)) {
		return NewValidationError(KindInvalidArrivalDate, FieldArrivalDate, arrival, "arrival date cannot be in the future")
	}
	return nil
}

func validateExpirationDate(expiration *time.Time, arrival time.Time) error {
	if expiration == nil {
		return nil
	}
	if expiration.Before(arrival) {
		return NewValidationError(KindInvalidExpirationDate, FieldExpirationDate, *expiration, "expiration date cannot precede the arrival date")
	}
	if expiration.After(arrival.AddDate(MaxShelfLifeInYears, 0, 0)) {
		return NewValidationError(KindInvalidExpirationDate, FieldExpirationDate, *expiration, "expiration date is too far after the arrival date")
	}
	return nil
}

// DecimalPlaces counts the fractional digits of d once trailing zeros are
// removed, so 1.50 has one decimal place and 2.00 has none.
func DecimalPlaces(d decimal.Decimal) int {
	exp := d.Exponent()
	if exp >= 0 {
		return 0
	}

	coefficient := new(big.Int).Set(d.Coefficient())
	ten := big.NewInt(10)
	remainder := new(big.Int)
	for exp < 0 {
		quotient, rem := new(big.Int).QuoRem(coefficient, ten, remainder)
		if rem.Sign() != 0 {
			break
		}
		coefficient = quotient
		exp++
	}
	return int(-exp)
}

func fieldError(kind Kind, field string, value any, err error) error {
	if err == nil {
		return nil
	}
	return NewValidationError(kind, field, value, err.Error())
}

func trimmed(value any) error {
	s, _ := value.(string)
	if s != strings.TrimSpace(s) {
		return errors.New("must not start or end with whitespace")
	}
	return nil
}

func noControlCharacters(value any) error {
	s, _ := value.(string)
	for _, r := range s {
		if unicode.IsControl(r) {
			return errors.New("must not contain control characters")
		}
	}
	return nil
}

func noDoubledWhitespace(value any) error {
	s, _ := value.(string)
	previousSpace := false
	for _, r := range s {
		space := unicode.IsSpace(r)
		if space && previousSpace {
			return errors.New("must not contain consecutive whitespace")
		}
		previousSpace = space
	}
	return nil
}

func nonNegativeDecimal(value any) error {
	d, _ := value.(decimal.Decimal)
	if d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

func decimalAtMost(limit decimal.Decimal) validation.RuleFunc {
	return func(value any) error {
		d, _ := value.(decimal.Decimal)
		if d.GreaterThan(limit) {
			return errors.New("must be no greater than " + limit.String())
		}
		return nil
	}
}

func decimalPlacesAtMost(places int) validation.RuleFunc {
	return func(value any) error {
		d, _ := value.(decimal.Decimal)
		if DecimalPlaces(d) > places {
			return errors.New("must have at most 2 decimal places")
		}
		return nil
	}
}
