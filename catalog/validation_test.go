package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDecimalPlaces(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"0", 0},
		{"12", 0},
		{"2.00", 0},
		{"1.50", 1},
		{"1.55", 2},
		{"1.990", 2},
		{"0.001", 3},
		{"100", 0},
		{"-3.140", 2},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, DecimalPlaces(decimal.RequireFromString(tt.value)))
		})
	}
}

func TestValidateLabel(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{name: "simple", value: "Whole Milk", ok: true},
		{name: "unicode", value: "Café au lait", ok: true},
		{name: "empty", value: ""},
		{name: "leading space", value: " Milk"},
		{name: "doubled whitespace", value: "Whole  Milk"},
		{name: "control character", value: "Whole\x07Milk"},
		{name: "tab", value: "Whole\tMilk"},
		{name: "at limit", value: strings.Repeat("a", MaxNameLength), ok: true},
		{name: "over limit", value: strings.Repeat("a", MaxNameLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateName(tt.value)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, KindInvalidName, KindOf(err))
		})
	}

	assert.Equal(t, KindInvalidCategory, KindOf(validateCategory(strings.Repeat("b", MaxCategoryLength+1))))
}

func TestValidateDisplayCode(t *testing.T) {
	assert.NoError(t, validateDisplayCode("00001234"))
	for _, code := range []string{"", "1234567", "123456789", "1234567a"} {
		assert.Equal(t, KindInvalidDisplayCode, KindOf(validateDisplayCode(code)), code)
	}
}

func TestValidateQuantity(t *testing.T) {
	assert.NoError(t, validateQuantity(0))
	assert.NoError(t, validateQuantity(MaxQuantity))
	assert.Equal(t, KindInvalidQuantity, KindOf(validateQuantity(-1)))
	assert.Equal(t, KindInvalidQuantity, KindOf(validateQuantity(MaxQuantity+1)))
}

func TestValidateReference(t *testing.T) {
	id := uuid.New()
	empty := uuid.Nil

	assert.NoError(t, validateReference(FieldSupplier, nil))
	assert.NoError(t, validateReference(FieldSupplier, &id))
	assert.Equal(t, KindInvalidReference, KindOf(validateReference(FieldSupplier, &empty)))
}

func TestValidateDates(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, validateArrivalDate(now, now))
	assert.NoError(t, validateArrivalDate(now.Add(30*time.Second), now))
	assert.Equal(t, KindInvalidArrivalDate, KindOf(validateArrivalDate(now.Add(2*time.Minute), now)))
	assert.Equal(t, KindInvalidArrivalDate, KindOf(validateArrivalDate(time.Time{}, now)))

	limit := now.AddDate(MaxShelfLifeInYears, 0, 0)
	tooLate := limit.Add(time.Hour)
	tooEarly := now.Add(-time.Hour)

	assert.NoError(t, validateExpirationDate(nil, now))
	assert.NoError(t, validateExpirationDate(&now, now))
	assert.NoError(t, validateExpirationDate(&limit, now))
	assert.Equal(t, KindInvalidExpirationDate, KindOf(validateExpirationDate(&tooLate, now)))
	assert.Equal(t, KindInvalidExpirationDate, KindOf(validateExpirationDate(&tooEarly, now)))
}
