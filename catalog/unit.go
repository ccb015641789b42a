package catalog

import (
	"fmt"
	"strings"
)

// Unit is the unit of measure a product quantity is expressed in.
type Unit uint8

const (
	UnitPiece Unit = iota
	UnitKilogram
	UnitLiter
)

var unitNames = [...]string{"Piece", "Kilogram", "Liter"}

// String returns the string representation of the unit.
func (u Unit) String() string {
	if !u.IsValid() {
		return fmt.Sprintf("Unit(%d)", uint8(u))
	}
	return unitNames[u]
}

// IsValid reports whether u is one of the known units.
func (u Unit) IsValid() bool {
	return int(u) < len(unitNames)
}

// ParseUnit parses a unit name, ignoring case.
func ParseUnit(s string) (Unit, error) {
	for i, name := range unitNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Unit(i), nil
		}
	}
	return 0, NewValidationError(KindInvalidUnit, FieldUnit, s, "unknown unit")
}

// MarshalText implements [encoding.TextMarshaler].
func (u Unit) MarshalText() ([]byte, error) {
	if !u.IsValid() {
		return nil, NewValidationError(KindInvalidUnit, FieldUnit, uint8(u), "unknown unit")
	}
	return []byte(u.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (u *Unit) UnmarshalText(text []byte) error {
	parsed, err := ParseUnit(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
