package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_String(t *testing.T) {
	assert.Equal(t, "Piece", UnitPiece.String())
	assert.Equal(t, "Kilogram", UnitKilogram.String())
	assert.Equal(t, "Liter", UnitLiter.String())
	assert.Equal(t, "Unit(9)", Unit(9).String())
}

func TestParseUnit(t *testing.T) {
	u, err := ParseUnit("kilogram")
	require.NoError(t, err)
	assert.Equal(t, UnitKilogram, u)

	u, err = ParseUnit(" LITER ")
	require.NoError(t, err)
	assert.Equal(t, UnitLiter, u)

	_, err = ParseUnit("gallon")
	require.Error(t, err)
	assert.Equal(t, KindInvalidUnit, KindOf(err))
}

func TestUnit_Text(t *testing.T) {
	text, err := UnitLiter.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Liter", string(text))

	_, err = Unit(7).MarshalText()
	assert.Error(t, err)

	var u Unit
	require.NoError(t, u.UnmarshalText([]byte("Piece")))
	assert.Equal(t, UnitPiece, u)
}
