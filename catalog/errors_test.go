package catalog

import (
	"context"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidationError(t *testing.T) {
	err := NewValidationError(KindInvalidName, FieldName, "bad  name", "must not contain consecutive whitespace")

	assert.Equal(t, KindInvalidName, KindOf(err))
	assert.True(t, IsValidation(err))
	assert.Equal(t, "must not contain consecutive whitespace", MessageOf(err))

	field, ok := FieldOf(err)
	require.True(t, ok)
	assert.Equal(t, FieldName, field.Field)
	assert.Equal(t, "bad  name", field.Value)
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := NewError(KindConcurrencyConflict, goerrors.CategoryConflict, "row changed")
	wrapped := fmt.Errorf("update failed: %w", inner)

	assert.Equal(t, KindConcurrencyConflict, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindConcurrencyConflict))
	assert.False(t, IsValidation(wrapped))
	assert.Equal(t, Kind(""), KindOf(context.Canceled))
	assert.False(t, IsKind(nil, KindUnknown))
}

func TestWrapError_KeepsSource(t *testing.T) {
	err := WrapError(context.DeadlineExceeded, KindUnknownInfrastructure, goerrors.CategoryInternal, "store unavailable")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, KindUnknownInfrastructure, KindOf(err))
	assert.Equal(t, "store unavailable", MessageOf(err))
}

func TestNewArgumentNullError(t *testing.T) {
	err := NewArgumentNullError("product")

	assert.Equal(t, KindArgumentNull, KindOf(err))
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryBadInput))
	assert.Equal(t, "product", err.Metadata["argument"])
}

func TestMessageOf_PlainErrors(t *testing.T) {
	assert.Equal(t, "", MessageOf(nil))
	assert.Equal(t, context.Canceled.Error(), MessageOf(context.Canceled))
}
