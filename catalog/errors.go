package catalog

import (
	goerrors "github.com/goliatone/go-errors"
)

// Kind is the closed set of machine readable error codes surfaced by the
// catalog. It travels in the TextCode of a go-errors Error, and callers
// dispatch on it instead of on Go error types.
type Kind string

func (k Kind) String() string { return string(k) }

// Domain validation kinds, one per invariant.
const (
	KindInvalidID              Kind = "INVALID_ID"
	KindInvalidDisplayCode     Kind = "INVALID_DISPLAY_CODE"
	KindInvalidName            Kind = "INVALID_NAME"
	KindInvalidCategory        Kind = "INVALID_CATEGORY"
	KindInvalidPrice           Kind = "INVALID_PRICE"
	KindInvalidQuantity        Kind = "INVALID_QUANTITY"
	KindNotEnoughStock         Kind = "NOT_ENOUGH_STOCK"
	KindInvalidBarcode         Kind = "INVALID_BARCODE"
	KindInvalidUnit            Kind = "INVALID_UNIT"
	KindInvalidReference       Kind = "INVALID_REFERENCE"
	KindInvalidArrivalDate     Kind = "INVALID_ARRIVAL_DATE"
	KindInvalidExpirationDate  Kind = "INVALID_EXPIRATION_DATE"
	KindInvalidStateTransition Kind = "INVALID_STATE_TRANSITION"
)

// Caller input kinds.
const (
	KindArgumentNull   Kind = "ARGUMENT_NULL"
	KindOutOfRange     Kind = "OUT_OF_RANGE"
	KindInvalidOrderBy Kind = "INVALID_ORDER_BY"
)

// Persistence and infrastructure kinds.
const (
	KindDomain                Kind = "DOMAIN_ERROR"
	KindConcurrencyConflict   Kind = "CONCURRENCY_CONFLICT"
	KindDuplicateKey          Kind = "DUPLICATE_KEY"
	KindCacheFailure          Kind = "CACHE_FAILURE"
	KindUnknown               Kind = "UNKNOWN_ERROR"
	KindUnknownInfrastructure Kind = "UNKNOWN_INFRASTRUCTURE_ERROR"
)

// NewValidationError builds a validation failure for a single field. The
// offending value is kept on the field error so callers can report it back.
func NewValidationError(kind Kind, field string, value any, message string) *goerrors.Error {
	return goerrors.NewValidation(message, goerrors.FieldError{
		Field:   field,
		Message: message,
		Value:   value,
	}).WithTextCode(string(kind))
}

// NewError builds a kinded error in the given category.
func NewError(kind Kind, category goerrors.Category, message string) *goerrors.Error {
	return goerrors.New(message, category).WithTextCode(string(kind))
}

// WrapError builds a kinded error that keeps source as its cause.
func WrapError(source error, kind Kind, category goerrors.Category, message string) *goerrors.Error {
	err := goerrors.New(message, category).WithTextCode(string(kind))
	err.Source = source
	return err
}

// NewArgumentNullError reports a missing required argument.
func NewArgumentNullError(argument string) *goerrors.Error {
	return NewError(KindArgumentNull, goerrors.CategoryBadInput, argument+" cannot be nil").
		WithMetadata(map[string]any{"argument": argument})
}

// KindOf returns the kind carried by err, or an empty Kind when err does not
// carry one.
func KindOf(err error) Kind {
	var e *goerrors.Error
	if goerrors.As(err, &e) {
		return Kind(e.TextCode)
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsValidation reports whether err is a domain validation failure.
func IsValidation(err error) bool {
	return goerrors.IsValidation(err)
}

// FieldOf returns the offending field of a validation failure.
func FieldOf(err error) (goerrors.FieldError, bool) {
	var e *goerrors.Error
	if !goerrors.As(err, &e) || len(e.ValidationErrors) == 0 {
		return goerrors.FieldError{}, false
	}
	return e.ValidationErrors[0], true
}

// MessageOf returns the human message of a kinded error without the
// category and code decorations added by Error().
func MessageOf(err error) string {
	var e *goerrors.Error
	if goerrors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
