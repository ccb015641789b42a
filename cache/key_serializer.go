package cache

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "_"

// defaultKeySerializer renders keys in the catalog grammar, for example
// Product_Id_{id} or Search_{name}_{category}_..._{ascending}. Keys are
// shared with other producers of the same cache, so the rendering of every
// segment is fixed:
//
//   - nil and nil pointers render as the empty string
//   - pointers are dereferenced
//   - booleans render as True or False
//   - fmt.Stringer values use String()
//   - everything else uses its natural decimal or string form
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey joins prefix and the rendered args with KeySeparator. With no
// args the prefix is the whole key.
func (s *defaultKeySerializer) SerializeKey(prefix string, args ...any) string {
	if len(args) == 0 {
		return prefix
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, prefix)
	for _, arg := range args {
		parts = append(parts, s.serializeValue(arg))
	}

	return strings.Join(parts, KeySeparator)
}

func (s *defaultKeySerializer) serializeValue(v any) string {
	if v == nil {
		return ""
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ""
		}
		return s.serializeValue(rv.Elem().Interface())
	}

	switch val := v.(type) {
	case bool:
		if val {
			return "True"
		}
		return "False"
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	}

	return fmt.Sprintf("%v", v)
}
