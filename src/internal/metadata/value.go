// FILE: src/internal/metadata/value.go
package metadata

import (
	"fmt"
	"reflect"
	"time"

	"kinlog/src/internal/core"
)

// FormatValue renders a bound value as a metadata string.
// A nil value, typed nil pointers included, becomes the empty string so
// the key stays visible. A panicking Error or String method yields a
// marker instead of reaching the caller.
func FormatValue(v any) (out string) {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("!PANIC(%v)", r)
		}
	}()

	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return core.FormatTimestamp(val)
	case *time.Time:
		if val == nil {
			return ""
		}
		return core.FormatTimestamp(*val)
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}
