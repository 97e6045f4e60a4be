// Package docpath implements the read-only dotted-path lookups used by
// template resolution and rule evaluation. The grammar is deliberately
// narrow: dot-separated map keys, struct fields (by json tag), and numeric
// slice indexes. There is no expression language.
package docpath

import (
	"reflect"
	"strconv"
	"strings"
)

// Lookup resolves a dotted path against root. The second return value is
// false when any path segment is absent. Expected absence is not an error;
// callers decide how to degrade.
func Lookup(root any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	current := root
	for _, part := range strings.Split(path, ".") {
		next, ok := lookupSegment(current, part)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Number resolves a dotted path and coerces the value to float64.
func Number(root any, path string) (float64, bool) {
	value, ok := Lookup(root, path)
	if !ok {
		return 0, false
	}
	return Coerce(value)
}

// String resolves a dotted path and returns the value's string form, or ""
// for absent or composite values.
func String(root any, path string) string {
	value, ok := Lookup(root, path)
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case []any, map[string]any:
		return ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Struct, reflect.Ptr:
		return ""
	}
	return strings.TrimSpace(stringify(value))
}

// Coerce converts a scalar to float64, tolerating JSON-decoded numbers and
// numeric strings.
func Coerce(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func lookupSegment(current any, part string) (any, bool) {
	if current == nil {
		return nil, false
	}
	switch v := current.(type) {
	case map[string]any:
		value, ok := v[part]
		return value, ok
	case []any:
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 || idx >= len(v) {
			return nil, false
		}
		return v[idx], true
	}
	rv := reflect.ValueOf(current)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		value := rv.MapIndex(reflect.ValueOf(part))
		if !value.IsValid() {
			return nil, false
		}
		return value.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	case reflect.Struct:
		return lookupStructField(rv, part)
	}
	return nil, false
}

func lookupStructField(rv reflect.Value, name string) (any, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("json")
		tagName, tagOpts, _ := strings.Cut(tag, ",")
		if tagName == name || (tagName == "" && strings.EqualFold(field.Name, name)) {
			value := rv.Field(i)
			if value.Kind() == reflect.Ptr && value.IsNil() {
				return nil, false
			}
			// Mirror the JSON view: omitempty zero values read as absent.
			if strings.Contains(tagOpts, "omitempty") && value.IsZero() {
				return nil, false
			}
			return value.Interface(), true
		}
	}
	return nil, false
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return strconv.FormatInt(rv.Int(), 10)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return strconv.FormatUint(rv.Uint(), 10)
		case reflect.Float32, reflect.Float64:
			return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
		}
		return ""
	}
}

// Stringify renders a scalar value for interpolation into template text.
func Stringify(value any) string {
	return stringify(value)
}
