package processor

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/spider/ir"
)

// LiteralStyle describes how one dialect writes value literals.
//
// Render accepts nil, bool, string, ir.ID, every integer kind, finite
// floats, slices and arrays of those, and string-keyed maps when Map is
// set. Anything else is an UNSUPPORTED_VALUE_TYPE error. Strings are NFC
// normalized, matching ir.MarshalCanonical.
type LiteralStyle struct {
	Dialect string

	Null  string
	True  string
	False string

	// Quote writes a string literal including its delimiters.
	Quote func(s string) string

	// Int and Float decorate rendered numbers; nil leaves them as is.
	Int   func(s string, v int64) string
	Float func(s string) string

	// Open and Close delimit lists; Sep joins list elements.
	Open, Close, Sep string

	// Map writes a map literal from keys (in ir.SortedKeys order) and their
	// already rendered values. A nil Map rejects map values.
	Map func(keys, values []string) string
}

// Render writes v as a literal.
func (s LiteralStyle) Render(v any) (string, error) {
	return s.render(v, "value")
}

// RenderScalar writes v as a literal and rejects lists and maps.
func (s LiteralStyle) RenderScalar(v any) (string, error) {
	if isComposite(v) {
		return "", UnsupportedValue(s.Dialect, "a %T cannot be compared with a scalar comparator", v)
	}
	return s.render(v, "value")
}

// RenderList writes every element of a slice or array value and joins them
// with the style's list delimiters.
func (s LiteralStyle) RenderList(v any) (string, error) {
	items, err := s.RenderItems(v)
	if err != nil {
		return "", err
	}
	return s.Open + strings.Join(items, s.Sep) + s.Close, nil
}

// RenderItems writes every element of a slice or array value.
func (s LiteralStyle) RenderItems(v any) ([]string, error) {
	rv := reflect.ValueOf(v)
	if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, UnsupportedValue(s.Dialect, "expected a list, got %T", v)
	}
	items := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		item, err := s.render(rv.Index(i).Interface(), "list element")
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s LiteralStyle) render(v any, what string) (string, error) {
	switch val := v.(type) {
	case nil:
		return s.Null, nil
	case bool:
		if val {
			return s.True, nil
		}
		return s.False, nil
	case string:
		return s.Quote(norm.NFC.String(val)), nil
	case ir.ID:
		return s.Quote(string(val)), nil
	case ir.Record:
		return s.renderMap(map[string]any(val))
	case map[string]any:
		return s.renderMap(val)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return s.int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > 1<<63-1 {
			return "", UnsupportedValue(s.Dialect, "unsigned %s %d overflows a signed 64-bit integer", what, u)
		}
		return s.int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		f, err := ir.FormatFloat(rv.Float())
		if err != nil {
			return "", UnsupportedValue(s.Dialect, "%s %v: %v", what, rv.Float(), err)
		}
		if s.Float != nil {
			f = s.Float(f)
		}
		return f, nil
	case reflect.String:
		return s.Quote(norm.NFC.String(rv.String())), nil
	case reflect.Bool:
		return s.render(rv.Bool(), what)
	case reflect.Slice, reflect.Array:
		return s.RenderList(v)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return "", UnsupportedValue(s.Dialect, "map keys must be strings, got %s", rv.Type().Key())
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return s.renderMap(m)
	}
	return "", UnsupportedValue(s.Dialect, "unsupported %s type %T", what, v)
}

func (s LiteralStyle) int(v int64) string {
	out := strconv.FormatInt(v, 10)
	if s.Int != nil {
		out = s.Int(out, v)
	}
	return out
}

func (s LiteralStyle) renderMap(m map[string]any) (string, error) {
	if s.Map == nil {
		return "", UnsupportedValue(s.Dialect, "map values are not supported")
	}
	keys := ir.SortedKeys(m)
	values := make([]string, len(keys))
	for i, k := range keys {
		lit, err := s.render(m[k], "map value")
		if err != nil {
			return "", err
		}
		values[i] = lit
	}
	return s.Map(keys, values), nil
}

// isComposite reports whether v is a list or map value.
func isComposite(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}

// IsMap reports whether v is a map value.
func IsMap(v any) bool {
	return v != nil && reflect.ValueOf(v).Kind() == reflect.Map
}

// QuoteBackslash quotes s with q, escaping backslashes and q with a
// backslash. Newline, carriage return and tab use their short escapes;
// every other control character (below 0x20, and 0x7f) is written as
// \uXXXX so no raw control byte reaches the script.
func QuoteBackslash(s string, q byte) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(q)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case q:
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\u%04x`, c)
				continue
			}
			b.WriteByte(c)
		}
	}
	b.WriteByte(q)
	return b.String()
}

// QuoteDoubled quotes s with q, doubling any q inside s. Control bytes
// are kept as is; callers whose backend cannot parse them (such as NUL in
// SQLite) must handle them before quoting.
func QuoteDoubled(s string, q byte) string {
	qs := string(q)
	return qs + strings.ReplaceAll(s, qs, qs+qs) + qs
}
