package ir

import (
	"fmt"
	"slices"
	"unicode/utf16"
)

// Reserved record keys injected by the response normalizer.
const (
	// KeyID holds the string form of the backend's native reference.
	KeyID = "id"

	// KeyRef holds the raw native reference (e.g. an OrientDB RID or a
	// SQLite rowid) for passthrough operations such as Drop.
	KeyRef = "ref"

	// KeyVersion holds the backend revision marker, when one exists.
	KeyVersion = "version"

	// KeyLabel holds the backend-native class or label, when one exists.
	KeyLabel = "label"
)

// ID identifies one specific record in a backend.
//
// ID is deliberately a distinct type from string so that a Bag can tell a
// record-by-id target apart from a bare collection name.
type ID string

// String returns the id text.
func (id ID) String() string { return string(id) }

// Record is a uniform field-name to value mapping. It is used both for write
// payloads and for normalized read results.
type Record map[string]any

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

// String returns the value under key formatted as a string, or "" when the
// key is absent.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ID returns the backend identity injected under KeyID.
func (r Record) ID() ID {
	return ID(r.String(KeyID))
}

// Ref returns the raw native reference injected under KeyRef.
func (r Record) Ref() any {
	return r[KeyRef]
}

// Version returns the revision marker, if the backend provided one.
func (r Record) Version() (int64, bool) {
	switch v := r[KeyVersion].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// Label returns the backend-native class or label, or "".
func (r Record) Label() string {
	return r.String(KeyLabel)
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// SortedKeys returns the keys of m in RFC 8785 order (UTF-16 code units).
// Every processor iterates maps through this function.
func SortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
// Go's native string comparison uses UTF-8 bytes, which orders
// supplementary-plane characters differently.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}
