package driver

import "fmt"

// Kind is the shape of a raw backend result.
type Kind int

const (
	// KindEmpty is a result with nothing in it.
	KindEmpty Kind = iota
	// KindRecord is a single native record.
	KindRecord
	// KindSet is a sequence of native records, possibly of length one.
	KindSet
	// KindScalar is a bare value such as an affected-row count.
	KindScalar
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindRecord:
		return "record"
	case KindSet:
		return "set"
	case KindScalar:
		return "scalar"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// NativeRecord is one record as a backend returned it.
type NativeRecord interface {
	// Fields returns the backend's own fields, excluding identity metadata.
	Fields() map[string]any

	// Ref returns the raw native reference.
	Ref() any

	// RefString returns the string form of the native reference.
	RefString() string

	// Version returns the revision marker, if the backend has one.
	Version() (int64, bool)

	// Label returns the native class or label, if the backend has one.
	Label() (string, bool)
}

// Result is a raw backend result.
type Result struct {
	Kind    Kind
	Records []NativeRecord
	Scalar  any
}

// Empty returns an empty result.
func Empty() Result {
	return Result{Kind: KindEmpty}
}

// Single returns a solitary-record result.
func Single(r NativeRecord) Result {
	return Result{Kind: KindRecord, Records: []NativeRecord{r}}
}

// Set returns a record-sequence result. A zero-length set is Empty.
func Set(records ...NativeRecord) Result {
	if len(records) == 0 {
		return Empty()
	}
	return Result{Kind: KindSet, Records: records}
}

// Scalar returns a bare-value result.
func Scalar(v any) Result {
	return Result{Kind: KindScalar, Scalar: v}
}

// Record is the NativeRecord implementation shared by the bundled drivers.
type Record struct {
	// Data holds the backend fields.
	Data map[string]any

	// NativeRef is the raw reference: an OrientDB RID string, a Neo4j
	// element id, a Gremlin vertex id or a SQLite rowid.
	NativeRef any

	// RefText overrides the string form of NativeRef.
	RefText string

	Rev    int64
	HasRev bool

	Class string
}

func (r *Record) Fields() map[string]any { return r.Data }
func (r *Record) Ref() any                { return r.NativeRef }

func (r *Record) RefString() string {
	if r.RefText != "" {
		return r.RefText
	}
	if r.NativeRef == nil {
		return ""
	}
	return fmt.Sprint(r.NativeRef)
}

func (r *Record) Version() (int64, bool) { return r.Rev, r.HasRev }

func (r *Record) Label() (string, bool) { return r.Class, r.Class != "" }
