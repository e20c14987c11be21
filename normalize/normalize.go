// Package normalize maps raw driver results to the uniform record model.
//
// Shape rules:
//
//	driver.KindEmpty   → Records is empty (never nil)
//	driver.KindRecord  → Records has the one record
//	driver.KindSet     → Records in backend order; a set of one stays a
//	                     one-element slice
//	driver.KindScalar  → Records is empty, Scalar holds the value
//
// Unwrapping a single record is the caller's decision, never the
// normalizer's.
//
// RESERVED KEYS:
//
// Every record gains ir.KeyID and ir.KeyRef, plus ir.KeyVersion and
// ir.KeyLabel when the backend reports them. Reserved keys are written
// after the backend's fields, so a backend field with a reserved name is
// replaced by the identity value.
package normalize

import (
	"github.com/roach88/spider/driver"
	"github.com/roach88/spider/ir"
)

// Response is a normalized driver result.
type Response struct {
	Kind    driver.Kind
	Records []ir.Record
	Scalar  any
}

// Len returns the number of records.
func (r *Response) Len() int {
	return len(r.Records)
}

// First returns the first record in backend order.
func (r *Response) First() (ir.Record, bool) {
	if len(r.Records) == 0 {
		return nil, false
	}
	return r.Records[0], true
}

// Normalize converts a raw result.
func Normalize(res driver.Result) *Response {
	out := &Response{Kind: res.Kind, Records: []ir.Record{}}

	switch res.Kind {
	case driver.KindEmpty:
	case driver.KindScalar:
		out.Scalar = res.Scalar
	case driver.KindRecord:
		if len(res.Records) > 0 {
			out.Records = append(out.Records, Record(res.Records[0]))
		}
	default:
		for _, n := range res.Records {
			out.Records = append(out.Records, Record(n))
		}
	}
	return out
}

// Record converts one native record. Backend fields are copied, then the
// reserved identity keys are injected.
func Record(n driver.NativeRecord) ir.Record {
	fields := n.Fields()
	rec := make(ir.Record, len(fields)+4)
	for k, v := range fields {
		rec[k] = v
	}

	if ref := n.Ref(); ref != nil {
		rec[ir.KeyID] = n.RefString()
		rec[ir.KeyRef] = ref
	}
	if v, ok := n.Version(); ok {
		rec[ir.KeyVersion] = v
	}
	if label, ok := n.Label(); ok {
		rec[ir.KeyLabel] = label
	}
	return rec
}
