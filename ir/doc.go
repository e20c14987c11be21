// Package ir holds the vocabulary shared by every layer of spider: the
// uniform Record model, typed record identifiers, compiled Commands and the
// classified error taxonomy.
//
// ARCHITECTURE:
//
//	[query.Builder] → [bag.Bag] → [processor.Processor] → [ir.Command]
//	                                                          ↓
//	[]ir.Record ← [normalize] ← [driver.Result] ← [driver.Driver]
//
// Everything in this package is plain data. Nothing here performs I/O.
//
// RESERVED RECORD KEYS:
//
// Records returned from a backend carry identity metadata under reserved
// keys (KeyID, KeyRef, KeyVersion, KeyLabel). They are written after the
// backend's own fields, so a user field with the same name is replaced by
// the backend identity value. This is part of the API contract.
//
// DETERMINISM:
//
// Maps are always rendered with keys in RFC 8785 order (UTF-16 code units),
// see SortedKeys and MarshalCanonical. Compiling the same Bag twice must
// produce byte-identical scripts.
package ir
