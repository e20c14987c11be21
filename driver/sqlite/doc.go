// Package sqlite provides an embedded graph backend on SQLite.
//
// Vertices are stored in one table with their fields in a JSON document
// (see processor/sqlite for the layout and the SQL it compiles). The
// driver executes that SQL locally through github.com/mattn/go-sqlite3,
// so the whole pipeline from Builder to normalized records runs without a
// database server.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single connection: SQLite has one writer, and an in-memory database
//     lives only as long as its connection
//
// # Results
//
// Rows with the rid, label, version and data columns become native records
// carrying the rid as reference, version as revision and label as class.
// Any other row shape (a raw aggregate, for example) becomes a record of
// its columns with no identity metadata.
package sqlite
