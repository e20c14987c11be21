// Package connection binds a driver, a processor and a logger into one
// named connection, and caches named connections in a Manager.
//
// A Connection is the query.Executor behind every Builder it hands out:
//
//	conn, err := connection.New("local", driver.Config{Driver: "sqlite"})
//	if err != nil { ... }
//	if err := conn.Open(ctx); err != nil { ... }
//	defer conn.Close(ctx)
//
//	people, err := conn.Query().Select().From("person").Where("age", bag.Gt(30)).All(ctx)
//
// Execution routes on the command's read/write tag. Driver failures come
// back as DRIVER_FAILURE errors that carry the compiled script and dialect
// and unwrap to the driver's own error.
//
// Thread-safety: a Connection is as safe for concurrent use as its driver.
// The Manager's cache is guarded by a mutex.
package connection
