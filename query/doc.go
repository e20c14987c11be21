// Package query provides the fluent Query Builder.
//
// A Builder populates exactly one bag.Bag through chained calls and then
// executes it with one terminal call:
//
//	people, err := conn.Query().
//		Select().
//		From("person").
//		Where("age", bag.Gt(30)).
//		OrWhere("name", "vadas").
//		Limit(3).
//		All(ctx)
//
// STICKY ERRORS:
//
// Go methods cannot both chain and return an error, so the Builder records
// the first invalid call and ignores every call after it. Err reports the
// recorded error at any point; GetBag and every terminal call return it
// before anything is compiled or sent to a driver.
//
// LIFECYCLE:
//
// A terminal call finalizes the Builder. Any call made afterwards fails
// with a BUILDER_USAGE error; start a new Builder for the next query.
// Builders are not safe for concurrent use.
package query
