// Package store implements a durable, observable store of SavedProducts
// over an embedded SQLite database.
//
// # Components
//
// The codec binds SavedProducts into statements and decodes them from
// result rows, locating columns by name. A StatementCache owns prepared
// statements of each operation shape, handing each out to one caller at a
// time. An Executor runs mutations within transactions, rolling back on
// error and, on commit, notifying its Registry of the Tables written.
// Reads are evaluated against committed state, or against the transaction
// carried by the caller's Context.
//
// # Change Notification
//
// The Registry tracks a revision of each Table, incremented as transactions
// which write it commit. A Subscription evaluates its query on the first
// call to Next, and on later calls blocks until the combined revision of
// its watched Tables has moved on from that of its last Snapshot:
//
//	var stream, _ = store.WatchAll()
//	defer stream.Close()
//
//	for {
//		var products, err = stream.Next(ctx)
//		if err != nil {
//			return err
//		}
//		render(products)
//	}
//
// Many commits landing between two calls of Next are reflected by a single
// re-evaluation. The revision is captured before the query runs, so a
// commit racing an evaluation causes a further (possibly redundant)
// evaluation rather than being missed.
package store
