package store

import (
	"context"
	"database/sql"
	"time"

	log "github.com/sirupsen/logrus"
	"go.arnest.dev/scan/metrics"
)

// Txn is a transaction of an Executor. It's passed to the function run by
// RunInTransaction, and is also carried by that function's Context so that
// store operations invoked with the Context join the transaction.
type Txn struct {
	tx     *sql.Tx
	tables TableSet
}

// Tx returns the underlying SQL transaction.
func (t *Txn) Tx() *sql.Tx { return t.tx }

// Invalidate records that the transaction wrote to |tables|. Subscriptions
// watching any of them are notified if, and only if, the transaction commits.
func (t *Txn) Invalidate(tables ...Table) { t.tables.Add(tables...) }

type txnKey struct{}

// txnFromContext returns the Txn carried by |ctx|, or nil.
func txnFromContext(ctx context.Context) *Txn {
	var txn, _ = ctx.Value(txnKey{}).(*Txn)
	return txn
}

// Executor runs functions within SQL transactions, and notifies its Registry
// of the tables written by each committed transaction.
type Executor struct {
	db       *sql.DB
	registry *Registry
}

// NewExecutor returns an Executor of |db| which notifies |registry|.
func NewExecutor(db *sql.DB, registry *Registry) *Executor {
	return &Executor{db: db, registry: registry}
}

// RunInTransaction begins a transaction and invokes |fn| with it. If |fn|
// returns nil the transaction is committed, and the Registry is then notified
// of the tables it invalidated. Otherwise the transaction is rolled back, and
// the error of |fn| is returned once rollback has completed. A panic of |fn|
// also rolls back, and then resumes panicking.
//
// Nested calls flatten: if |ctx| already carries a Txn, |fn| is invoked with
// it directly and the outermost RunInTransaction decides the outcome. There
// are no savepoints, so an error of a nested |fn| which the enclosing |fn|
// chooses to ignore does not undo the nested writes.
func (e *Executor) RunInTransaction(ctx context.Context, fn func(context.Context, *Txn) error) (err error) {
	if txn := txnFromContext(ctx); txn != nil {
		return fn(ctx, txn)
	}
	var started = time.Now()
	defer func() { metrics.TransactionDurationSeconds.Observe(time.Since(started).Seconds()) }()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.TransactionsTotal.WithLabelValues(metrics.Fail).Inc()
		return storageErr("beginning transaction", err)
	}
	var txn = &Txn{tx: tx, tables: make(TableSet)}

	defer func() {
		if r := recover(); r != nil {
			e.rollback(txn, nil)
			panic(r)
		}
	}()

	if err = fn(context.WithValue(ctx, txnKey{}, txn), txn); err != nil {
		e.rollback(txn, err)
		return err
	}
	if err = tx.Commit(); err != nil {
		metrics.TransactionsTotal.WithLabelValues(metrics.Fail).Inc()
		return storageErr("committing transaction", err)
	}
	metrics.TransactionsTotal.WithLabelValues(metrics.Ok).Inc()

	if len(txn.tables) != 0 {
		e.registry.NotifyTablesChanged(txn.tables)
	}
	return nil
}

func (e *Executor) rollback(txn *Txn, cause error) {
	metrics.TransactionsTotal.WithLabelValues(metrics.Fail).Inc()

	// ErrTxDone is expected if the transaction Context was cancelled,
	// in which case database/sql has already rolled back.
	if err := txn.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		log.WithFields(log.Fields{
			"err":    err,
			"cause":  cause,
			"tables": txn.tables.Sorted(),
		}).Error("failed to roll back transaction")
	}
}
