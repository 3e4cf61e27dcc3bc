package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSharedStatementIsReusedAfterRelease(t *testing.T) {
	var sc = newTestStatementCache(t, 8)
	var ctx = context.Background()

	var h1, err = sc.Acquire(ctx, OpExists)
	require.NoError(t, err)
	require.NotNil(t, h1.shared)

	sc.Release(h1)
	sc.Release(h1) // Idempotent.

	h2, err := sc.Acquire(ctx, OpExists)
	require.NoError(t, err)
	require.True(t, h1.base == h2.base)
	sc.Release(h2)
}

func TestBusySharedStatementYieldsIndependentHandle(t *testing.T) {
	var sc = newTestStatementCache(t, 8)
	var ctx = context.Background()

	var h1, err = sc.Acquire(ctx, OpExists)
	require.NoError(t, err)
	h2, err := sc.Acquire(ctx, OpExists)
	require.NoError(t, err)

	require.Nil(t, h2.shared)
	require.False(t, h1.base == h2.base)

	// Both are independently usable.
	for _, h := range []*Handle{h1, h2} {
		var found bool
		require.NoError(t, h.Stmt().QueryRowContext(ctx, "001").Scan(&found))
		require.False(t, found)
	}
	sc.Release(h2)
	sc.Release(h1)

	// The shared statement remains, and is free.
	var v, ok = sc.shared.Peek(OpExists)
	require.True(t, ok)
	require.True(t, v.(*sharedStmt).stmt == h1.base)
	require.False(t, v.(*sharedStmt).inUse)
}

func TestEvictedStatementClosesOnRelease(t *testing.T) {
	var sc = newTestStatementCache(t, 1)
	var ctx = context.Background()

	var h1, err = sc.Acquire(ctx, OpExists)
	require.NoError(t, err)

	// Sharing OpGet evicts OpExists, which remains usable while acquired.
	h2, err := sc.Acquire(ctx, OpGet)
	require.NoError(t, err)
	require.True(t, h1.shared.evicted)

	var found bool
	require.NoError(t, h1.Stmt().QueryRowContext(ctx, "001").Scan(&found))

	sc.Release(h1)
	sc.Release(h2)

	// A fresh shared statement is prepared for the evicted OpKind.
	h3, err := sc.Acquire(ctx, OpExists)
	require.NoError(t, err)
	require.NotNil(t, h3.shared)
	require.False(t, h3.base == h1.base)
	sc.Release(h3)
}

func TestAcquireOfUnknownKind(t *testing.T) {
	var sc = newTestStatementCache(t, 8)

	var _, err = sc.Acquire(context.Background(), OpKind(99))
	require.EqualError(t, err, "unknown statement kind OpKind(99)")
}

func TestAcquireWithinTransactionBindsToIt(t *testing.T) {
	var s = newTestStore(t)
	var ctx = context.Background()

	require.NoError(t, s.RunInTransaction(ctx, func(ctx context.Context, txn *Txn) error {
		// Shared statement, bound to the transaction.
		var h1, err = s.stmts.Acquire(ctx, OpInsert)
		require.NoError(t, err)
		require.NotNil(t, h1.shared)
		require.NotNil(t, h1.bound)

		// Busy shared statement: a single-use statement is prepared on the
		// transaction itself (preparing against the DB would deadlock on
		// its single connection).
		h2, err := s.stmts.Acquire(ctx, OpInsert)
		require.NoError(t, err)
		require.Nil(t, h2.shared)
		require.Nil(t, h2.bound)

		_, err = h2.Stmt().ExecContext(ctx, encodeProduct(soap)...)
		require.NoError(t, err)

		s.stmts.Release(h2)
		s.stmts.Release(h1)

		txn.Invalidate(SavedProductsTable)
		return nil
	}))

	var found, err = s.Exists(ctx, soap.Barcode)
	require.NoError(t, err)
	require.True(t, found)
}

func TestClosedCacheRejectsAcquire(t *testing.T) {
	var sc = newTestStatementCache(t, 8)
	sc.Close()

	var _, err = sc.Acquire(context.Background(), OpGet)
	require.EqualError(t, err, "statement cache is closed")
}

func newTestStatementCache(t *testing.T, size int) *StatementCache {
	var db = openTestDB(t, bootstrapSQL)
	var sc, err = NewStatementCache(db, size)
	require.NoError(t, err)
	t.Cleanup(sc.Close)
	return sc
}
