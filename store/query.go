package store

import (
	"context"
)

// queryRunner evaluates read-only queries of SavedProductsTable using
// statements of a StatementCache. Reads made with a Context carrying a Txn
// observe that transaction; others observe only committed state.
type queryRunner struct {
	stmts *StatementCache
}

// queryAll returns all SavedProducts, in insertion order. Replacing a
// SavedProduct moves it to the end.
func (q queryRunner) queryAll(ctx context.Context) ([]SavedProduct, error) {
	var h, err = q.stmts.Acquire(ctx, OpQueryAll)
	if err != nil {
		return nil, err
	}
	defer q.stmts.Release(h)

	rows, err := h.Stmt().QueryContext(ctx)
	if err != nil {
		return nil, storageErr("querying saved products", err)
	}
	defer rows.Close()

	out, err := decodeProducts(rows)
	if err != nil {
		return nil, storageErr("reading saved products", err)
	}
	return out, nil
}

// exists returns whether a SavedProduct of |barcode| is stored.
func (q queryRunner) exists(ctx context.Context, barcode string) (bool, error) {
	var h, err = q.stmts.Acquire(ctx, OpExists)
	if err != nil {
		return false, err
	}
	defer q.stmts.Release(h)

	var found bool
	if err = h.Stmt().QueryRowContext(ctx, barcode).Scan(&found); err != nil {
		return false, storageErr("probing saved product", err)
	}
	return found, nil
}

// get returns the SavedProduct of |barcode|, or ErrNotFound.
func (q queryRunner) get(ctx context.Context, barcode string) (SavedProduct, error) {
	var h, err = q.stmts.Acquire(ctx, OpGet)
	if err != nil {
		return SavedProduct{}, err
	}
	defer q.stmts.Release(h)

	rows, err := h.Stmt().QueryContext(ctx, barcode)
	if err != nil {
		return SavedProduct{}, storageErr("querying saved product", err)
	}
	defer rows.Close()

	out, err := decodeProducts(rows)
	if err != nil {
		return SavedProduct{}, storageErr("reading saved product", err)
	} else if len(out) == 0 {
		return SavedProduct{}, ErrNotFound
	}
	return out[0], nil
}
