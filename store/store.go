package store

import (
	"context"
	"database/sql"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Config configures a Store.
type Config struct {
	Path               string        `long:"path" env:"PATH" default:"saved_products.db" description:"Path of the SQLite database file"`
	BusyTimeout        time.Duration `long:"busy-timeout" env:"BUSY_TIMEOUT" default:"5s" description:"Duration to wait on a locked database before failing"`
	StatementCacheSize int           `long:"statement-cache-size" env:"STATEMENT_CACHE_SIZE" default:"8" description:"Number of shared prepared statements to retain"`
	CoalesceDelay      time.Duration `long:"coalesce-delay" env:"COALESCE_DELAY" default:"10ms" description:"Duration to batch committed changes before re-evaluating watched queries"`
}

// DefaultConfig returns a Config of the database at |path| with defaults
// matching those of the flag tags.
func DefaultConfig(path string) Config {
	return Config{
		Path:               path,
		BusyTimeout:        5 * time.Second,
		StatementCacheSize: 8,
		CoalesceDelay:      10 * time.Millisecond,
	}
}

// bootstrapSQL creates SavedProductsTable if it doesn't exist.
const bootstrapSQL = `
	CREATE TABLE IF NOT EXISTS saved_products (
		barcode      TEXT PRIMARY KEY NOT NULL,
		name         TEXT NOT NULL,
		imageUrls    TEXT NOT NULL,
		composition  TEXT NOT NULL,
		safetyStatus TEXT NOT NULL
	);`

// Store is a durable store of SavedProducts, backed by an embedded SQLite
// database. All mutations run within transactions of its Executor, and
// WatchAll streams are notified as they commit.
type Store struct {
	// DB is the opened SQLite database. Clients may use it for read-only
	// queries, but mutations must be made through the Store so that
	// subscribers are notified.
	DB *sql.DB

	cfg      Config
	stmts    *StatementCache
	registry *Registry
	exec     *Executor
	runner   queryRunner
}

// Open the Store described by |cfg|, creating its database if required.
func Open(cfg Config) (*Store, error) {
	var uri = url.Values{
		"_journal_mode": {"WAL"},
		"_synchronous":  {"FULL"},
		"_busy_timeout": {strconv.FormatInt(cfg.BusyTimeout.Milliseconds(), 10)},
	}
	var db, err = sql.Open("sqlite3", "file:"+cfg.Path+"?"+uri.Encode())
	if err != nil {
		return nil, errors.WithMessage(err, "opening SQLite DB")
	}
	// SQLite permits a single writer, and a single connection also
	// serializes readers behind an in-progress write transaction.
	// Transactions and reads made within them share the connection.
	db.SetMaxOpenConns(1)

	if _, err = db.Exec(bootstrapSQL); err != nil {
		_ = db.Close()
		return nil, errors.WithMessage(err, "bootstrapping saved_products table")
	}

	var s = &Store{
		DB:       db,
		cfg:      cfg,
		registry: NewRegistry(SavedProductsTable),
	}
	s.registry.CoalesceDelay = cfg.CoalesceDelay
	s.exec = NewExecutor(db, s.registry)

	var size = cfg.StatementCacheSize
	if size <= 0 {
		size = len(opKinds)
	}
	if s.stmts, err = NewStatementCache(db, size); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err = s.stmts.Warm(context.Background(), opKinds...); err != nil {
		s.stmts.Close()
		_ = db.Close()
		return nil, errors.WithMessage(err, "preparing statements")
	}
	s.runner = queryRunner{stmts: s.stmts}

	log.WithFields(log.Fields{
		"path":          cfg.Path,
		"coalesceDelay": cfg.CoalesceDelay,
	}).Info("opened saved-product store")

	return s, nil
}

// Registry returns the Registry which tracks changes of the Store.
func (s *Store) Registry() *Registry { return s.registry }

// RunInTransaction runs |fn| within a transaction of the Store. Store
// operations invoked with the Context passed to |fn| join the transaction,
// and WatchAll streams observe all of its writes as a single change.
// Operations invoked with any other Context wait for the transaction to
// complete, so |fn| must not use one.
func (s *Store) RunInTransaction(ctx context.Context, fn func(context.Context, *Txn) error) error {
	return s.exec.RunInTransaction(ctx, fn)
}

// Insert the SavedProduct, replacing any prior SavedProduct of its barcode.
func (s *Store) Insert(ctx context.Context, p SavedProduct) error {
	return s.exec.RunInTransaction(ctx, func(ctx context.Context, txn *Txn) error {
		var h, err = s.stmts.Acquire(ctx, OpInsert)
		if err != nil {
			return err
		}
		defer s.stmts.Release(h)

		if _, err = h.Stmt().ExecContext(ctx, encodeProduct(p)...); err != nil {
			return storageErr("inserting saved product", err)
		}
		txn.Invalidate(SavedProductsTable)
		return nil
	})
}

// DeleteByBarcode removes the SavedProduct of |barcode|. Deleting an absent
// barcode succeeds, and changes nothing.
func (s *Store) DeleteByBarcode(ctx context.Context, barcode string) error {
	return s.exec.RunInTransaction(ctx, func(ctx context.Context, txn *Txn) error {
		var h, err = s.stmts.Acquire(ctx, OpDeleteByKey)
		if err != nil {
			return err
		}
		defer s.stmts.Release(h)

		res, err := h.Stmt().ExecContext(ctx, barcode)
		if err != nil {
			return storageErr("deleting saved product", err)
		}
		if n, err := res.RowsAffected(); err != nil || n != 0 {
			txn.Invalidate(SavedProductsTable)
		}
		return nil
	})
}

// Exists returns whether a SavedProduct of |barcode| is stored.
func (s *Store) Exists(ctx context.Context, barcode string) (bool, error) {
	return s.runner.exists(ctx, barcode)
}

// Get returns the SavedProduct of |barcode|, or ErrNotFound.
func (s *Store) Get(ctx context.Context, barcode string) (SavedProduct, error) {
	return s.runner.get(ctx, barcode)
}

// QueryAll returns all SavedProducts, in insertion order.
func (s *Store) QueryAll(ctx context.Context) ([]SavedProduct, error) {
	return s.runner.queryAll(ctx)
}

// WatchAll returns a ProductStream of all SavedProducts.
func (s *Store) WatchAll() (*ProductStream, error) {
	var sub, err = s.registry.Subscribe(func(ctx context.Context) (interface{}, error) {
		return s.runner.queryAll(ctx)
	}, SavedProductsTable)

	if err != nil {
		return nil, err
	}
	return &ProductStream{sub: sub}, nil
}

// Close the Store, closing open streams, statements, and the database.
func (s *Store) Close() error {
	s.registry.Close()
	s.stmts.Close()

	if err := s.DB.Close(); err != nil {
		log.WithFields(log.Fields{
			"path": s.cfg.Path,
			"err":  err,
		}).Error("failed to close SQLite DB")
		return err
	}
	return nil
}

// ProductStream is a live view of all SavedProducts.
type ProductStream struct {
	sub *Subscription
}

// ID identifies the ProductStream's Subscription.
func (ps *ProductStream) ID() uuid.UUID { return ps.sub.ID }

// Next returns the current SavedProducts on its first call, and thereafter
// blocks until a change has committed and returns the updated SavedProducts.
// See Subscription.Next.
func (ps *ProductStream) Next(ctx context.Context) ([]SavedProduct, error) {
	var snap, err = ps.sub.Next(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Value.([]SavedProduct), nil
}

// Close the ProductStream. No SavedProducts are returned after Close.
func (ps *ProductStream) Close() { ps.sub.Close() }
