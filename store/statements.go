package store

import (
	"context"
	"database/sql"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.arnest.dev/scan/metrics"
)

// OpKind enumerates the fixed set of statement shapes used by the store.
type OpKind int

const (
	OpInsert OpKind = iota
	OpDeleteByKey
	OpExists
	OpGet
	OpQueryAll
)

var opKinds = []OpKind{OpInsert, OpDeleteByKey, OpExists, OpGet, OpQueryAll}

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpDeleteByKey:
		return "delete-by-key"
	case OpExists:
		return "exists"
	case OpGet:
		return "get"
	case OpQueryAll:
		return "query-all"
	default:
		return "OpKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// SQL returns the statement text of the OpKind.
func (k OpKind) SQL() string {
	switch k {
	case OpInsert:
		return "INSERT OR REPLACE INTO `saved_products` " +
			"(`barcode`,`name`,`imageUrls`,`composition`,`safetyStatus`) VALUES (?,?,?,?,?)"
	case OpDeleteByKey:
		return "DELETE FROM saved_products WHERE barcode = ?"
	case OpExists:
		return "SELECT EXISTS(SELECT 1 FROM saved_products WHERE barcode = ?)"
	case OpGet:
		return "SELECT * FROM saved_products WHERE barcode = ?"
	case OpQueryAll:
		return "SELECT * FROM saved_products ORDER BY rowid"
	default:
		return ""
	}
}

// preparer is implemented by *sql.DB and *sql.Tx.
type preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// StatementCache owns prepared statements of each OpKind. It holds at most
// one shared statement per OpKind, which is handed out to one Handle at a
// time. An Acquire which finds the shared statement in use is instead given
// an independent statement, which is closed on Release. No bind state is
// ever shared between concurrent Handles.
//
// Shared statements are held in an LRU of bounded size. A shared statement
// evicted while in use is closed when its Handle is released.
type StatementCache struct {
	db preparer

	mu     sync.Mutex
	shared *lru.Cache // OpKind => *sharedStmt.
	closed bool
}

type sharedStmt struct {
	stmt    *sql.Stmt
	inUse   bool
	evicted bool
}

// Handle is an acquired statement. It must be released to the
// StatementCache from which it was acquired.
type Handle struct {
	Kind OpKind

	base     *sql.Stmt   // Shared or single-use statement prepared against the DB.
	bound    *sql.Stmt   // |base| bound to the current transaction, if any.
	shared   *sharedStmt // Nil if |base| is single-use.
	released bool
}

// Stmt returns the statement to execute. Within a transaction, it's bound to
// that transaction.
func (h *Handle) Stmt() *sql.Stmt {
	if h.bound != nil {
		return h.bound
	}
	return h.base
}

// NewStatementCache returns a StatementCache which prepares statements
// against |db|, retaining up to |size| shared statements.
func NewStatementCache(db preparer, size int) (*StatementCache, error) {
	var sc = &StatementCache{db: db}
	var err error

	if sc.shared, err = lru.NewWithEvict(size, sc.onEvict); err != nil {
		return nil, errors.WithMessage(err, "building statement LRU")
	}
	return sc, nil
}

// Warm prepares shared statements of each of |kinds| which aren't yet cached.
func (sc *StatementCache) Warm(ctx context.Context, kinds ...OpKind) error {
	for _, kind := range kinds {
		var h, err = sc.Acquire(ctx, kind)
		if err != nil {
			return err
		}
		sc.Release(h)
	}
	return nil
}

// Acquire a Handle for the OpKind. If |ctx| carries a transaction, the
// Handle's statement is bound to it.
func (sc *StatementCache) Acquire(ctx context.Context, kind OpKind) (*Handle, error) {
	var query = kind.SQL()
	if query == "" {
		return nil, errors.Errorf("unknown statement kind %s", kind)
	}
	var txn = txnFromContext(ctx)

	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return nil, errors.New("statement cache is closed")
	}
	var shared *sharedStmt
	if v, ok := sc.shared.Get(kind); ok {
		shared = v.(*sharedStmt)
	}
	if shared != nil && !shared.inUse {
		shared.inUse = true
		sc.mu.Unlock()

		var h = &Handle{Kind: kind, base: shared.stmt, shared: shared}
		if txn != nil {
			h.bound = txn.tx.StmtContext(ctx, shared.stmt)
		}
		return h, nil
	}
	sc.mu.Unlock()

	// Within a transaction, statements must be prepared on the transaction's
	// own connection: the DB may have no other connection to offer.
	if txn != nil {
		return sc.prepare(ctx, txn.tx, kind, query, false)
	}
	return sc.prepare(ctx, sc.db, kind, query, shared == nil)
}

func (sc *StatementCache) prepare(ctx context.Context, db preparer, kind OpKind, query string, share bool) (*Handle, error) {
	var stmt, err = db.PrepareContext(ctx, query)
	if err != nil {
		return nil, storageErr("preparing "+kind.String()+" statement", err)
	}
	metrics.StatementsPreparedTotal.WithLabelValues(kind.String(), strconv.FormatBool(share)).Inc()

	var h = &Handle{Kind: kind, base: stmt}
	if !share {
		return h, nil
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.closed {
		return h, nil // Remains single-use.
	} else if _, ok := sc.shared.Peek(kind); ok {
		return h, nil // Raced with another Acquire, which shared its statement first.
	}
	h.shared = &sharedStmt{stmt: stmt, inUse: true}
	sc.shared.Add(kind, h.shared)

	return h, nil
}

// Release the Handle. Release is idempotent, and a released shared statement
// may be re-acquired.
func (sc *StatementCache) Release(h *Handle) {
	if h == nil {
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if h.released {
		return
	}
	h.released = true

	if h.bound != nil {
		closeStmt(h.bound, h.Kind)
	}
	if h.shared == nil {
		closeStmt(h.base, h.Kind)
		return
	}
	h.shared.inUse = false

	if h.shared.evicted {
		closeStmt(h.shared.stmt, h.Kind)
	}
}

// Close the StatementCache, closing shared statements. Statements of
// outstanding Handles are closed as those Handles are released.
func (sc *StatementCache) Close() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.closed = true
	sc.shared.Purge()
}

// onEvict is invoked by the LRU from within Add or Purge, with |sc.mu| held.
func (sc *StatementCache) onEvict(key, value interface{}) {
	var s = value.(*sharedStmt)
	s.evicted = true

	if !s.inUse {
		closeStmt(s.stmt, key.(OpKind))
	}
	metrics.StatementsEvictedTotal.Inc()
}

func closeStmt(stmt *sql.Stmt, kind OpKind) {
	if err := stmt.Close(); err != nil {
		log.WithFields(log.Fields{"op": kind.String(), "err": err}).
			Warn("failed to close prepared statement")
	}
}
