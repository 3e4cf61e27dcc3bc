package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.arnest.dev/scan/metrics"
)

// QueryFunc evaluates a watched query. It's invoked by Subscription.Next
// with the Context passed to Next.
type QueryFunc func(ctx context.Context) (interface{}, error)

// Snapshot is a materialized result of a Subscription's query.
type Snapshot struct {
	// Revision is the combined revision of the watched Tables, captured
	// before the query was evaluated. Value reflects at least all commits
	// through Revision. Revisions of successive Snapshots strictly increase.
	Revision int64
	Value    interface{}
}

// Subscription is a live view of a query over a set of watched Tables.
type Subscription struct {
	ID uuid.UUID

	registry *Registry
	query    QueryFunc
	tables   TableSet

	sem  chan struct{} // Serializes Next.
	seen int64         // Revision of the last delivered Snapshot, or -1. Guarded by |sem|.

	mu     sync.Mutex
	closed bool
	done   chan struct{} // Closed with |closed|.
}

// Tables returns the Tables watched by the Subscription.
func (s *Subscription) Tables() []Table { return s.tables.Sorted() }

// Next returns the next Snapshot of the Subscription. The first call
// evaluates the query immediately. Later calls block until a watched Table
// has changed since the previous Snapshot, and then re-evaluate.
//
// Concurrent calls are serialized, so Snapshots are delivered in order.
// Next returns ErrSubscriptionClosed once the Subscription is closed,
// including when Close races an evaluation already in flight, whose result
// is then discarded. If the query fails, Next returns a *SubscriptionError
// and the Subscription is closed. Cancellation of |ctx| returns its error
// and leaves the Subscription open.
//
// Snapshots reflect committed state only. A |ctx| carrying a transaction of
// RunInTransaction is refused with ErrWithinTransaction, again leaving the
// Subscription open.
func (s *Subscription) Next(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	} else if txnFromContext(ctx) != nil {
		return Snapshot{}, ErrWithinTransaction
	}
	select {
	case s.sem <- struct{}{}:
	case <-s.done:
		return Snapshot{}, ErrSubscriptionClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	defer func() { <-s.sem }()

	var rev, err = s.awaitChange(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	var value interface{}
	value, err = s.query(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		metrics.DiscardedSnapshotsTotal.Inc()
		return Snapshot{}, ErrSubscriptionClosed
	} else if err != nil && ctx.Err() != nil {
		return Snapshot{}, ctx.Err()
	} else if err != nil {
		metrics.ReevaluationsTotal.WithLabelValues(metrics.Fail).Inc()

		log.WithFields(log.Fields{
			"id":     s.ID,
			"tables": s.tables.Sorted(),
			"err":    err,
		}).Warn("subscription query failed (closing)")

		s.closeLocked()
		return Snapshot{}, &SubscriptionError{ID: s.ID, Err: err}
	}
	metrics.ReevaluationsTotal.WithLabelValues(metrics.Ok).Inc()

	s.seen = rev
	return Snapshot{Revision: rev, Value: value}, nil
}

// awaitChange blocks until the combined revision of watched Tables differs
// from that last delivered, and returns it.
func (s *Subscription) awaitChange(ctx context.Context) (int64, error) {
	for {
		var rev, updateCh = s.registry.watermark(s.tables)

		if s.isClosed() {
			return 0, ErrSubscriptionClosed
		} else if s.seen == -1 {
			return rev, nil // Initial evaluation.
		} else if rev != s.seen {
			break
		}

		select {
		case <-updateCh:
		case <-s.done:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	if d := s.registry.CoalesceDelay; d > 0 {
		var timer = time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-s.done:
			return 0, ErrSubscriptionClosed
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	// Re-capture, folding changes which arrived while delayed.
	var rev, _ = s.registry.watermark(s.tables)
	return rev, nil
}

// Close the Subscription. Close is idempotent, and no Snapshot is delivered
// after it returns.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked()
}

func (s *Subscription) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	s.registry.remove(s)

	log.WithField("id", s.ID).Debug("subscription closed")
}

func (s *Subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
