package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.arnest.dev/scan/metrics"
)

// TableSet is a set of Tables.
type TableSet map[Table]struct{}

// NewTableSet returns a TableSet of |tables|.
func NewTableSet(tables ...Table) TableSet {
	var s = make(TableSet, len(tables))
	s.Add(tables...)
	return s
}

// Add |tables| to the TableSet.
func (s TableSet) Add(tables ...Table) {
	for _, t := range tables {
		s[t] = struct{}{}
	}
}

// Contains returns true if |t| is a member of the TableSet.
func (s TableSet) Contains(t Table) bool {
	var _, ok = s[t]
	return ok
}

// Sorted returns members of the TableSet in sorted order.
func (s TableSet) Sorted() []Table {
	var out = make([]Table, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Registry tracks committed changes of a fixed set of Tables, and the
// Subscriptions which observe them.
//
// Each Table has a revision which is incremented by every committed
// transaction that writes it. A Subscription compares the combined revision
// of its watched Tables against that of its last delivered Snapshot to
// decide whether its query must be re-evaluated. Any number of commits
// between two evaluations collapse into a single re-evaluation, and a
// commit is never missed because the combined revision is captured before
// the query runs.
type Registry struct {
	// CoalesceDelay is the duration for which a Subscription, having observed
	// a change, waits for further changes before re-evaluating its query.
	// This Nagle-like mechanism amortizes re-evaluation over bursts of
	// commits. Zero disables the delay.
	CoalesceDelay time.Duration

	mu        sync.Mutex
	revisions map[Table]int64
	updateCh  chan struct{} // Closed and replaced on each notification.
	subs      map[uuid.UUID]*Subscription
	closed    bool
}

// NewRegistry returns a Registry tracking |tables|.
func NewRegistry(tables ...Table) *Registry {
	var r = &Registry{
		revisions: make(map[Table]int64, len(tables)),
		updateCh:  make(chan struct{}),
		subs:      make(map[uuid.UUID]*Subscription),
	}
	for _, t := range tables {
		r.revisions[t] = 0
	}
	return r
}

// Subscribe returns a new Subscription to |query|, which is re-evaluated
// after each committed change of any of the |watched| Tables. Every watched
// Table must be tracked by the Registry.
func (r *Registry) Subscribe(query QueryFunc, watched ...Table) (*Subscription, error) {
	if len(watched) == 0 {
		return nil, errors.New("subscription must watch at least one table")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errors.New("registry is closed")
	}
	for _, t := range watched {
		if _, ok := r.revisions[t]; !ok {
			return nil, errors.WithMessagef(ErrUnknownTable, "table %q", t)
		}
	}

	var sub = &Subscription{
		ID:       uuid.New(),
		registry: r,
		query:    query,
		tables:   NewTableSet(watched...),
		sem:      make(chan struct{}, 1),
		done:     make(chan struct{}),
		seen:     -1,
	}
	r.subs[sub.ID] = sub
	metrics.SubscriptionsActive.Inc()

	log.WithFields(log.Fields{
		"id":     sub.ID,
		"tables": sub.tables.Sorted(),
	}).Debug("subscribed")

	return sub, nil
}

// NotifyTablesChanged is called with the Tables written by a committed
// transaction. It must not be called for a transaction that rolled back.
func (r *Registry) NotifyTablesChanged(tables TableSet) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed bool
	for t := range tables {
		if _, ok := r.revisions[t]; !ok {
			log.WithField("table", t).Warn("notified of change to untracked table (ignoring)")
			continue
		}
		r.revisions[t]++
		changed = true
		metrics.TableNotificationsTotal.WithLabelValues(string(t)).Inc()
	}
	if changed {
		close(r.updateCh)
		r.updateCh = make(chan struct{})
	}
}

// Revision returns the current revision of Table |t|.
func (r *Registry) Revision(t Table) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.revisions[t]
}

// Len returns the number of open Subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.subs)
}

// Close the Registry and all of its open Subscriptions.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	var subs = make([]*Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}

// watermark returns the combined revision of |tables|, and a channel which
// is closed upon the next notification.
func (r *Registry) watermark(tables TableSet) (int64, <-chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sum int64
	for t := range tables {
		sum += r.revisions[t]
	}
	return sum, r.updateCh
}

func (r *Registry) remove(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[sub.ID]; ok {
		delete(r.subs, sub.ID)
		metrics.SubscriptionsActive.Dec()
	}
}
