package store

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by point lookups of an absent barcode.
	ErrNotFound = errors.New("saved product not found")
	// ErrSubscriptionClosed is returned by Next of a closed Subscription.
	ErrSubscriptionClosed = errors.New("subscription closed")
	// ErrWithinTransaction is returned by Next of a Subscription when its
	// Context carries an open transaction. Snapshots reflect committed state
	// only, which cannot be read while the transaction holds the connection.
	ErrWithinTransaction = errors.New("subscription read within a transaction")
	// ErrUnknownTable is returned when subscribing to a Table the Registry
	// does not track.
	ErrUnknownTable = errors.New("unknown table")
)

// DecodeError is returned when a result row cannot be mapped to a
// SavedProduct, because an expected column is absent or holds a value of
// the wrong type. It indicates a schema mismatch and is not retried.
type DecodeError struct {
	Column string
	Err    error // Nil if the column is absent.
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decoding saved product: column %q not present in result", e.Column)
	}
	return fmt.Sprintf("decoding saved product: column %q: %s", e.Column, e.Err)
}

func (e *DecodeError) Cause() error  { return e.Err }
func (e *DecodeError) Unwrap() error { return e.Err }

// StorageError is returned when the SQLite engine refuses or fails an
// operation. Mutating operations return StorageError only after their
// transaction has been rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *StorageError) Cause() error  { return e.Err }
func (e *StorageError) Unwrap() error { return e.Err }

// Code returns the SQLite primary result code of the failure, or zero if
// the failure didn't originate from SQLite.
func (e *StorageError) Code() sqlite3.ErrNo {
	var se sqlite3.Error
	if errors.As(e.Err, &se) {
		return se.Code
	}
	return 0
}

// SubscriptionError is the terminal error delivered by a Subscription whose
// query failed during re-evaluation. The Subscription is closed once it has
// been delivered.
type SubscriptionError struct {
	ID  uuid.UUID
	Err error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription %s: re-evaluation failed: %s", e.ID, e.Err)
}

func (e *SubscriptionError) Cause() error  { return e.Err }
func (e *SubscriptionError) Unwrap() error { return e.Err }

// storageErr wraps |err| as a *StorageError of |op|. Errors which are already
// classified (DecodeError or StorageError) pass through unchanged.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DecodeError
	var se *StorageError

	if errors.As(err, &de) || errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
