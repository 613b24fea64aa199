package store

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/edqs/lib/db"
	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/google/uuid"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() db.SnapshotDB

// Row is one object of the working set together with the tenant it belongs to.
type Row struct {
	TenantID uuid.UUID
	Object   edqs.Object
}

// Key returns the snapshot key of the row: the tenant id followed by the
// storage key of the object.
func (r Row) Key() string {
	return r.TenantID.String() + "/" + r.Object.StorageKey()
}

// ParseKey splits a snapshot key into the tenant id and the object type.
func ParseKey(key string) (uuid.UUID, edqs.ObjectType, error) {
	tenant, rest, found := strings.Cut(key, "/")
	if !found {
		return uuid.Nil, 0, fmt.Errorf("malformed snapshot key %q", key)
	}
	tenantID, err := uuid.Parse(tenant)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("malformed tenant in snapshot key %q: %w", key, err)
	}
	t, err := edqs.ObjectTypeOfStorageKey(rest)
	if err != nil {
		return uuid.Nil, 0, err
	}
	return tenantID, t, nil
}

// SyncStats summarizes one Sync call.
type SyncStats struct {
	Written   int // rows that were new or changed
	Unchanged int // rows whose encoding matched the last written one
	Deleted   int // rows that were no longer part of the working set
}

// LoadStats summarizes one Load call.
type LoadStats struct {
	Loaded  int // rows decoded and handed to the visitor
	Skipped int // rows that could not be decoded
}

// IStore persists the working set as rows of a db.SnapshotDB. Every row is
// encoded with the object codec; the store remembers what it has written so
// that a sync only touches rows that changed.
type IStore interface {
	// Open initializes the underlying db. fresh is true if it held no data before.
	Open() (fresh bool, err error)
	// Close closes the underlying db. It is idempotent.
	Close() (err error)
	// Sync makes the db hold exactly the given rows: new and changed rows are
	// written, rows that are not part of rows anymore are deleted. Stale rows
	// are only deleted if all writes succeeded.
	Sync(rows []Row) (stats SyncStats, err error)
	// Load decodes every row of the db and passes it to visit, in key order.
	// Rows that cannot be decoded are logged and skipped; they are deleted by the next Sync.
	// An error returned from visit stops the scan.
	Load(visit func(row Row) error) (stats LoadStats, err error)
	// GetDBInfo returns metadata about the database underlying the store.
	GetDBInfo() (info db.DatabaseInfo)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
	Err  error   // The underlying error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	var errorCode string
	switch e.Code {
	case RetCInternalError:
		errorCode = "InternalError"
	case RetCNotOpen:
		errorCode = "NotOpen"
	case RetCEncodeError:
		errorCode = "EncodeError"
	case RetCStorageError:
		errorCode = "StorageError"
	default:
		errorCode = "Unknown"
	}

	if e.Err != nil {
		return fmt.Sprintf("StoreError (code %s): %s: %v", errorCode, e.Msg, e.Err)
	}
	return fmt.Sprintf("StoreError (code %s): %s", errorCode, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new store error with the given code and message.
func NewError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess       RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                // 1: Operation failed due to an internal error.
	RetCNotOpen                      // 2: The store was not opened or is closed.
	RetCEncodeError                  // 3: An object could not be encoded.
	RetCStorageError                 // 4: The underlying db failed.
)
