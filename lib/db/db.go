package db

import "fmt"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplPebble Implementation = "pebble"
	ImplMemory Implementation = "memory"
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureDurable      Feature = 1 << iota // Data survives a process restart
	FeatureOrderedScan                      // ForEach visits keys in lexicographic order
	FeatureFreshnessTag                     // Init reports whether the store was freshly created
)

func (f Feature) String() string {
	switch f {
	case FeatureDurable:
		return "Durable"
	case FeatureOrderedScan:
		return "OrderedScan"
	case FeatureFreshnessTag:
		return "FreshnessTag"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	Path              string         `json:"path"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// SnapshotDB is an embedded ordered key-value store used to snapshot the
// working set so that it can be reloaded after a restart.
//
// Concurrency: Put, Delete and ForEach may run concurrently with each other
// and rely on the engine's own guarantees. Init and Close are lifecycle
// boundaries and must not overlap with any other call.
type SnapshotDB interface {

	// --------------------------------------------------------------------------
	// Lifecycle
	// --------------------------------------------------------------------------

	// Init creates missing parent directories and opens the engine. fresh is
	// true if no data existed before, callers use it to choose between a full
	// resynchronization and an incremental catch-up. Failures are fatal.
	Init() (fresh bool, err error)

	// Close releases the engine. It is idempotent and a no-op before Init.
	Close() (err error)

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Put inserts or overwrites a row.
	Put(key string, value []byte) (err error)

	// Delete removes a row. Deleting a missing key is not an error.
	Delete(key string) (err error)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// ForEach visits every row in key order, starting at the first key. The
	// value slice is only valid during the call. Returning an error from
	// visit stops the scan and returns that error.
	ForEach(visit func(key string, value []byte) error) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the implementation supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// StorageError wraps a failure of an operation on an open store.
type StorageError struct {
	Op  string // The failed operation (put, delete, scan, open, ...)
	Key string // The affected key, empty for whole-store operations
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage error (%s %q): %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage error (%s): %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError.
func NewStorageError(op, key string, err error) *StorageError {
	return &StorageError{Op: op, Key: key, Err: err}
}

// ErrNotOpen is returned by operations on a store that was never initialized or is closed.
var ErrNotOpen = fmt.Errorf("store is not open")
