// Package store persists the working set of the query service as rows of an
// embedded snapshot database. It sits between the in-memory repository and
// the lower-level db.SnapshotDB engines and adds the object codec, change
// detection and unified error reporting.
//
// Key Components:
//
//   - IStore Interface: Open, Sync, Load and Close a snapshot. Sync takes the
//     complete set of rows and makes the database hold exactly that set, Load
//     decodes every row back into an object.
//
//   - Row: an object of the working set tagged with its tenant. The row key
//     is "<tenant id>/<storage key>", where the storage key starts with the
//     object type name. ParseKey reverses the tagging.
//
//   - Error System: typed return codes (NotOpen, EncodeError, StorageError)
//     wrapping the underlying cause, so callers can tell a broken encoding
//     from a failing disk.
//
//   - DBFactory: A function type that abstracts the creation of the underlying
//     db.SnapshotDB, so the same store works on pebble and on the in-memory engine.
//
// Implementations:
//
//	- Local Store (lstore): encodes rows in parallel on a bounded worker pool
//	  and skips rows whose encoding did not change since the last write.
//	  Available in the "github.com/ValentinKolb/edqs/lib/store/lstore" package.
package store
