// Package db defines the SnapshotDB interface: an embedded, ordered
// key-value store that holds a persistent copy of the query working set so
// that it can be reloaded after a restart instead of being rebuilt from the
// upstream source.
//
// Key Components:
//
//   - SnapshotDB Interface: Init opens the store and reports whether it was
//     freshly created. Put, Delete and ForEach operate on rows keyed by the
//     object storage key. Close is idempotent.
//
//   - Feature Flags: implementations advertise durability, ordered scans and
//     the freshness tag through SupportsFeature.
//
//   - StorageError: every failure of an open store is wrapped with the
//     failed operation and key. Operations on a store that is not open
//     return ErrNotOpen.
//
// Related Packages:
//
// The engines/pebbledb package provides the durable implementation on top of
// cockroachdb/pebble. The engines/memdb package keeps rows in a b-tree and is
// used in tests and when no data directory is configured.
//
// The testing package provides RunSnapshotDBTests and RunSnapshotDBBenchmarks,
// a conformance suite and benchmarks shared by all engines.
package db
