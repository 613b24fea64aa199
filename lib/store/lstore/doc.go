// Package lstore implements store.IStore on top of a single local
// db.SnapshotDB.
//
// Implementation Details:
//
//   - Change Detection: the store keeps the xxhash of the last value it wrote
//     (or found while opening or loading) for every row key. Sync only writes
//     rows whose encoding hashes differently and deletes every known key that
//     is not part of the new row set.
//
//   - Parallel Encoding: rows are encoded and written by a bounded
//     sourcegraph/conc pool. The first failing row aborts the sync before any
//     stale row is deleted, so a failed sync never loses data.
//
//   - Lenient Loading: rows with a malformed key or payload are logged and
//     skipped. Their keys stay known to the store and are removed by the next
//     successful Sync.
//
// Thread Safety:
//
//	Open and Close are serialized with a mutex. Sync and Load rely on the
//	engine's own guarantees and must not overlap with Open or Close.
//
// Usage Example:
//
//	factory := func() db.SnapshotDB { return pebbledb.NewPebbleDB(pebbledb.Options{Path: dir}) }
//	s := lstore.NewLocalStore(factory, objectCodec, lstore.Options{})
//	fresh, err := s.Open()
//	...
//	stats, err := s.Sync(rows)
package lstore
