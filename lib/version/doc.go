// Package version implements the per-key version gate used by ingestion to
// drop stale or out-of-order updates.
//
// A Gate maps identity keys to the last admitted version. IsNew performs an
// atomic compare-and-set per key on top of xsync.MapOf.Compute. A background
// goroutine sweeps entries that were not touched within the configured TTL,
// once per TTL period. The gate never returns errors.
package version
