// Package testing provides standardised tests and benchmarks for
// database implementations that satisfy the db.SnapshotDB interface.
//
// The package contains:
//   - testing: A conformance suite for the SnapshotDB lifecycle and row operations
//   - benchmark: Throughput tests for writes, deletes, full scans and reopening
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func(path string) db.SnapshotDB {
//		return NewMyDatabase(path)
//	}
//
//	// Running the standard test suite
//	testing.RunSnapshotDBTests(t, "MyDatabase", factory)
//
//	// Running performance benchmarks
//	testing.RunSnapshotDBBenchmarks(b, "MyDatabase", factory)
package testing
