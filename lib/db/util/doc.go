// Package util provides helpers shared by the db.SnapshotDB engines.
//
// The package contains:
//   - statistics: a SizeHistogram that tracks the distribution of written value sizes,
//     reported through db.DatabaseInfo metadata
package util
