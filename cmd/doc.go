// Package cmd implements the command-line interface of edqs. It provides a
// hierarchical command structure for running a node and for working with a
// snapshot store offline.
//
// The package is organized into several subpackages:
//
//   - serve: Runs a node that applies change events and snapshots periodically
//   - snapshot: Commands on a snapshot store (inspect, ingest, query, count, stats)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as an environment variable EDQS_<FLAG>, .env and
// .env.local files in the working directory are loaded first.
//
// See edqs -help for a list of all commands.
package cmd
