// Package repo is the in-memory working set of the entity data query store.
//
// The working set is split per tenant. Every tenant holds one EntityData
// record per entity (fields, attributes and latest time series values) and
// an adjacency index of its COMMON relations. Change events are applied
// with Repo.Apply; versioned objects pass the version gate first so that
// late deliveries of older versions are dropped.
//
// Implementation Details:
//
//   - Customer Scoping: customer users see the entities owned by their
//     customer, the customer itself and the dashboards assigned to it through
//     a DASHBOARD/Contains relation.
//
//   - Queries: candidates are selected per entity filter, matched with the
//     query.Evaluator, sorted with its comparators and paged. Latest values
//     without their own timestamp are rendered with the current time.
//
//   - Persistence: Repo.Snapshot hands every object to a store.IStore which
//     only rewrites changed rows. Repo.Restore replays a store as updates.
//     The Scheduler snapshots periodically with gocron.
//
// Usage Example:
//
//	r, err := repo.New(repo.Options{})
//	r.Apply(repo.Event{TenantID: tenant, Type: repo.EventUpdated, Object: edqs.NewEntity(device)})
//	page, err := r.FindEntityDataByQuery(query.QueryContext{TenantID: tenant}, q)
package repo
