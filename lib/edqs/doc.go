// Package edqs defines the record model of the entity data query store.
//
// Every record held by the store implements Object: it knows its ObjectType,
// can compute a comparable identity key (ObjectKey) and a snapshot row key.
// The concrete records are:
//
//   - Entity: a platform entity as a schema-less field bag. Strongly typed
//     domain structs (Device, Asset, Customer, ...) are flattened through
//     their explicit ToFields method.
//   - EntityRelation: a typed edge between two entities, identified by content.
//   - AttributeKv: an attribute value of an entity in one of three scopes.
//   - LatestTsKv: the latest time series value of an entity.
//
// Values are carried by DataPoint, a plain tagged struct. Compressed string
// and json payloads are kept as bytes and decoded on demand with a
// Decompressor supplied by the caller.
package edqs
