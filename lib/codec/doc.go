// Package codec converts store objects into byte payloads and back.
//
// Two strategies exist, selected by object type when the codec is created:
//
//   - A binary layout for AttributeKv and LatestTsKv following the protobuf
//     wire format of AttributeKvProto/LatestTsKvProto: entity id as two
//     64-bit halves, entity type, scope (attributes only), key, version and
//     an optional embedded DataPointProto. Large string and json values are
//     written to the compressed slots of the data point.
//   - A generic json encoding for entities and relations. Unknown object
//     types fall back to this strategy.
//
// Decoding failures are reported as *DecodeError.
package codec
