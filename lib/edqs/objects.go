package edqs

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ObjectTypeUnknown is reported by entities whose type is not held by the store.
const ObjectTypeUnknown ObjectType = 255

// Relation type groups and well known relation types. Only the COMMON group
// takes part in relation queries.
const (
	RelationTypeGroupCommon    = "COMMON"
	RelationTypeGroupDashboard = "DASHBOARD"
	RelationTypeContains       = "Contains"
	RelationTypeManages        = "Manages"
)

// --------------------------------------------------------------------------
// Object Interfaces
// --------------------------------------------------------------------------

// KeyResolver maps a key name to its dictionary id, assigning a new id
// if the name has not been seen before.
type KeyResolver interface {
	ID(key string) int32
}

// ObjectKey is the identity of a stored object. All implementations are
// comparable value types and can be used as map keys.
type ObjectKey interface {
	ObjectType() ObjectType
}

// Object is any record held by the store.
type Object interface {
	// ObjectType returns the category of the record.
	ObjectType() ObjectType
	// IdentityKey returns the identity key. Dynamic key names are resolved through r.
	IdentityKey(r KeyResolver) ObjectKey
	// StorageKey returns the key under which the record is snapshotted. It
	// uses key names instead of dictionary ids because the dictionary is
	// rebuilt on every start.
	StorageKey() string
}

// Versioned is implemented by objects that carry a monotonically growing version.
type Versioned interface {
	Object
	GetVersion() int64
}

// --------------------------------------------------------------------------
// Identity Keys
// --------------------------------------------------------------------------

type EntityKey struct {
	EntityID EntityID
}

func (k EntityKey) ObjectType() ObjectType {
	t, ok := ObjectTypeOf(k.EntityID.Type)
	if !ok {
		return ObjectTypeUnknown
	}
	return t
}

type RelationKey struct {
	From      EntityID
	To        EntityID
	TypeGroup string
	Type      string
}

func (RelationKey) ObjectType() ObjectType { return ObjectTypeRelation }

type AttributeKvKey struct {
	EntityID EntityID
	Scope    AttributeScope
	KeyID    int32
}

func (AttributeKvKey) ObjectType() ObjectType { return ObjectTypeAttributeKv }

type LatestTsKvKey struct {
	EntityID EntityID
	KeyID    int32
}

func (LatestTsKvKey) ObjectType() ObjectType { return ObjectTypeLatestTsKv }

// --------------------------------------------------------------------------
// Entity
// --------------------------------------------------------------------------

// Entity is the generic, schema-less representation of a platform entity.
type Entity struct {
	EntityType EntityType
	ID         uuid.UUID
	Fields     Fields
}

func (e *Entity) EntityID() EntityID {
	return EntityID{Type: e.EntityType, ID: e.ID}
}

func (e *Entity) ObjectType() ObjectType {
	t, ok := ObjectTypeOf(e.EntityType)
	if !ok {
		return ObjectTypeUnknown
	}
	return t
}

func (e *Entity) IdentityKey(KeyResolver) ObjectKey {
	return EntityKey{EntityID: e.EntityID()}
}

func (e *Entity) StorageKey() string {
	return e.EntityType.String() + "/" + e.ID.String()
}

// GetVersion returns the "version" field, or 0 if the entity has none.
func (e *Entity) GetVersion() int64 {
	v, _ := e.Fields.GetInt64(FieldVersion)
	return v
}

func (e *Entity) String() string {
	return fmt.Sprintf("Entity{%s, %d fields}", e.EntityID(), len(e.Fields))
}

// --------------------------------------------------------------------------
// Relation
// --------------------------------------------------------------------------

// EntityRelation is a directed, typed edge between two entities. It has no
// surrogate id, the 4-tuple is its identity.
type EntityRelation struct {
	From      EntityID
	To        EntityID
	TypeGroup string
	Type      string
}

func (r *EntityRelation) ObjectType() ObjectType { return ObjectTypeRelation }

func (r *EntityRelation) IdentityKey(KeyResolver) ObjectKey {
	return RelationKey{From: r.From, To: r.To, TypeGroup: r.TypeGroup, Type: r.Type}
}

func (r *EntityRelation) StorageKey() string {
	return strings.Join([]string{ObjectTypeRelation.String(), r.From.String(), r.TypeGroup, r.Type, r.To.String()}, "/")
}

// --------------------------------------------------------------------------
// Attribute
// --------------------------------------------------------------------------

type AttributeKv struct {
	EntityID EntityID
	Scope    AttributeScope
	Key      string
	Version  int64
	Value    *DataPoint
}

func (a *AttributeKv) ObjectType() ObjectType { return ObjectTypeAttributeKv }

func (a *AttributeKv) IdentityKey(r KeyResolver) ObjectKey {
	return AttributeKvKey{EntityID: a.EntityID, Scope: a.Scope, KeyID: r.ID(a.Key)}
}

func (a *AttributeKv) StorageKey() string {
	return strings.Join([]string{ObjectTypeAttributeKv.String(), a.EntityID.String(), a.Scope.String(), a.Key}, "/")
}

func (a *AttributeKv) GetVersion() int64 { return a.Version }

// --------------------------------------------------------------------------
// Latest Time Series Value
// --------------------------------------------------------------------------

type LatestTsKv struct {
	EntityID EntityID
	Key      string
	Version  int64
	Value    *DataPoint
}

func (l *LatestTsKv) ObjectType() ObjectType { return ObjectTypeLatestTsKv }

func (l *LatestTsKv) IdentityKey(r KeyResolver) ObjectKey {
	return LatestTsKvKey{EntityID: l.EntityID, KeyID: r.ID(l.Key)}
}

func (l *LatestTsKv) StorageKey() string {
	return strings.Join([]string{ObjectTypeLatestTsKv.String(), l.EntityID.String(), l.Key}, "/")
}

func (l *LatestTsKv) GetVersion() int64 { return l.Version }

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ObjectTypeOfStorageKey extracts the object type from a snapshot row key.
func ObjectTypeOfStorageKey(key string) (ObjectType, error) {
	prefix, _, found := strings.Cut(key, "/")
	if !found {
		return 0, fmt.Errorf("malformed storage key %q", key)
	}
	return ParseObjectType(prefix)
}
