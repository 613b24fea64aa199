package repo

import (
	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/ValentinKolb/edqs/lib/query"
	"github.com/google/uuid"
)

// attrKey addresses one attribute of an entity
type attrKey struct {
	keyID int32
	scope edqs.AttributeScope
}

// attributeLookupOrder is the scope order of ATTRIBUTE keys
var attributeLookupOrder = [...]edqs.AttributeScope{edqs.ScopeServer, edqs.ScopeShared, edqs.ScopeClient}

// EntityData is the working set record of one entity: its fields, its
// attributes and its latest time series values. A record may exist before
// the entity itself arrived, attributes and relations can be applied first.
//
// Thread-safety: not safe for concurrent use, guarded by the tenant lock.
type EntityData struct {
	id         edqs.EntityID
	entity     *edqs.Entity
	customerID uuid.UUID
	attributes map[attrKey]*edqs.AttributeKv
	latest     map[int32]*edqs.LatestTsKv

	// dashboards assigned to a customer, only set for customers
	dashboards map[uuid.UUID]*edqs.EntityRelation
}

func newEntityData(id edqs.EntityID) *EntityData {
	return &EntityData{
		id:         id,
		attributes: make(map[attrKey]*edqs.AttributeKv),
		latest:     make(map[int32]*edqs.LatestTsKv),
	}
}

// EntityID returns the typed id of the entity.
func (e *EntityData) EntityID() edqs.EntityID { return e.id }

// CustomerID returns the owning customer, uuid.Nil if the entity is owned by the tenant.
func (e *EntityData) CustomerID() uuid.UUID { return e.customerID }

// Fields returns the entity fields, nil before the entity arrived.
func (e *EntityData) Fields() edqs.Fields {
	if e.entity == nil {
		return nil
	}
	return e.entity.Fields
}

// Name returns the "name" field.
func (e *EntityData) Name() string {
	name, _ := e.Fields().GetString(edqs.FieldName)
	return name
}

// Type returns the "type" field (device type, asset type, ...).
func (e *EntityData) Type() string {
	t, _ := e.Fields().GetString(edqs.FieldType)
	return t
}

// isEmpty reports whether nothing but the id is left
func (e *EntityData) isEmpty() bool {
	return e.entity == nil && len(e.attributes) == 0 && len(e.latest) == 0 && len(e.dashboards) == 0
}

// --------------------------------------------------------------------------
// Mutations
// --------------------------------------------------------------------------

func (e *EntityData) setEntity(entity *edqs.Entity) {
	e.entity = entity
	e.customerID = entity.Fields.UUID(edqs.FieldCustomerID)
}

func (e *EntityData) putAttribute(a *edqs.AttributeKv, keyID int32) bool {
	k := attrKey{keyID: keyID, scope: a.Scope}
	_, existed := e.attributes[k]
	e.attributes[k] = a
	return !existed
}

func (e *EntityData) removeAttribute(keyID int32, scope edqs.AttributeScope) bool {
	k := attrKey{keyID: keyID, scope: scope}
	if _, ok := e.attributes[k]; !ok {
		return false
	}
	delete(e.attributes, k)
	return true
}

func (e *EntityData) putLatest(l *edqs.LatestTsKv, keyID int32) bool {
	_, existed := e.latest[keyID]
	e.latest[keyID] = l
	return !existed
}

func (e *EntityData) removeLatest(keyID int32) bool {
	if _, ok := e.latest[keyID]; !ok {
		return false
	}
	delete(e.latest, keyID)
	return true
}

func (e *EntityData) assignDashboard(r *edqs.EntityRelation) {
	if e.dashboards == nil {
		e.dashboards = make(map[uuid.UUID]*edqs.EntityRelation)
	}
	e.dashboards[r.To.ID] = r
}

func (e *EntityData) unassignDashboard(dashboard uuid.UUID) bool {
	if _, ok := e.dashboards[dashboard]; !ok {
		return false
	}
	delete(e.dashboards, dashboard)
	return true
}

// --------------------------------------------------------------------------
// query.Record
// --------------------------------------------------------------------------

func (e *EntityData) ID() uuid.UUID { return e.id.ID }

// HasFields is false until the entity arrived. A nil record has no fields.
func (e *EntityData) HasFields() bool {
	return e != nil && e.entity != nil
}

// DataPoint resolves a key against the record. ATTRIBUTE keys look at the
// server, shared and client scope in that order. Values without a data point
// count as missing.
func (e *EntityData) DataPoint(key query.DataKey) (edqs.DataPoint, bool) {
	switch key.Type {
	case query.KeyTypeEntityField:
		return e.Fields().DataPoint(key.Key)
	case query.KeyTypeAttribute:
		for _, scope := range attributeLookupOrder {
			if dp, ok := e.attribute(key.KeyID, scope); ok {
				return dp, true
			}
		}
		return edqs.DataPoint{}, false
	case query.KeyTypeServerAttribute:
		return e.attribute(key.KeyID, edqs.ScopeServer)
	case query.KeyTypeSharedAttribute:
		return e.attribute(key.KeyID, edqs.ScopeShared)
	case query.KeyTypeClientAttribute:
		return e.attribute(key.KeyID, edqs.ScopeClient)
	case query.KeyTypeTimeSeries:
		if l, ok := e.latest[key.KeyID]; ok && l.Value != nil {
			return *l.Value, true
		}
		return edqs.DataPoint{}, false
	default:
		return edqs.DataPoint{}, false
	}
}

func (e *EntityData) attribute(keyID int32, scope edqs.AttributeScope) (edqs.DataPoint, bool) {
	if a, ok := e.attributes[attrKey{keyID: keyID, scope: scope}]; ok && a.Value != nil {
		return *a.Value, true
	}
	return edqs.DataPoint{}, false
}

// objects appends every object held by the record to dst. Relations are
// not part of the record, except for dashboard assignments of customers.
func (e *EntityData) objects(dst []edqs.Object) []edqs.Object {
	if e.entity != nil {
		dst = append(dst, e.entity)
	}
	for _, a := range e.attributes {
		dst = append(dst, a)
	}
	for _, l := range e.latest {
		dst = append(dst, l)
	}
	for _, r := range e.dashboards {
		dst = append(dst, r)
	}
	return dst
}
