package repo

import (
	"sync"

	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/ValentinKolb/edqs/lib/query"
	"github.com/google/uuid"
)

// tenantRepo is the working set of one tenant.
//
// Thread-safety: all methods are safe for concurrent use. Mutations take the
// write lock, queries the read lock.
type tenantRepo struct {
	id      uuid.UUID
	metrics *repoMetrics

	mutex     sync.RWMutex
	entities  map[edqs.EntityType]map[uuid.UUID]*EntityData
	relations *relationsIndex
}

func newTenantRepo(id uuid.UUID, m *repoMetrics) *tenantRepo {
	return &tenantRepo{
		id:        id,
		metrics:   m,
		entities:  make(map[edqs.EntityType]map[uuid.UUID]*EntityData),
		relations: newRelationsIndex(),
	}
}

// apply applies an admitted event. key is the identity of the object with
// dictionary ids already resolved.
func (t *tenantRepo) apply(eventType EventType, obj edqs.Object, key edqs.ObjectKey) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	switch o := obj.(type) {
	case *edqs.Entity:
		if eventType == EventUpdated {
			t.addOrUpdateEntity(o)
		} else {
			t.removeEntity(o.EntityID())
		}
	case *edqs.AttributeKv:
		keyID := key.(edqs.AttributeKvKey).KeyID
		if eventType == EventUpdated {
			if t.getOrCreate(o.EntityID).putAttribute(o, keyID) {
				t.metrics.reportAdded(edqs.ObjectTypeAttributeKv)
			}
		} else if ed := t.get(o.EntityID); ed != nil && ed.removeAttribute(keyID, o.Scope) {
			t.metrics.reportRemoved(edqs.ObjectTypeAttributeKv)
			t.dropIfEmpty(ed)
		}
	case *edqs.LatestTsKv:
		keyID := key.(edqs.LatestTsKvKey).KeyID
		if eventType == EventUpdated {
			if t.getOrCreate(o.EntityID).putLatest(o, keyID) {
				t.metrics.reportAdded(edqs.ObjectTypeLatestTsKv)
			}
		} else if ed := t.get(o.EntityID); ed != nil && ed.removeLatest(keyID) {
			t.metrics.reportRemoved(edqs.ObjectTypeLatestTsKv)
			t.dropIfEmpty(ed)
		}
	case *edqs.EntityRelation:
		if eventType == EventUpdated {
			t.addOrUpdateRelation(o, key.(edqs.RelationKey))
		} else {
			t.removeRelation(o, key.(edqs.RelationKey))
		}
	default:
		log.Warningf("[%s] ignoring unsupported object %T", t.id, obj)
	}
}

// --------------------------------------------------------------------------
// Entities
// --------------------------------------------------------------------------

func (t *tenantRepo) addOrUpdateEntity(entity *edqs.Entity) {
	ed := t.getOrCreate(entity.EntityID())
	if ed.entity == nil {
		t.metrics.reportAdded(entity.ObjectType())
	}
	oldCustomer := ed.customerID
	ed.setEntity(entity)
	if oldCustomer != ed.customerID {
		log.Debugf("[%s] %s moved from customer %s to %s", t.id, ed.id, oldCustomer, ed.customerID)
	}
}

func (t *tenantRepo) removeEntity(id edqs.EntityID) {
	byID := t.entities[id.Type]
	ed, ok := byID[id.ID]
	if !ok {
		return
	}
	delete(byID, id.ID)
	if ed.entity != nil {
		t.metrics.reportRemoved(ed.entity.ObjectType())
	}
}

func (t *tenantRepo) get(id edqs.EntityID) *EntityData {
	return t.entities[id.Type][id.ID]
}

func (t *tenantRepo) getOrCreate(id edqs.EntityID) *EntityData {
	byID, ok := t.entities[id.Type]
	if !ok {
		byID = make(map[uuid.UUID]*EntityData)
		t.entities[id.Type] = byID
	}
	ed, ok := byID[id.ID]
	if !ok {
		log.Debugf("[%s] adding %s", t.id, id)
		ed = newEntityData(id)
		byID[id.ID] = ed
	}
	return ed
}

// dropIfEmpty removes a record that holds nothing but its id
func (t *tenantRepo) dropIfEmpty(ed *EntityData) {
	if ed.isEmpty() {
		delete(t.entities[ed.id.Type], ed.id.ID)
	}
}

// --------------------------------------------------------------------------
// Relations
// --------------------------------------------------------------------------

// isDashboardAssignment reports whether r assigns a dashboard to a customer.
func isDashboardAssignment(r *edqs.EntityRelation) bool {
	return r.TypeGroup == edqs.RelationTypeGroupDashboard &&
		r.Type == edqs.RelationTypeContains &&
		r.From.Type == edqs.EntityTypeCustomer &&
		r.To.Type == edqs.EntityTypeDashboard
}

func (t *tenantRepo) addOrUpdateRelation(r *edqs.EntityRelation, key edqs.RelationKey) {
	switch {
	case r.TypeGroup == edqs.RelationTypeGroupCommon:
		if t.relations.add(key, r) {
			t.metrics.reportAdded(edqs.ObjectTypeRelation)
		}
	case isDashboardAssignment(r):
		t.getOrCreate(r.From).assignDashboard(r)
	}
}

func (t *tenantRepo) removeRelation(r *edqs.EntityRelation, key edqs.RelationKey) {
	switch {
	case r.TypeGroup == edqs.RelationTypeGroupCommon:
		if t.relations.remove(key) {
			t.metrics.reportRemoved(edqs.ObjectTypeRelation)
		}
	case isDashboardAssignment(r):
		if customer := t.get(r.From); customer != nil && customer.unassignDashboard(r.To.ID) {
			t.dropIfEmpty(customer)
		}
	}
}

// --------------------------------------------------------------------------
// Visibility
// --------------------------------------------------------------------------

// visible reports whether the caller of ctx may see ed. Tenant users see
// everything. Customer users see what their customer owns, the customer
// itself and the dashboards assigned to it.
func (t *tenantRepo) visible(ctx query.QueryContext, ed *EntityData) bool {
	if ctx.IsTenantUser() || ed.customerID == ctx.CustomerID {
		return true
	}
	switch ed.id.Type {
	case edqs.EntityTypeCustomer:
		return ed.id.ID == ctx.CustomerID
	case edqs.EntityTypeDashboard:
		customer := t.get(edqs.NewEntityID(edqs.EntityTypeCustomer, ctx.CustomerID))
		if customer == nil {
			return false
		}
		_, ok := customer.dashboards[ed.id.ID]
		return ok
	default:
		return false
	}
}

// objects appends every object of the tenant to dst.
func (t *tenantRepo) objects(dst []edqs.Object) []edqs.Object {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	for _, byID := range t.entities {
		for _, ed := range byID {
			dst = ed.objects(dst)
		}
	}
	return t.relations.objects(dst)
}
