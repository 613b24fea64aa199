package repo

import (
	"fmt"
	"math"
	"slices"

	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/ValentinKolb/edqs/lib/query"
)

// --------------------------------------------------------------------------
// Candidate Selection
// --------------------------------------------------------------------------

// candidates returns the visible records an entity filter selects. Key
// filters and text search are not applied here.
//
// Thread-safety: the caller holds the tenant read lock.
func (t *tenantRepo) candidates(ctx query.QueryContext, ev *query.Evaluator, f query.EntityFilter) []*EntityData {
	var result []*EntityData
	add := func(ed *EntityData) {
		if ed != nil && t.visible(ctx, ed) {
			result = append(result, ed)
		}
	}

	switch v := f.(type) {
	case *query.SingleEntityFilter:
		add(t.get(v.SingleEntity))
	case *query.EntityListFilter:
		for _, id := range v.EntityList {
			add(t.get(edqs.NewEntityID(v.EntityType, id)))
		}
	case *query.EntityNameFilter:
		for _, ed := range t.entities[v.EntityType] {
			if ev.MatchesEntityName(ed.Name(), v.EntityNameFilter) {
				add(ed)
			}
		}
	case *query.EntityTypeFilter:
		for _, ed := range t.entities[v.EntityType] {
			add(ed)
		}
	case *query.AssetTypeFilter:
		t.byType(ev, edqs.EntityTypeAsset, v.AssetTypes, v.AssetNameFilter, add)
	case *query.DeviceTypeFilter:
		t.byType(ev, edqs.EntityTypeDevice, v.DeviceTypes, v.DeviceNameFilter, add)
	case *query.EntityViewTypeFilter:
		t.byType(ev, edqs.EntityTypeEntityView, v.EntityViewTypes, v.EntityViewNameFilter, add)
	case *query.EdgeTypeFilter:
		t.byType(ev, edqs.EntityTypeEdge, v.EdgeTypes, v.EdgeNameFilter, add)
	case *query.RelationsQueryFilter:
		for _, id := range t.relations.search(relationRoots(v), v.Direction, v.MaxLevel, v.FetchLastLevelOnly,
			func(r *edqs.EntityRelation, target edqs.EntityID) bool {
				return matchesRelationFilters(v.Filters, r, target)
			}) {
			add(t.get(id))
		}
	case *query.AssetSearchQueryFilter:
		t.searchByType(v.EntitySearchQuery, edqs.EntityTypeAsset, v.AssetTypes, add)
	case *query.DeviceSearchQueryFilter:
		t.searchByType(v.EntitySearchQuery, edqs.EntityTypeDevice, v.DeviceTypes, add)
	case *query.EntityViewSearchQueryFilter:
		t.searchByType(v.EntitySearchQuery, edqs.EntityTypeEntityView, v.EntityViewTypes, add)
	case *query.EdgeSearchQueryFilter:
		t.searchByType(v.EntitySearchQuery, edqs.EntityTypeEdge, v.EdgeTypes, add)
	case *query.APIUsageStateFilter:
		customer := ctx.CustomerID
		if v.CustomerID != nil {
			customer = v.CustomerID.ID
		}
		for _, ed := range t.entities[edqs.EntityTypeAPIUsageState] {
			if ed.customerID == customer {
				add(ed)
			}
		}
	default:
		panic(fmt.Sprintf("repo: unsupported entity filter %T", f))
	}
	return result
}

// byType selects the entities of entityType whose type is one of types
// (all if empty) and whose name matches nameFilter.
func (t *tenantRepo) byType(ev *query.Evaluator, entityType edqs.EntityType, types []string, nameFilter string, add func(*EntityData)) {
	for _, ed := range t.entities[entityType] {
		if matchesType(ed, types) && ev.MatchesEntityName(ed.Name(), nameFilter) {
			add(ed)
		}
	}
}

func (t *tenantRepo) searchByType(q query.EntitySearchQuery, entityType edqs.EntityType, types []string, add func(*EntityData)) {
	ids := t.relations.search([]edqs.EntityID{q.RootEntity}, q.Direction, q.MaxLevel, q.FetchLastLevelOnly,
		func(r *edqs.EntityRelation, target edqs.EntityID) bool {
			return target.Type == entityType && (q.RelationType == "" || r.Type == q.RelationType)
		})
	for _, id := range ids {
		if ed := t.get(id); ed != nil && matchesType(ed, types) {
			add(ed)
		}
	}
}

func matchesType(ed *EntityData, types []string) bool {
	return len(types) == 0 || slices.Contains(types, ed.Type())
}

func relationRoots(f *query.RelationsQueryFilter) []edqs.EntityID {
	if !f.MultiRoot {
		return []edqs.EntityID{f.RootEntity}
	}
	roots := make([]edqs.EntityID, 0, len(f.MultiRootEntityIDs))
	for _, id := range f.MultiRootEntityIDs {
		roots = append(roots, edqs.NewEntityID(f.MultiRootEntitiesType, id))
	}
	return roots
}

// matchesRelationFilters reports whether a relation passes at least one
// filter. Without filters every relation passes.
func matchesRelationFilters(filters []query.RelationEntityTypeFilter, r *edqs.EntityRelation, target edqs.EntityID) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		matches := (f.RelationType == "" || f.RelationType == r.Type) &&
			(len(f.EntityTypes) == 0 || slices.Contains(f.EntityTypes, target.Type))
		if matches != f.Negate {
			return true
		}
	}
	return false
}

// --------------------------------------------------------------------------
// Matching, Sorting & Paging
// --------------------------------------------------------------------------

type sortableEntity struct {
	query.SortableRecord
	data *EntityData
}

// find returns the sorted page of records matching q.
func (t *tenantRepo) find(ctx query.QueryContext, ev *query.Evaluator, q *query.DataQuery, now int64) query.PageData[query.QueryResult] {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	var matches []sortableEntity
	for _, ed := range t.candidates(ctx, ev, q.EntityFilter) {
		if ev.CheckFilters(q, ed) {
			matches = append(matches, sortableEntity{
				SortableRecord: query.SortableRecord{ID: ed.ID(), Value: ev.SortValue(ed, &q.SortKey)},
				data:           ed,
			})
		}
	}

	total := len(matches)
	totalPages := int(math.Ceil(float64(total) / float64(q.PageSize)))
	offset := q.Page * q.PageSize
	if offset > total {
		return query.PageData[query.QueryResult]{Data: []query.QueryResult{}, TotalPages: totalPages, TotalElements: total}
	}

	compare := query.Comparator(q.SortDirection)
	slices.SortFunc(matches, func(a, b sortableEntity) int {
		return compare(a.SortableRecord, b.SortableRecord)
	})
	requiredSize := min(offset+q.PageSize, total)

	data := make([]query.QueryResult, 0, requiredSize-offset)
	for _, m := range matches[offset:requiredSize] {
		data = append(data, toQueryResult(ev, q, m.data, now))
	}
	return query.PageData[query.QueryResult]{
		Data:          data,
		TotalPages:    totalPages,
		TotalElements: total,
		HasNext:       total > requiredSize,
	}
}

// count returns the number of records matching q.
func (t *tenantRepo) count(ctx query.QueryContext, ev *query.Evaluator, q *query.CountQuery) int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	n := 0
	for _, ed := range t.candidates(ctx, ev, q.EntityFilter) {
		if ev.CheckFilters(q, ed) {
			n++
		}
	}
	return n
}

// toQueryResult renders the requested fields and latest values of ed.
// Entity fields are grouped under ENTITY_FIELD, everything else under its
// key type. Missing values render as the empty TsValue.
func toQueryResult(ev *query.Evaluator, q *query.DataQuery, ed *EntityData, now int64) query.QueryResult {
	latest := make(map[query.EntityKeyType]map[string]query.TsValue)
	put := func(key query.DataKey) {
		values, ok := latest[key.Type]
		if !ok {
			values = make(map[string]query.TsValue)
			latest[key.Type] = values
		}
		dp, found := ed.DataPoint(key)
		values[key.Key] = ev.ToTsValue(now, dp, found)
	}
	for _, key := range q.EntityFields {
		put(key)
	}
	for _, key := range q.LatestValues {
		put(key)
	}
	return query.QueryResult{EntityID: ed.id, Latest: latest}
}
