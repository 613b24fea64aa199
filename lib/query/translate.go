package query

import (
	"strings"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("query")

// --------------------------------------------------------------------------
// Translated Query Model
// --------------------------------------------------------------------------

// DataKey is an EntityKey resolved against the key dictionary. KeyID is 0 for
// entity fields, they are looked up by name.
type DataKey struct {
	Type  EntityKeyType
	Key   string
	KeyID int32
}

// Filter is a translated KeyFilter.
type Filter struct {
	Key       DataKey
	ValueType ValueType
	Predicate KeyFilterPredicate
}

// Query is the part shared by translated data and count queries.
type Query interface {
	Filter() EntityFilter
	KeyFilters() []Filter
}

// DataQuery is the translated form of an EntityDataQuery.
type DataQuery struct {
	EntityFilter  EntityFilter
	Page          int
	PageSize      int
	TextSearch    string
	SortKey       DataKey
	SortDirection SortDirection
	Filters       []Filter
	EntityFields  []DataKey
	LatestValues  []DataKey
}

func (q *DataQuery) Filter() EntityFilter { return q.EntityFilter }
func (q *DataQuery) KeyFilters() []Filter { return q.Filters }

// HasTextSearch reports whether the query carries a non-blank search string.
func (q *DataQuery) HasTextSearch() bool {
	return strings.TrimSpace(q.TextSearch) != ""
}

// CountQuery is the translated form of an EntityCountQuery.
type CountQuery struct {
	EntityFilter EntityFilter
	Filters      []Filter
}

func (q *CountQuery) Filter() EntityFilter { return q.EntityFilter }
func (q *CountQuery) KeyFilters() []Filter { return q.Filters }

// --------------------------------------------------------------------------
// Translator
// --------------------------------------------------------------------------

// KeyLookup resolves a key name to its dictionary id without assigning new ids.
type KeyLookup interface {
	Lookup(key string) (int32, bool)
}

// Translator turns external queries into their dictionary-resolved form.
// Keys that were never interned are dropped since no record can carry them.
//
// Thread-safety: safe for concurrent use.
type Translator struct {
	keys        KeyLookup
	missingKeys *metrics.Counter
}

// NewTranslator creates a translator. Dropped keys are counted in set if it
// is not nil.
func NewTranslator(keys KeyLookup, set *metrics.Set) *Translator {
	t := &Translator{keys: keys}
	if set != nil {
		t.missingKeys = set.GetOrCreateCounter("edqs_query_missing_keys_total")
	}
	return t
}

// ToDataQuery translates a data query. Without a resolvable sort key the
// result is sorted by createdTime descending.
func (t *Translator) ToDataQuery(q *EntityDataQuery) *DataQuery {
	dq := &DataQuery{
		EntityFilter: q.EntityFilter,
		Page:         q.PageLink.Page,
		PageSize:     q.PageLink.PageSize,
		TextSearch:   q.PageLink.TextSearch,
		Filters:      t.toFilters(q.KeyFilters),
		EntityFields: t.toKeys(q.EntityFields),
		LatestValues: t.toKeys(q.LatestValues),
	}

	sortKey, ok := DataKey{}, false
	if order := q.PageLink.SortOrder; order != nil {
		sortKey, ok = t.toKey(order.Key)
	}
	if ok {
		dq.SortKey = sortKey
		dq.SortDirection = q.PageLink.SortOrder.Direction
	} else {
		dq.SortKey = DataKey{Type: KeyTypeEntityField, Key: "createdTime"}
		dq.SortDirection = SortDescending
	}
	return dq
}

// ToCountQuery translates a count query.
func (t *Translator) ToCountQuery(q *EntityCountQuery) *CountQuery {
	return &CountQuery{
		EntityFilter: q.EntityFilter,
		Filters:      t.toFilters(q.KeyFilters),
	}
}

func (t *Translator) toFilters(filters []KeyFilter) []Filter {
	if len(filters) == 0 {
		return nil
	}
	result := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if key, ok := t.toKey(f.Key); ok {
			result = append(result, Filter{Key: key, ValueType: f.ValueType, Predicate: f.Predicate})
		}
	}
	return result
}

func (t *Translator) toKeys(keys []EntityKey) []DataKey {
	if len(keys) == 0 {
		return nil
	}
	result := make([]DataKey, 0, len(keys))
	for _, k := range keys {
		if key, ok := t.toKey(k); ok {
			result = append(result, key)
		}
	}
	return result
}

func (t *Translator) toKey(k EntityKey) (DataKey, bool) {
	if k.Type == KeyTypeEntityField {
		return DataKey{Type: k.Type, Key: k.Key}, true
	}
	id, ok := t.keys.Lookup(k.Key)
	if !ok {
		log.Warningf("Missing dictionary key for %s", k.Key)
		if t.missingKeys != nil {
			t.missingKeys.Inc()
		}
		return DataKey{}, false
	}
	return DataKey{Type: k.Type, Key: k.Key, KeyID: id}, true
}
