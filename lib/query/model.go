package query

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/google/uuid"
)

// --------------------------------------------------------------------------
// Keys
// --------------------------------------------------------------------------

// EntityKeyType tells where the value of a key is read from.
type EntityKeyType string

const (
	KeyTypeAttribute       EntityKeyType = "ATTRIBUTE" // any scope, server before shared before client
	KeyTypeClientAttribute EntityKeyType = "CLIENT_ATTRIBUTE"
	KeyTypeSharedAttribute EntityKeyType = "SHARED_ATTRIBUTE"
	KeyTypeServerAttribute EntityKeyType = "SERVER_ATTRIBUTE"
	KeyTypeTimeSeries      EntityKeyType = "TIME_SERIES"
	KeyTypeEntityField     EntityKeyType = "ENTITY_FIELD"
	KeyTypeAlarmField      EntityKeyType = "ALARM_FIELD"
	KeyTypeConstant        EntityKeyType = "CONSTANT"
)

// EntityKey references an entity field or a dynamic attribute/time series key by name.
type EntityKey struct {
	Type EntityKeyType `json:"type"`
	Key  string        `json:"key"`
}

// ValueType is the declared type of the value a key filter compares against.
type ValueType string

const (
	ValueTypeString   ValueType = "STRING"
	ValueTypeNumeric  ValueType = "NUMERIC"
	ValueTypeBoolean  ValueType = "BOOLEAN"
	ValueTypeDateTime ValueType = "DATE_TIME"
)

// --------------------------------------------------------------------------
// Predicates
// --------------------------------------------------------------------------

type PredicateType string

const (
	PredicateString  PredicateType = "STRING"
	PredicateNumeric PredicateType = "NUMERIC"
	PredicateBoolean PredicateType = "BOOLEAN"
	PredicateComplex PredicateType = "COMPLEX"
)

type StringOperation string

const (
	StringEqual       StringOperation = "EQUAL"
	StringNotEqual    StringOperation = "NOT_EQUAL"
	StringStartsWith  StringOperation = "STARTS_WITH"
	StringEndsWith    StringOperation = "ENDS_WITH"
	StringContains    StringOperation = "CONTAINS"
	StringNotContains StringOperation = "NOT_CONTAINS"
	StringIn          StringOperation = "IN"
	StringNotIn       StringOperation = "NOT_IN"
)

type NumericOperation string

const (
	NumericEqual          NumericOperation = "EQUAL"
	NumericNotEqual       NumericOperation = "NOT_EQUAL"
	NumericGreater        NumericOperation = "GREATER"
	NumericLess           NumericOperation = "LESS"
	NumericGreaterOrEqual NumericOperation = "GREATER_OR_EQUAL"
	NumericLessOrEqual    NumericOperation = "LESS_OR_EQUAL"
)

type BooleanOperation string

const (
	BooleanEqual    BooleanOperation = "EQUAL"
	BooleanNotEqual BooleanOperation = "NOT_EQUAL"
)

type ComplexOperation string

const (
	ComplexAnd ComplexOperation = "AND"
	ComplexOr  ComplexOperation = "OR"
)

// FilterPredicateValue is a comparison value. A user value overrides the default.
type FilterPredicateValue[T any] struct {
	DefaultValue T  `json:"defaultValue"`
	UserValue    *T `json:"userValue,omitempty"`
}

// Value returns the effective comparison value.
func (v FilterPredicateValue[T]) Value() T {
	if v.UserValue != nil {
		return *v.UserValue
	}
	return v.DefaultValue
}

// KeyFilterPredicate is one of *StringFilterPredicate, *NumericFilterPredicate,
// *BooleanFilterPredicate or *ComplexFilterPredicate.
type KeyFilterPredicate interface {
	PredicateType() PredicateType
}

type StringFilterPredicate struct {
	Operation  StringOperation              `json:"operation"`
	Value      FilterPredicateValue[string] `json:"value"`
	IgnoreCase bool                         `json:"ignoreCase"`
}

type NumericFilterPredicate struct {
	Operation NumericOperation              `json:"operation"`
	Value     FilterPredicateValue[float64] `json:"value"`
}

type BooleanFilterPredicate struct {
	Operation BooleanOperation           `json:"operation"`
	Value     FilterPredicateValue[bool] `json:"value"`
}

type ComplexFilterPredicate struct {
	Operation  ComplexOperation
	Predicates []KeyFilterPredicate
}

func (*StringFilterPredicate) PredicateType() PredicateType  { return PredicateString }
func (*NumericFilterPredicate) PredicateType() PredicateType { return PredicateNumeric }
func (*BooleanFilterPredicate) PredicateType() PredicateType { return PredicateBoolean }
func (*ComplexFilterPredicate) PredicateType() PredicateType { return PredicateComplex }

// KeyFilter is one filter term of a query: the key, its value type and the predicate.
type KeyFilter struct {
	Key       EntityKey
	ValueType ValueType
	Predicate KeyFilterPredicate
}

// --------------------------------------------------------------------------
// Entity Filters
// --------------------------------------------------------------------------

type EntityFilterType string

const (
	FilterSingleEntity          EntityFilterType = "singleEntity"
	FilterEntityList            EntityFilterType = "entityList"
	FilterEntityName            EntityFilterType = "entityName"
	FilterEntityType            EntityFilterType = "entityType"
	FilterAssetType             EntityFilterType = "assetType"
	FilterDeviceType            EntityFilterType = "deviceType"
	FilterEntityViewType        EntityFilterType = "entityViewType"
	FilterEdgeType              EntityFilterType = "edgeType"
	FilterRelationsQuery        EntityFilterType = "relationsQuery"
	FilterAssetSearchQuery      EntityFilterType = "assetSearchQuery"
	FilterDeviceSearchQuery     EntityFilterType = "deviceSearchQuery"
	FilterEntityViewSearchQuery EntityFilterType = "entityViewSearchQuery"
	FilterEdgeSearchQuery       EntityFilterType = "edgeSearchQuery"
	FilterAPIUsageState         EntityFilterType = "apiUsageState"
)

// EntityFilter selects the candidate entities of a query.
type EntityFilter interface {
	FilterType() EntityFilterType
}

type SingleEntityFilter struct {
	SingleEntity edqs.EntityID `json:"singleEntity"`
}

type EntityListFilter struct {
	EntityType edqs.EntityType `json:"entityType"`
	EntityList []uuid.UUID     `json:"entityList"`
}

type EntityNameFilter struct {
	EntityType       edqs.EntityType `json:"entityType"`
	EntityNameFilter string          `json:"entityNameFilter"`
}

type EntityTypeFilter struct {
	EntityType edqs.EntityType `json:"entityType"`
}

type AssetTypeFilter struct {
	AssetTypes      []string `json:"assetTypes"`
	AssetNameFilter string   `json:"assetNameFilter"`
}

type DeviceTypeFilter struct {
	DeviceTypes      []string `json:"deviceTypes"`
	DeviceNameFilter string   `json:"deviceNameFilter"`
}

type EntityViewTypeFilter struct {
	EntityViewTypes      []string `json:"entityViewTypes"`
	EntityViewNameFilter string   `json:"entityViewNameFilter"`
}

type EdgeTypeFilter struct {
	EdgeTypes      []string `json:"edgeTypes"`
	EdgeNameFilter string   `json:"edgeNameFilter"`
}

// SearchDirection is the direction relations are followed from the root entity.
type SearchDirection string

const (
	DirectionFrom SearchDirection = "FROM"
	DirectionTo   SearchDirection = "TO"
)

// RelationEntityTypeFilter restricts a relations query to a relation type and
// target entity types. Empty values match everything.
type RelationEntityTypeFilter struct {
	RelationType string            `json:"relationType"`
	EntityTypes  []edqs.EntityType `json:"entityTypes"`
	Negate       bool              `json:"negate"`
}

type RelationsQueryFilter struct {
	RootEntity            edqs.EntityID              `json:"rootEntity"`
	MultiRoot             bool                       `json:"multiRoot"`
	MultiRootEntitiesType edqs.EntityType            `json:"multiRootEntitiesType"`
	MultiRootEntityIDs    []uuid.UUID                `json:"multiRootEntityIds"`
	Direction             SearchDirection            `json:"direction"`
	Filters               []RelationEntityTypeFilter `json:"filters"`
	MaxLevel              int                        `json:"maxLevel"`
	FetchLastLevelOnly    bool                       `json:"fetchLastLevelOnly"`
}

// EntitySearchQuery is the common part of the typed search query filters.
type EntitySearchQuery struct {
	RootEntity         edqs.EntityID   `json:"rootEntity"`
	RelationType       string          `json:"relationType"`
	Direction          SearchDirection `json:"direction"`
	MaxLevel           int             `json:"maxLevel"`
	FetchLastLevelOnly bool            `json:"fetchLastLevelOnly"`
}

type AssetSearchQueryFilter struct {
	EntitySearchQuery
	AssetTypes []string `json:"assetTypes"`
}

type DeviceSearchQueryFilter struct {
	EntitySearchQuery
	DeviceTypes []string `json:"deviceTypes"`
}

type EntityViewSearchQueryFilter struct {
	EntitySearchQuery
	EntityViewTypes []string `json:"entityViewTypes"`
}

type EdgeSearchQueryFilter struct {
	EntitySearchQuery
	EdgeTypes []string `json:"edgeTypes"`
}

type APIUsageStateFilter struct {
	CustomerID *edqs.EntityID `json:"customerId,omitempty"`
}

func (*SingleEntityFilter) FilterType() EntityFilterType          { return FilterSingleEntity }
func (*EntityListFilter) FilterType() EntityFilterType            { return FilterEntityList }
func (*EntityNameFilter) FilterType() EntityFilterType            { return FilterEntityName }
func (*EntityTypeFilter) FilterType() EntityFilterType            { return FilterEntityType }
func (*AssetTypeFilter) FilterType() EntityFilterType             { return FilterAssetType }
func (*DeviceTypeFilter) FilterType() EntityFilterType            { return FilterDeviceType }
func (*EntityViewTypeFilter) FilterType() EntityFilterType        { return FilterEntityViewType }
func (*EdgeTypeFilter) FilterType() EntityFilterType              { return FilterEdgeType }
func (*RelationsQueryFilter) FilterType() EntityFilterType        { return FilterRelationsQuery }
func (*AssetSearchQueryFilter) FilterType() EntityFilterType      { return FilterAssetSearchQuery }
func (*DeviceSearchQueryFilter) FilterType() EntityFilterType     { return FilterDeviceSearchQuery }
func (*EntityViewSearchQueryFilter) FilterType() EntityFilterType { return FilterEntityViewSearchQuery }
func (*EdgeSearchQueryFilter) FilterType() EntityFilterType       { return FilterEdgeSearchQuery }
func (*APIUsageStateFilter) FilterType() EntityFilterType         { return FilterAPIUsageState }

// --------------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------------

type SortDirection string

const (
	SortAscending  SortDirection = "ASC"
	SortDescending SortDirection = "DESC"
)

type EntityDataSortOrder struct {
	Key       EntityKey     `json:"key"`
	Direction SortDirection `json:"direction"`
}

type EntityDataPageLink struct {
	PageSize   int                  `json:"pageSize"`
	Page       int                  `json:"page"`
	TextSearch string               `json:"textSearch,omitempty"`
	SortOrder  *EntityDataSortOrder `json:"sortOrder,omitempty"`
}

// EntityDataQuery is the external query for a page of entity data.
type EntityDataQuery struct {
	EntityFilter EntityFilter
	KeyFilters   []KeyFilter
	PageLink     EntityDataPageLink
	EntityFields []EntityKey
	LatestValues []EntityKey
}

// EntityCountQuery is the external query for the number of matching entities.
type EntityCountQuery struct {
	EntityFilter EntityFilter
	KeyFilters   []KeyFilter
}

// QueryContext describes the caller a query is executed for.
type QueryContext struct {
	TenantID   uuid.UUID
	CustomerID uuid.UUID // uuid.Nil for tenant users
}

// IsTenantUser reports whether the caller is not scoped to a customer.
func (c QueryContext) IsTenantUser() bool {
	return c.CustomerID == uuid.Nil
}

// --------------------------------------------------------------------------
// Results
// --------------------------------------------------------------------------

// TsValue is a rendered latest value. The zero value stands for "no value".
type TsValue struct {
	Ts    int64  `json:"ts"`
	Value string `json:"value"`
}

// QueryResult is one row of a data query: the entity and its requested values
// grouped by key type and key name.
type QueryResult struct {
	EntityID edqs.EntityID                        `json:"entityId"`
	Latest   map[EntityKeyType]map[string]TsValue `json:"latest"`
}

type PageData[T any] struct {
	Data          []T  `json:"data"`
	TotalPages    int  `json:"totalPages"`
	TotalElements int  `json:"totalElements"`
	HasNext       bool `json:"hasNext"`
}

// EmptyPage returns a page without rows.
func EmptyPage[T any]() PageData[T] {
	return PageData[T]{Data: []T{}}
}

// --------------------------------------------------------------------------
// JSON Decoding
// --------------------------------------------------------------------------

type typeTag struct {
	Type string `json:"type"`
}

// DecodePredicate decodes a predicate discriminated by its "type" field.
func DecodePredicate(data []byte) (KeyFilterPredicate, error) {
	var tag typeTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("query: invalid predicate: %w", err)
	}

	var p KeyFilterPredicate
	switch PredicateType(tag.Type) {
	case PredicateString:
		p = &StringFilterPredicate{}
	case PredicateNumeric:
		p = &NumericFilterPredicate{}
	case PredicateBoolean:
		p = &BooleanFilterPredicate{}
	case PredicateComplex:
		var raw struct {
			Operation  ComplexOperation  `json:"operation"`
			Predicates []json.RawMessage `json:"predicates"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("query: invalid complex predicate: %w", err)
		}
		c := &ComplexFilterPredicate{Operation: raw.Operation, Predicates: make([]KeyFilterPredicate, 0, len(raw.Predicates))}
		for _, child := range raw.Predicates {
			cp, err := DecodePredicate(child)
			if err != nil {
				return nil, err
			}
			c.Predicates = append(c.Predicates, cp)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("query: unknown predicate type %q", tag.Type)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("query: invalid %s predicate: %w", tag.Type, err)
	}
	return p, nil
}

func (k *KeyFilter) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key       EntityKey       `json:"key"`
		ValueType ValueType       `json:"valueType"`
		Predicate json.RawMessage `json:"predicate"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Predicate) == 0 {
		return fmt.Errorf("query: key filter on %q without predicate", raw.Key.Key)
	}
	p, err := DecodePredicate(raw.Predicate)
	if err != nil {
		return err
	}
	*k = KeyFilter{Key: raw.Key, ValueType: raw.ValueType, Predicate: p}
	return nil
}

// DecodeEntityFilter decodes an entity filter discriminated by its "type" field.
func DecodeEntityFilter(data []byte) (EntityFilter, error) {
	var tag typeTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("query: invalid entity filter: %w", err)
	}

	var f EntityFilter
	switch EntityFilterType(tag.Type) {
	case FilterSingleEntity:
		f = &SingleEntityFilter{}
	case FilterEntityList:
		f = &EntityListFilter{}
	case FilterEntityName:
		f = &EntityNameFilter{}
	case FilterEntityType:
		f = &EntityTypeFilter{}
	case FilterAssetType:
		f = &AssetTypeFilter{}
	case FilterDeviceType:
		f = &DeviceTypeFilter{}
	case FilterEntityViewType:
		f = &EntityViewTypeFilter{}
	case FilterEdgeType:
		f = &EdgeTypeFilter{}
	case FilterRelationsQuery:
		f = &RelationsQueryFilter{}
	case FilterAssetSearchQuery:
		f = &AssetSearchQueryFilter{}
	case FilterDeviceSearchQuery:
		f = &DeviceSearchQueryFilter{}
	case FilterEntityViewSearchQuery:
		f = &EntityViewSearchQueryFilter{}
	case FilterEdgeSearchQuery:
		f = &EdgeSearchQueryFilter{}
	case FilterAPIUsageState:
		f = &APIUsageStateFilter{}
	default:
		return nil, fmt.Errorf("query: unknown entity filter type %q", tag.Type)
	}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("query: invalid %s filter: %w", tag.Type, err)
	}
	return f, nil
}

func (q *EntityDataQuery) UnmarshalJSON(data []byte) error {
	var raw struct {
		EntityFilter json.RawMessage    `json:"entityFilter"`
		KeyFilters   []KeyFilter        `json:"keyFilters"`
		PageLink     EntityDataPageLink `json:"pageLink"`
		EntityFields []EntityKey        `json:"entityFields"`
		LatestValues []EntityKey        `json:"latestValues"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.EntityFilter) == 0 {
		return fmt.Errorf("query: data query without entity filter")
	}
	f, err := DecodeEntityFilter(raw.EntityFilter)
	if err != nil {
		return err
	}
	*q = EntityDataQuery{
		EntityFilter: f,
		KeyFilters:   raw.KeyFilters,
		PageLink:     raw.PageLink,
		EntityFields: raw.EntityFields,
		LatestValues: raw.LatestValues,
	}
	return nil
}

func (q *EntityCountQuery) UnmarshalJSON(data []byte) error {
	var raw struct {
		EntityFilter json.RawMessage `json:"entityFilter"`
		KeyFilters   []KeyFilter     `json:"keyFilters"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.EntityFilter) == 0 {
		return fmt.Errorf("query: count query without entity filter")
	}
	f, err := DecodeEntityFilter(raw.EntityFilter)
	if err != nil {
		return err
	}
	*q = EntityCountQuery{EntityFilter: f, KeyFilters: raw.KeyFilters}
	return nil
}
