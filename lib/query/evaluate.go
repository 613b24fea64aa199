package query

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/google/uuid"
)

// Record is an entity of the working set as seen by the evaluator.
type Record interface {
	// ID is the entity id, used to break sort ties.
	ID() uuid.UUID
	// HasFields is false while the entity fields have not arrived yet or
	// after the entity was removed.
	HasFields() bool
	// DataPoint resolves a translated key. The boolean is false if the
	// record carries no value for it.
	DataPoint(key DataKey) (edqs.DataPoint, bool)
}

// --------------------------------------------------------------------------
// Evaluator
// --------------------------------------------------------------------------

// Evaluator decides whether records match translated queries and computes
// their sort values. It holds no per-query state.
//
// Thread-safety: safe for concurrent use.
type Evaluator struct {
	decompressor edqs.Decompressor
	patterns     *patternCache
}

// NewEvaluator creates an evaluator that decompresses values with d.
func NewEvaluator(d edqs.Decompressor) *Evaluator {
	return &Evaluator{decompressor: d, patterns: newPatternCache()}
}

// CheckFilters reports whether r passes all key filters of q and, for data
// queries, the text search. A nil record or one without fields never matches.
func (e *Evaluator) CheckFilters(q Query, r Record) bool {
	if r == nil || !r.HasFields() {
		return false
	}
	if filters := q.KeyFilters(); len(filters) > 0 && !e.CheckKeyFilters(r, filters) {
		return false
	}
	if dq, ok := q.(*DataQuery); ok && dq.HasTextSearch() {
		return e.checkTextSearch(r, dq)
	}
	return true
}

// CheckKeyFilters reports whether r passes every filter.
//
// A missing value fails the filter, except for string filters on entity
// fields which pass when the field is absent. Values that cannot be
// converted to the filter's value type count as missing.
func (e *Evaluator) CheckKeyFilters(r Record, filters []Filter) bool {
	for _, f := range filters {
		valueType := f.ValueType
		if valueType == "" {
			valueType = inferValueType(f.Predicate)
		}

		dp, ok := r.DataPoint(f.Key)
		var pass bool
		switch valueType {
		case ValueTypeString:
			if !ok {
				pass = f.Key.Type == KeyTypeEntityField
			} else {
				pass = e.CheckString(dp.ValueToString(e.decompressor), f.Predicate)
			}
		case ValueTypeBoolean:
			if ok {
				v, converted := dp.AsBool(e.decompressor)
				pass = converted && e.CheckBool(v, f.Predicate)
			}
		case ValueTypeNumeric, ValueTypeDateTime:
			if ok {
				v, converted := dp.AsDouble(e.decompressor)
				pass = converted && e.CheckNumeric(v, f.Predicate)
			}
		default:
			panic(fmt.Sprintf("query: unsupported value type %q", valueType))
		}
		if !pass {
			return false
		}
	}
	return true
}

func inferValueType(p KeyFilterPredicate) ValueType {
	switch p.PredicateType() {
	case PredicateString:
		return ValueTypeString
	case PredicateNumeric:
		return ValueTypeNumeric
	case PredicateBoolean:
		return ValueTypeBoolean
	default:
		panic(fmt.Sprintf("query: cannot infer the value type of a %s predicate", p.PredicateType()))
	}
}

// CheckString evaluates a string or complex predicate. An empty comparison
// value matches everything. Any other predicate kind panics.
func (e *Evaluator) CheckString(value string, p KeyFilterPredicate) bool {
	switch pred := p.(type) {
	case *ComplexFilterPredicate:
		return checkComplex(value, pred, e.CheckString)
	case *StringFilterPredicate:
		expected := pred.Value.Value()
		if expected == "" {
			return true
		}
		if pred.IgnoreCase {
			expected = strings.ToLower(expected)
			value = strings.ToLower(value)
		}
		switch pred.Operation {
		case StringEqual:
			return value == expected
		case StringNotEqual:
			return value != expected
		case StringStartsWith:
			return e.like(value, expected, "^", ".*")
		case StringEndsWith:
			return e.like(value, expected, ".*", "$")
		case StringContains:
			return e.like(value, expected, ".*", ".*")
		case StringNotContains:
			return !e.like(value, expected, ".*", ".*")
		case StringIn:
			return equalsAny(value, splitByCommaWithoutQuotes(expected))
		case StringNotIn:
			return !equalsAny(value, splitByCommaWithoutQuotes(expected))
		default:
			panic(fmt.Sprintf("query: unsupported string operation %q", pred.Operation))
		}
	default:
		panic(fmt.Sprintf("query: %s predicate applied to a string value", p.PredicateType()))
	}
}

// like matches literal values with plain string functions and values with
// wildcards through the pattern cache.
func (e *Evaluator) like(value, expected, prefix, suffix string) bool {
	if strings.ContainsAny(expected, "%_") {
		return e.patterns.match(value, expected, prefix, suffix, false)
	}
	switch {
	case prefix == "^":
		return strings.HasPrefix(value, expected)
	case suffix == "$":
		return strings.HasSuffix(value, expected)
	default:
		return strings.Contains(value, expected)
	}
}

// CheckNumeric evaluates a numeric or complex predicate. Any other predicate kind panics.
func (e *Evaluator) CheckNumeric(value float64, p KeyFilterPredicate) bool {
	switch pred := p.(type) {
	case *ComplexFilterPredicate:
		return checkComplex(value, pred, e.CheckNumeric)
	case *NumericFilterPredicate:
		expected := pred.Value.Value()
		switch pred.Operation {
		case NumericEqual:
			return value == expected
		case NumericNotEqual:
			return value != expected
		case NumericGreater:
			return value > expected
		case NumericLess:
			return value < expected
		case NumericGreaterOrEqual:
			return value >= expected
		case NumericLessOrEqual:
			return value <= expected
		default:
			panic(fmt.Sprintf("query: unsupported numeric operation %q", pred.Operation))
		}
	default:
		panic(fmt.Sprintf("query: %s predicate applied to a numeric value", p.PredicateType()))
	}
}

// CheckBool evaluates a boolean or complex predicate. Any other predicate kind panics.
func (e *Evaluator) CheckBool(value bool, p KeyFilterPredicate) bool {
	switch pred := p.(type) {
	case *ComplexFilterPredicate:
		return checkComplex(value, pred, e.CheckBool)
	case *BooleanFilterPredicate:
		expected := pred.Value.Value()
		switch pred.Operation {
		case BooleanEqual:
			return value == expected
		case BooleanNotEqual:
			return value != expected
		default:
			panic(fmt.Sprintf("query: unsupported boolean operation %q", pred.Operation))
		}
	default:
		panic(fmt.Sprintf("query: %s predicate applied to a boolean value", p.PredicateType()))
	}
}

// checkComplex evaluates an AND/OR node. Inside OR, string children with an
// empty comparison value are skipped instead of matching everything.
// Unknown operations never match.
func checkComplex[T any](value T, c *ComplexFilterPredicate, check func(T, KeyFilterPredicate) bool) bool {
	switch c.Operation {
	case ComplexAnd:
		for _, p := range c.Predicates {
			if !check(value, p) {
				return false
			}
		}
		return true
	case ComplexOr:
		for _, p := range c.Predicates {
			if sp, ok := p.(*StringFilterPredicate); ok && sp.Value.Value() == "" {
				continue
			}
			if check(value, p) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (e *Evaluator) checkTextSearch(r Record, q *DataQuery) bool {
	search := strings.ToLower(q.TextSearch)
	for _, keys := range [][]DataKey{q.EntityFields, q.LatestValues} {
		for _, key := range keys {
			dp, ok := r.DataPoint(key)
			if ok && strings.Contains(strings.ToLower(dp.ValueToString(e.decompressor)), search) {
				return true
			}
		}
	}
	return false
}

// --------------------------------------------------------------------------
// Entity Names
// --------------------------------------------------------------------------

// MatchesEntityName applies the name filter of ENTITY_NAME and the typed
// filters: a case-insensitive prefix LIKE. A blank filter matches every name.
func (e *Evaluator) MatchesEntityName(name, filter string) bool {
	if strings.TrimSpace(filter) == "" {
		return true
	}
	re := e.patterns.get(likeExpression(filter, "", ".*"), true)
	return re != nil && re.MatchString(name)
}

// --------------------------------------------------------------------------
// Values
// --------------------------------------------------------------------------

// ToTsValue renders a data point for a query result. Data points without
// their own timestamp get ts. A missing data point renders as the empty TsValue.
func (e *Evaluator) ToTsValue(ts int64, dp edqs.DataPoint, ok bool) TsValue {
	if !ok {
		return TsValue{}
	}
	if dp.Ts > 0 {
		ts = dp.Ts
	}
	return TsValue{Ts: ts, Value: dp.ValueToString(e.decompressor)}
}

// SortValue resolves the sort key of r. It returns nil if the record has
// no value for the key.
func (e *Evaluator) SortValue(r Record, key *DataKey) *SortValue {
	if key == nil {
		return nil
	}
	dp, ok := r.DataPoint(*key)
	if !ok {
		return nil
	}
	return e.NewSortValue(dp)
}
