package query

import (
	"slices"
	"testing"

	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// testRecord resolves entity fields by name and every other key by id
type testRecord struct {
	id     uuid.UUID
	fields edqs.Fields
	values map[int32]edqs.DataPoint
}

func newTestRecord(fields edqs.Fields) *testRecord {
	if fields == nil {
		fields = edqs.Fields{}
	}
	return &testRecord{id: uuid.New(), fields: fields, values: map[int32]edqs.DataPoint{}}
}

func (r *testRecord) ID() uuid.UUID   { return r.id }
func (r *testRecord) HasFields() bool { return r != nil && r.fields != nil }

func (r *testRecord) DataPoint(key DataKey) (edqs.DataPoint, bool) {
	if key.Type == KeyTypeEntityField {
		return r.fields.DataPoint(key.Key)
	}
	dp, ok := r.values[key.KeyID]
	return dp, ok
}

func stringPredicate(op StringOperation, value string) *StringFilterPredicate {
	return &StringFilterPredicate{Operation: op, Value: FilterPredicateValue[string]{DefaultValue: value}}
}

func numericPredicate(op NumericOperation, value float64) *NumericFilterPredicate {
	return &NumericFilterPredicate{Operation: op, Value: FilterPredicateValue[float64]{DefaultValue: value}}
}

func boolPredicate(op BooleanOperation, value bool) *BooleanFilterPredicate {
	return &BooleanFilterPredicate{Operation: op, Value: FilterPredicateValue[bool]{DefaultValue: value}}
}

func complexPredicate(op ComplexOperation, children ...KeyFilterPredicate) *ComplexFilterPredicate {
	return &ComplexFilterPredicate{Operation: op, Predicates: children}
}

func nameFilter(p KeyFilterPredicate) Filter {
	return Filter{Key: DataKey{Type: KeyTypeEntityField, Key: "name"}, ValueType: ValueTypeString, Predicate: p}
}

func temperatureFilter(p KeyFilterPredicate) Filter {
	return Filter{Key: DataKey{Type: KeyTypeTimeSeries, Key: "temperature", KeyID: 5}, ValueType: ValueTypeNumeric, Predicate: p}
}

func humidityFilter(p KeyFilterPredicate) Filter {
	return Filter{Key: DataKey{Type: KeyTypeTimeSeries, Key: "humidity", KeyID: 6}, ValueType: ValueTypeNumeric, Predicate: p}
}

func activeFilter(op BooleanOperation, v bool) Filter {
	return Filter{Key: DataKey{Type: KeyTypeServerAttribute, Key: "active", KeyID: 2}, ValueType: ValueTypeBoolean, Predicate: boolPredicate(op, v)}
}

func versionFilter(op StringOperation, v string) Filter {
	return Filter{Key: DataKey{Type: KeyTypeClientAttribute, Key: "version", KeyID: 1}, ValueType: ValueTypeString, Predicate: stringPredicate(op, v)}
}

func deviceNamed(name string) *testRecord {
	fields := edqs.Fields{}
	if name != "" {
		fields[edqs.FieldName] = name
	}
	return newTestRecord(fields)
}

func newTestEvaluator() *Evaluator {
	return NewEvaluator(nil)
}

// --------------------------------------------------------------------------
// String Predicates
// --------------------------------------------------------------------------

func TestFilterByDeviceName(t *testing.T) {
	tests := []struct {
		name   string
		op     StringOperation
		value  string
		result bool
	}{
		{"", StringStartsWith, "lora", true},
		{"loranet device 123", StringStartsWith, "lora", true},
		{"loranet 123", StringStartsWith, "ra", false},
		{"loranet 123", StringEndsWith, "123", true},
		{"loranet 123", StringEndsWith, "device", false},
		{"loranet 123", StringEqual, "loranet 123", true},
		{"loranet 123", StringEqual, "loranet ", false},
		{"loranet 123", StringNotEqual, "loranet", true},
		{"loranet 123", StringNotEqual, "loranet 123", false},
		{"loranet 123", StringContains, "loranet", true},
		{"loranet 123", StringContains, "loranet123", false},
		{"loranet 123", StringNotContains, "loranet123", true},
		{"loranet 123", StringNotContains, "loranet", false},
		{"loranet 123", StringIn, "loranet 123, loranet 124", true},
		{"loranet 123", StringIn, "loranet 125, loranet 126", false},
		{"loranet 123", StringNotIn, "loranet 125, loranet 126", true},
		{"loranet 123", StringNotIn, "loranet 123, loranet 126", false},

		// CONTAINS with %
		{"loranet 123", StringContains, "%loranet", false},
		{"loranet 123", StringContains, "loranet%", true},
		{"loranet 123", StringContains, "%ranet%", true},
		{"loranet 123", StringContains, "%123", true},
		{"loranet 123", StringContains, "%loranx%", false},

		// STARTS_WITH with %
		{"loranet 123", StringStartsWith, "loranet%", true},
		{"loranet 123", StringStartsWith, "lora%", true},
		{"loranet 123", StringStartsWith, "lorax%", false},

		// ENDS_WITH with %
		{"loranet 123", StringEndsWith, "%123", true},
		{"loranet 123", StringEndsWith, "%23", true},
		{"loranet 123", StringEndsWith, "%124", false},

		// % and _ in the filter value stay wildcards, there is no escape
		{"loranet 123", StringContains, "%net_1%", true},
		{"loranet 123", StringContains, "%net_2%", false},
		{"lora_net", StringStartsWith, "lora_", true},
		{"loraXnet", StringStartsWith, "lora_", true},
		{"lora%net", StringEndsWith, "a%net", true},
		{"loranet", StringEndsWith, "a%net", true},

		// CONTAINS with _
		{"loranet 123", StringContains, "loranet_123", true},
		{"loranet 123", StringContains, "loranet_12_", true},
		{"loranet 123", StringContains, "loran_t%", true},

		// STARTS_WITH with _
		{"loranet 123", StringStartsWith, "loranet_", true},
		{"loranet 123", StringStartsWith, "lora__t%", true},
		{"loranet 123", StringStartsWith, "lor_net%", true},

		// ENDS_WITH with _
		{"loranet 123", StringEndsWith, "_23", true},
		{"loranet 123", StringEndsWith, "_2_", true},
		{"loranet 123", StringEndsWith, "_3", true},

		// mixed
		{"loranet 123", StringContains, "lora__t 1%", true},
		{"loranet 123", StringContains, "lora%net%3", true},
		{"loranet 123", StringContains, "%o_anet%2_3", false},
		{"loranet 123", StringContains, "lora___ ___", true},

		// regex meta characters are literals
		{"v1.2", StringStartsWith, "v1.", true},
		{"v102", StringStartsWith, "v1.", false},
		{"v1.2", StringContains, "%1.%", true},
		{"v102", StringContains, "%1.%", false},
		{"a+b(c)", StringEndsWith, "_(c)", true},
	}

	e := newTestEvaluator()
	for _, tt := range tests {
		t.Run(string(tt.op)+" "+tt.value, func(t *testing.T) {
			record := deviceNamed(tt.name)
			got := e.CheckKeyFilters(record, []Filter{nameFilter(stringPredicate(tt.op, tt.value))})
			assert.Equal(t, tt.result, got, "%q %s %q", tt.name, tt.op, tt.value)
		})
	}
}

func TestStringIgnoreCase(t *testing.T) {
	e := newTestEvaluator()
	p := stringPredicate(StringStartsWith, "LORA")
	assert.False(t, e.CheckString("loranet", p))

	p.IgnoreCase = true
	assert.True(t, e.CheckString("loranet", p))
	assert.True(t, e.CheckString("LoRaNet", p))

	in := stringPredicate(StringIn, "ABC, Def")
	in.IgnoreCase = true
	assert.True(t, e.CheckString("def", in))
}

func TestStringEmptyValueMatchesEverything(t *testing.T) {
	e := newTestEvaluator()
	for _, op := range []StringOperation{StringEqual, StringNotEqual, StringStartsWith, StringEndsWith,
		StringContains, StringNotContains, StringIn, StringNotIn} {
		assert.True(t, e.CheckString("anything", stringPredicate(op, "")), op)
	}
}

func TestStringUserValueOverridesDefault(t *testing.T) {
	e := newTestEvaluator()
	user := "abc"
	p := &StringFilterPredicate{Operation: StringEqual, Value: FilterPredicateValue[string]{DefaultValue: "xyz", UserValue: &user}}
	assert.True(t, e.CheckString("abc", p))
	assert.False(t, e.CheckString("xyz", p))
}

func TestSplitByCommaWithoutQuotes(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitByCommaWithoutQuotes(" a ,b,  c "))
	assert.Equal(t, []string{"a b", "c"}, splitByCommaWithoutQuotes(`"a b", "c"`))
	assert.Equal(t, []string{"a", "b"}, splitByCommaWithoutQuotes(`'a','b'`))
	// mixed quote styles are kept as written
	assert.Equal(t, []string{`'a'`, `"b"`}, splitByCommaWithoutQuotes(`'a', "b"`))
	assert.Equal(t, []string{`"a"`, `b`}, splitByCommaWithoutQuotes(`"a", b`))
	assert.Equal(t, []string{"a"}, splitByCommaWithoutQuotes("a,"))
}

func TestLikeExpression(t *testing.T) {
	assert.Equal(t, `^lora.*`, likeExpression("lora", "^", ".*"))
	assert.Equal(t, `^lora.*`, likeExpression("lora%", "^", ".*"))
	assert.Equal(t, `^lo.a.*`, likeExpression("lo_a", "^", ".*"))
	assert.Equal(t, `.*.23$`, likeExpression("_23", ".*", "$"))
	assert.Equal(t, `.*23$`, likeExpression("%23", ".*", "$"))
	assert.Equal(t, `lo.*3`, likeExpression("lo%3", ".*", ".*"))
	assert.Equal(t, `\.\*.*`, likeExpression(".*%", ".*", ".*"))
}

// --------------------------------------------------------------------------
// Numeric and Boolean Predicates
// --------------------------------------------------------------------------

func TestFilterDevicesByCreatedTime(t *testing.T) {
	tests := []struct {
		op     NumericOperation
		value  float64
		result bool
	}{
		{NumericEqual, 1000, true},
		{NumericEqual, 1001, false},
		{NumericNotEqual, 1000, false},
		{NumericNotEqual, 1001, true},
		{NumericGreater, 999, true},
		{NumericGreater, 1000, false},
		{NumericGreaterOrEqual, 1000, true},
		{NumericGreaterOrEqual, 1001, false},
		{NumericLess, 1001, true},
		{NumericLess, 1000, false},
		{NumericLessOrEqual, 1000, true},
		{NumericLessOrEqual, 999, false},
	}

	e := newTestEvaluator()
	record := newTestRecord(edqs.Fields{edqs.FieldCreatedTime: int64(1000)})
	for _, tt := range tests {
		filter := Filter{
			Key:       DataKey{Type: KeyTypeEntityField, Key: edqs.FieldCreatedTime},
			ValueType: ValueTypeDateTime,
			Predicate: numericPredicate(tt.op, tt.value),
		}
		assert.Equal(t, tt.result, e.CheckKeyFilters(record, []Filter{filter}), "%s %v", tt.op, tt.value)
	}
}

func TestFilterByDeviceTemperatureAndHumidity(t *testing.T) {
	tests := []struct {
		filters []Filter
		result  bool
	}{
		{[]Filter{temperatureFilter(numericPredicate(NumericEqual, 22.8)), humidityFilter(numericPredicate(NumericEqual, 60))}, true},
		{[]Filter{temperatureFilter(numericPredicate(NumericEqual, 22.8)), humidityFilter(numericPredicate(NumericGreaterOrEqual, 61))}, false},
		{[]Filter{temperatureFilter(numericPredicate(NumericGreater, 23)), humidityFilter(numericPredicate(NumericGreaterOrEqual, 60))}, false},
		{[]Filter{temperatureFilter(numericPredicate(NumericLessOrEqual, 22.8)), humidityFilter(numericPredicate(NumericLess, 61))}, true},
	}

	e := newTestEvaluator()
	record := deviceNamed("thermometer")
	record.values[5] = edqs.NewDoubleDataPoint(1, 22.8)
	record.values[6] = edqs.NewLongDataPoint(1, 60)
	for i, tt := range tests {
		assert.Equal(t, tt.result, e.CheckKeyFilters(record, tt.filters), "case %d", i)
	}
}

func TestNumericFilterOnMissingValue(t *testing.T) {
	e := newTestEvaluator()
	record := deviceNamed("no telemetry")
	assert.False(t, e.CheckKeyFilters(record, []Filter{temperatureFilter(numericPredicate(NumericNotEqual, 1))}))
}

func TestNumericFilterOnUnparsableText(t *testing.T) {
	e := newTestEvaluator()
	record := deviceNamed("text")
	record.values[5] = edqs.NewStringDataPoint(1, "warm")
	assert.False(t, e.CheckKeyFilters(record, []Filter{temperatureFilter(numericPredicate(NumericNotEqual, 1))}))

	record.values[5] = edqs.NewStringDataPoint(1, " 21.5 ")
	assert.True(t, e.CheckKeyFilters(record, []Filter{temperatureFilter(numericPredicate(NumericEqual, 21.5))}))
}

func TestFilterByActiveAndVersionAttributes(t *testing.T) {
	tests := []struct {
		filters []Filter
		result  bool
	}{
		{[]Filter{activeFilter(BooleanEqual, true), versionFilter(StringEqual, "3.2.1")}, true},
		{[]Filter{activeFilter(BooleanEqual, true), versionFilter(StringEqual, "3.2.2")}, false},
		{[]Filter{activeFilter(BooleanEqual, false), versionFilter(StringEqual, "3.2.1")}, false},
		{[]Filter{activeFilter(BooleanNotEqual, false)}, true},
		{[]Filter{activeFilter(BooleanNotEqual, true)}, false},
	}

	e := newTestEvaluator()
	record := deviceNamed("gateway")
	record.values[1] = edqs.NewStringDataPoint(1, "3.2.1")
	record.values[2] = edqs.NewBoolDataPoint(1, true)
	for i, tt := range tests {
		assert.Equal(t, tt.result, e.CheckKeyFilters(record, tt.filters), "case %d", i)
	}
}

func TestStringFilterOnMissingAttribute(t *testing.T) {
	e := newTestEvaluator()
	record := deviceNamed("gateway")
	// an absent attribute fails even an empty comparison value
	assert.False(t, e.CheckKeyFilters(record, []Filter{versionFilter(StringEqual, "")}))
}

func TestValueTypeInferredFromPredicate(t *testing.T) {
	e := newTestEvaluator()
	record := deviceNamed("gateway")
	record.values[2] = edqs.NewBoolDataPoint(1, true)

	filter := activeFilter(BooleanEqual, true)
	filter.ValueType = ""
	assert.True(t, e.CheckKeyFilters(record, []Filter{filter}))

	filter.Predicate = complexPredicate(ComplexAnd, boolPredicate(BooleanEqual, true))
	assert.Panics(t, func() { e.CheckKeyFilters(record, []Filter{filter}) })
}

func TestPredicateKindMismatchPanics(t *testing.T) {
	e := newTestEvaluator()
	assert.Panics(t, func() { e.CheckString("x", numericPredicate(NumericEqual, 1)) })
	assert.Panics(t, func() { e.CheckNumeric(1, stringPredicate(StringEqual, "x")) })
	assert.Panics(t, func() { e.CheckBool(true, numericPredicate(NumericEqual, 1)) })
}

// --------------------------------------------------------------------------
// Complex Predicates
// --------------------------------------------------------------------------

func TestFilterByDeviceNameComplexFilters(t *testing.T) {
	sw := func(v string) KeyFilterPredicate { return stringPredicate(StringStartsWith, v) }
	ew := func(v string) KeyFilterPredicate { return stringPredicate(StringEndsWith, v) }

	tests := []struct {
		name      string
		predicate KeyFilterPredicate
		result    bool
	}{
		{"", complexPredicate(ComplexAnd, sw("lo"), ew("123")), true},
		{"loranet 123", complexPredicate(ComplexAnd, sw("lo"), ew("123")), true},
		{"loranet 123", complexPredicate(ComplexAnd, sw("lo"), ew("124")), false},
		{"loranet 123", complexPredicate(ComplexOr, sw("lo"), sw("net")), true},
		{"loranet 123", complexPredicate(ComplexOr, sw("net"), sw("the")), false},
		{"loranet123", complexPredicate(ComplexAnd, complexPredicate(ComplexOr, sw("lo"), sw("the")), ew("123")), true},
		{"loranet 123", complexPredicate(ComplexOr, complexPredicate(ComplexOr, sw("net"), sw("the")), ew("123")), true},
		{"loranet 123", complexPredicate(ComplexAnd, complexPredicate(ComplexOr, sw("net"), sw("the")), ew("123")), false},
		{"loranet 123", complexPredicate(ComplexAnd, complexPredicate(ComplexOr, sw("lo"), sw("the")), ew("124")), false},
	}

	e := newTestEvaluator()
	for i, tt := range tests {
		got := e.CheckKeyFilters(deviceNamed(tt.name), []Filter{nameFilter(tt.predicate)})
		assert.Equal(t, tt.result, got, "case %d", i)
	}
}

func TestComplexFilterByDeviceTemperature(t *testing.T) {
	tests := []struct {
		predicate KeyFilterPredicate
		result    bool
	}{
		{complexPredicate(ComplexAnd, numericPredicate(NumericGreaterOrEqual, 22.8), numericPredicate(NumericLessOrEqual, 30)), true},
		{complexPredicate(ComplexAnd, numericPredicate(NumericGreater, 23.5), numericPredicate(NumericLessOrEqual, 30)), false},
		{complexPredicate(ComplexOr,
			complexPredicate(ComplexAnd, numericPredicate(NumericGreater, 22), numericPredicate(NumericLessOrEqual, 30)),
			numericPredicate(NumericGreater, 35)), true},
		{complexPredicate(ComplexAnd,
			complexPredicate(ComplexAnd, numericPredicate(NumericGreater, 22), numericPredicate(NumericLessOrEqual, 30)),
			numericPredicate(NumericEqual, 22.8)), true},
	}

	e := newTestEvaluator()
	record := deviceNamed("thermometer")
	record.values[5] = edqs.NewDoubleDataPoint(1, 22.8)
	for i, tt := range tests {
		assert.Equal(t, tt.result, e.CheckKeyFilters(record, []Filter{temperatureFilter(tt.predicate)}), "case %d", i)
	}
}

func TestComplexOrSkipsEmptyStringChildren(t *testing.T) {
	e := newTestEvaluator()

	or := complexPredicate(ComplexOr, stringPredicate(StringEqual, ""), numericPredicate(NumericGreater, 10))
	assert.True(t, e.CheckNumeric(20, or))
	assert.False(t, e.CheckNumeric(5, or))

	// an OR of only empty string terms matches nothing
	onlyEmpty := complexPredicate(ComplexOr, stringPredicate(StringEqual, ""), stringPredicate(StringContains, ""))
	assert.False(t, e.CheckString("anything", onlyEmpty))

	// outside of OR the empty term still matches everything
	assert.True(t, e.CheckString("anything", complexPredicate(ComplexAnd, stringPredicate(StringEqual, ""))))
}

func TestComplexAndShortCircuits(t *testing.T) {
	e := newTestEvaluator()
	// the numeric child would panic on a string value if it was evaluated
	and := complexPredicate(ComplexAnd, stringPredicate(StringEqual, "x"), numericPredicate(NumericGreater, 10))
	assert.False(t, e.CheckString("y", and))
}

func TestComplexUnknownOperation(t *testing.T) {
	e := newTestEvaluator()
	assert.False(t, e.CheckString("x", complexPredicate("XOR", stringPredicate(StringEqual, "x"))))
}

// --------------------------------------------------------------------------
// Aggregate Checks
// --------------------------------------------------------------------------

func TestCheckFilters(t *testing.T) {
	e := newTestEvaluator()
	name := DataKey{Type: KeyTypeEntityField, Key: edqs.FieldName}
	firmware := DataKey{Type: KeyTypeAttribute, Key: "firmware", KeyID: 7}

	record := deviceNamed("Boiler Room Sensor")
	record.values[7] = edqs.NewStringDataPoint(1, "FW-2.1")

	query := &DataQuery{EntityFields: []DataKey{name}, LatestValues: []DataKey{firmware}}
	assert.True(t, e.CheckFilters(query, record))

	query.TextSearch = "boiler"
	assert.True(t, e.CheckFilters(query, record))

	query.TextSearch = "fw-2"
	assert.True(t, e.CheckFilters(query, record))

	query.TextSearch = "kitchen"
	assert.False(t, e.CheckFilters(query, record))

	query.TextSearch = "   "
	assert.True(t, e.CheckFilters(query, record))

	query.TextSearch = ""
	query.Filters = []Filter{nameFilter(stringPredicate(StringStartsWith, "Kitchen"))}
	assert.False(t, e.CheckFilters(query, record))

	count := &CountQuery{Filters: []Filter{nameFilter(stringPredicate(StringStartsWith, "Boiler"))}}
	assert.True(t, e.CheckFilters(count, record))
}

func TestCheckFiltersWithoutFields(t *testing.T) {
	e := newTestEvaluator()
	assert.False(t, e.CheckFilters(&CountQuery{}, nil))

	var missing *testRecord
	assert.False(t, e.CheckFilters(&CountQuery{}, missing))

	removed := &testRecord{id: uuid.New()}
	assert.False(t, e.CheckFilters(&CountQuery{}, removed))
}

func TestMatchesEntityName(t *testing.T) {
	e := newTestEvaluator()
	assert.True(t, e.MatchesEntityName("anything", ""))
	assert.True(t, e.MatchesEntityName("anything", "  "))
	assert.True(t, e.MatchesEntityName("Thermostat A", "therm"))
	assert.False(t, e.MatchesEntityName("My Thermostat", "therm"))
	assert.True(t, e.MatchesEntityName("My Thermostat", "%therm%"))
	assert.True(t, e.MatchesEntityName("T-1", "t_1"))
	assert.False(t, e.MatchesEntityName("T-10", "t_1"))
}

func TestToTsValue(t *testing.T) {
	e := newTestEvaluator()
	assert.Equal(t, TsValue{}, e.ToTsValue(100, edqs.DataPoint{}, false))
	assert.Equal(t, TsValue{Ts: 5, Value: "21.5"}, e.ToTsValue(100, edqs.NewDoubleDataPoint(5, 21.5), true))
	assert.Equal(t, TsValue{Ts: 100, Value: "abc"}, e.ToTsValue(100, edqs.NewStringDataPoint(0, "abc"), true))
}

// --------------------------------------------------------------------------
// Sorting
// --------------------------------------------------------------------------

func TestSortNullsFirst(t *testing.T) {
	e := newTestEvaluator()
	id := func(s string) uuid.UUID { return uuid.MustParse(s) }

	records := []SortableRecord{
		{ID: id("00000000-0000-0000-0000-000000000004"), Value: nil},
		{ID: id("00000000-0000-0000-0000-000000000001"), Value: e.NewSortValue(edqs.NewLongDataPoint(0, 5))},
		{ID: id("00000000-0000-0000-0000-000000000002"), Value: e.NewSortValue(edqs.NewLongDataPoint(0, 3))},
		{ID: id("00000000-0000-0000-0000-000000000003"), Value: nil},
	}

	asc := slices.Clone(records)
	slices.SortFunc(asc, SortAsc)
	require.Len(t, asc, 4)
	assert.Equal(t, id("00000000-0000-0000-0000-000000000003"), asc[0].ID)
	assert.Equal(t, id("00000000-0000-0000-0000-000000000004"), asc[1].ID)
	assert.Equal(t, id("00000000-0000-0000-0000-000000000002"), asc[2].ID)
	assert.Equal(t, id("00000000-0000-0000-0000-000000000001"), asc[3].ID)

	desc := slices.Clone(records)
	slices.SortFunc(desc, SortDesc)
	for i := range desc {
		assert.Equal(t, asc[len(asc)-1-i].ID, desc[i].ID)
	}
}

func TestSortValueComparison(t *testing.T) {
	e := newTestEvaluator()
	v := func(dp edqs.DataPoint) *SortValue { return e.NewSortValue(dp) }

	assert.Equal(t, -1, compareSortValues(v(edqs.NewLongDataPoint(0, 2)), v(edqs.NewLongDataPoint(0, 10))))
	assert.Equal(t, 0, compareSortValues(v(edqs.NewLongDataPoint(0, 2)), v(edqs.NewDoubleDataPoint(0, 2))))
	assert.Equal(t, 1, compareSortValues(v(edqs.NewBoolDataPoint(0, true)), v(edqs.NewLongDataPoint(0, 0))))
	// text compares case-insensitively, numbers stored as text compare as text
	assert.Equal(t, 0, compareSortValues(v(edqs.NewStringDataPoint(0, "ABC")), v(edqs.NewStringDataPoint(0, "abc"))))
	assert.Equal(t, 1, compareSortValues(v(edqs.NewStringDataPoint(0, "2")), v(edqs.NewStringDataPoint(0, "10"))))
	assert.Equal(t, -1, compareSortValues(nil, v(edqs.NewStringDataPoint(0, ""))))
}

func TestSortMixedNumbersAndText(t *testing.T) {
	e := newTestEvaluator()
	nine := SortableRecord{ID: uuid.MustParse("00000000-0000-0000-0000-000000000009"), Value: e.NewSortValue(edqs.NewLongDataPoint(0, 9))}
	ten := SortableRecord{ID: uuid.MustParse("00000000-0000-0000-0000-000000000010"), Value: e.NewSortValue(edqs.NewLongDataPoint(0, 10))}
	text := SortableRecord{ID: uuid.MustParse("00000000-0000-0000-0000-00000000005a"), Value: e.NewSortValue(edqs.NewStringDataPoint(0, "5a"))}

	// numbers sort before text, so 9 < 10 < "5a" holds in every direction
	assert.Equal(t, -1, compareSortValues(nine.Value, ten.Value))
	assert.Equal(t, -1, compareSortValues(ten.Value, text.Value))
	assert.Equal(t, -1, compareSortValues(nine.Value, text.Value))
	assert.Equal(t, 1, compareSortValues(text.Value, nine.Value))

	want := []uuid.UUID{nine.ID, ten.ID, text.ID}
	for _, order := range [][]SortableRecord{
		{nine, ten, text}, {text, ten, nine}, {ten, text, nine}, {text, nine, ten},
	} {
		records := slices.Clone(order)
		slices.SortFunc(records, SortAsc)
		got := make([]uuid.UUID, len(records))
		for i, r := range records {
			got[i] = r.ID
		}
		assert.Equal(t, want, got)
	}
}

func TestSortValueOfRecord(t *testing.T) {
	e := newTestEvaluator()
	record := deviceNamed("pump")
	assert.Nil(t, e.SortValue(record, nil))
	assert.Nil(t, e.SortValue(record, &DataKey{Type: KeyTypeTimeSeries, KeyID: 9}))
	assert.NotNil(t, e.SortValue(record, &DataKey{Type: KeyTypeEntityField, Key: edqs.FieldName}))
}

func TestComparator(t *testing.T) {
	a := SortableRecord{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a")}
	b := SortableRecord{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b")}
	assert.Equal(t, -1, Comparator(SortAscending)(a, b))
	assert.Equal(t, 1, Comparator(SortDescending)(a, b))
	assert.Equal(t, 1, Comparator("")(a, b))
}
