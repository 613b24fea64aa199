package query

import (
	"math"
	"strings"

	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/google/uuid"
)

// --------------------------------------------------------------------------
// Sort Values
// --------------------------------------------------------------------------

// SortValue is a data point prepared for repeated comparisons. Numbers and
// booleans compare numerically with each other and sort before all other
// values, which compare by their text, case-insensitively.
type SortValue struct {
	numeric bool
	number  float64
	text    string
}

// NewSortValue prepares dp for sorting. Compressed text is decompressed once here.
func (e *Evaluator) NewSortValue(dp edqs.DataPoint) *SortValue {
	if dp.IsNumeric() {
		v, _ := dp.AsDouble(e.decompressor)
		return &SortValue{numeric: true, number: v, text: strings.ToLower(dp.ValueToString(e.decompressor))}
	}
	return &SortValue{text: strings.ToLower(dp.ValueToString(e.decompressor))}
}

func compareSortValues(a, b *SortValue) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.numeric && b.numeric:
		return compareFloat(a.number, b.number)
	case a.numeric:
		return -1
	case b.numeric:
		return 1
	default:
		return strings.Compare(a.text, b.text)
	}
}

// compareFloat orders NaN after every other value and -0 before +0.
func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	aNeg, bNeg := math.Signbit(a), math.Signbit(b)
	switch {
	case aNeg == bNeg:
		return 0
	case aNeg:
		return -1
	default:
		return 1
	}
}

// --------------------------------------------------------------------------
// Sortable Records
// --------------------------------------------------------------------------

// SortableRecord pairs a record id with its resolved sort value.
type SortableRecord struct {
	ID    uuid.UUID
	Value *SortValue
}

// SortAsc orders records without a value first, then by value, then by the
// textual id. The order is total for distinct ids.
func SortAsc(a, b SortableRecord) int {
	if c := compareSortValues(a.Value, b.Value); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

// SortDesc is the exact reverse of SortAsc, records without a value come last.
func SortDesc(a, b SortableRecord) int {
	return SortAsc(b, a)
}

// Comparator returns SortAsc or SortDesc for the direction. Anything but
// ASC sorts descending.
func Comparator(direction SortDirection) func(a, b SortableRecord) int {
	if direction == SortAscending {
		return SortAsc
	}
	return SortDesc
}
