package edqs

import (
	"strconv"
	"strings"
)

// Decompressor turns compressed payload bytes back into text.
type Decompressor interface {
	Decompress(data []byte) (string, error)
}

// DataType is the discriminant of a DataPoint.
type DataType uint8

const (
	DataTypeBool DataType = iota + 1
	DataTypeLong
	DataTypeDouble
	DataTypeString
	DataTypeCompressedString
	DataTypeJSON
	DataTypeCompressedJSON
)

func (t DataType) String() string {
	switch t {
	case DataTypeBool:
		return "BOOLEAN"
	case DataTypeLong:
		return "LONG"
	case DataTypeDouble:
		return "DOUBLE"
	case DataTypeString:
		return "STRING"
	case DataTypeCompressedString:
		return "COMPRESSED_STRING"
	case DataTypeJSON:
		return "JSON"
	case DataTypeCompressedJSON:
		return "COMPRESSED_JSON"
	default:
		return "UNKNOWN"
	}
}

// IsCompressed reports whether the value lives in DataPoint.Compressed.
func (t DataType) IsCompressed() bool {
	return t == DataTypeCompressedString || t == DataTypeCompressedJSON
}

// IsText reports whether the value is a string or json payload (raw or compressed).
func (t DataType) IsText() bool {
	return t == DataTypeString || t == DataTypeJSON || t.IsCompressed()
}

// DataPoint is a timestamped scalar value. Exactly one of the value fields
// is meaningful, selected by Type. Compressed variants keep only the
// compressed bytes; the text is recovered on demand with a Decompressor.
type DataPoint struct {
	Ts         int64
	Type       DataType
	Bool       bool
	Long       int64
	Double     float64
	Str        string
	Compressed []byte
}

func NewBoolDataPoint(ts int64, v bool) DataPoint {
	return DataPoint{Ts: ts, Type: DataTypeBool, Bool: v}
}

func NewLongDataPoint(ts int64, v int64) DataPoint {
	return DataPoint{Ts: ts, Type: DataTypeLong, Long: v}
}

func NewDoubleDataPoint(ts int64, v float64) DataPoint {
	return DataPoint{Ts: ts, Type: DataTypeDouble, Double: v}
}

func NewStringDataPoint(ts int64, v string) DataPoint {
	return DataPoint{Ts: ts, Type: DataTypeString, Str: v}
}

func NewJSONDataPoint(ts int64, v string) DataPoint {
	return DataPoint{Ts: ts, Type: DataTypeJSON, Str: v}
}

// NewCompressedDataPoint wraps already compressed bytes. json selects the
// compressed json variant instead of the compressed string one.
func NewCompressedDataPoint(ts int64, data []byte, json bool) DataPoint {
	t := DataTypeCompressedString
	if json {
		t = DataTypeCompressedJSON
	}
	return DataPoint{Ts: ts, Type: t, Compressed: data}
}

// Text returns the textual form of the value. Only compressed variants can fail.
func (dp DataPoint) Text(d Decompressor) (string, error) {
	switch dp.Type {
	case DataTypeBool:
		return strconv.FormatBool(dp.Bool), nil
	case DataTypeLong:
		return strconv.FormatInt(dp.Long, 10), nil
	case DataTypeDouble:
		return strconv.FormatFloat(dp.Double, 'f', -1, 64), nil
	case DataTypeString, DataTypeJSON:
		return dp.Str, nil
	case DataTypeCompressedString, DataTypeCompressedJSON:
		return d.Decompress(dp.Compressed)
	default:
		return "", nil
	}
}

// ValueToString is Text with decompression failures mapped to the empty string.
func (dp DataPoint) ValueToString(d Decompressor) string {
	s, err := dp.Text(d)
	if err != nil {
		return ""
	}
	return s
}

// Decompress returns the raw variant of a compressed data point. Other
// variants are returned unchanged.
func (dp DataPoint) Decompress(d Decompressor) (DataPoint, error) {
	if !dp.Type.IsCompressed() {
		return dp, nil
	}
	s, err := d.Decompress(dp.Compressed)
	if err != nil {
		return DataPoint{}, err
	}
	if dp.Type == DataTypeCompressedJSON {
		return NewJSONDataPoint(dp.Ts, s), nil
	}
	return NewStringDataPoint(dp.Ts, s), nil
}

// AsDouble converts the value to a float64. Text values are parsed;
// the boolean is false when no numeric value can be derived.
func (dp DataPoint) AsDouble(d Decompressor) (float64, bool) {
	switch dp.Type {
	case DataTypeLong:
		return float64(dp.Long), true
	case DataTypeDouble:
		return dp.Double, true
	case DataTypeBool:
		if dp.Bool {
			return 1, true
		}
		return 0, true
	default:
		s, err := dp.Text(d)
		if err != nil {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
}

// AsBool converts the value to a bool. Numbers are true when non-zero,
// text must be "true" or "false" (case-insensitive).
func (dp DataPoint) AsBool(d Decompressor) (bool, bool) {
	switch dp.Type {
	case DataTypeBool:
		return dp.Bool, true
	case DataTypeLong:
		return dp.Long != 0, true
	case DataTypeDouble:
		return dp.Double != 0, true
	default:
		s, err := dp.Text(d)
		if err != nil {
			return false, false
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
		return false, false
	}
}

// IsNumeric reports whether the value is a number or a bool.
func (dp DataPoint) IsNumeric() bool {
	return dp.Type == DataTypeLong || dp.Type == DataTypeDouble || dp.Type == DataTypeBool
}
