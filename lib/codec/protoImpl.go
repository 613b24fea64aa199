package codec

import (
	"fmt"
	"math"

	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the binary layout. They follow the protobuf messages
// AttributeKvProto, LatestTsKvProto and DataPointProto and must stay stable.
const (
	fieldEntityIDMSB protowire.Number = 1
	fieldEntityIDLSB protowire.Number = 2
	fieldEntityType  protowire.Number = 3

	attrFieldScope     protowire.Number = 4
	attrFieldKey       protowire.Number = 5
	attrFieldVersion   protowire.Number = 6
	attrFieldDataPoint protowire.Number = 7

	tsFieldKey       protowire.Number = 4
	tsFieldVersion   protowire.Number = 5
	tsFieldDataPoint protowire.Number = 6

	dpFieldTs               protowire.Number = 1
	dpFieldBool             protowire.Number = 2
	dpFieldLong             protowire.Number = 3
	dpFieldDouble           protowire.Number = 4
	dpFieldString           protowire.Number = 5
	dpFieldCompressedString protowire.Number = 6
	dpFieldJSON             protowire.Number = 7
	dpFieldCompressedJSON   protowire.Number = 8
)

// protoStrategy implements the binary layout of attributes and latest values
type protoStrategy struct {
	codec *codecImpl
}

// --------------------------------------------------------------------------
// Serialize
// --------------------------------------------------------------------------

func (p *protoStrategy) serialize(t edqs.ObjectType, obj edqs.Object) ([]byte, error) {
	switch v := obj.(type) {
	case *edqs.AttributeKv:
		if t != edqs.ObjectTypeAttributeKv {
			return nil, fmt.Errorf("codec: cannot serialize attribute as %s", t)
		}
		b := make([]byte, 0, 48+len(v.Key))
		b = appendEntityID(b, v.EntityID)
		b = appendVarint(b, attrFieldScope, uint64(v.Scope-edqs.ScopeClient))
		b = appendString(b, attrFieldKey, v.Key)
		b = appendVarint(b, attrFieldVersion, uint64(v.Version))
		if v.Value != nil {
			b = protowire.AppendTag(b, attrFieldDataPoint, protowire.BytesType)
			b = protowire.AppendBytes(b, p.appendDataPoint(nil, *v.Value))
		}
		return b, nil
	case *edqs.LatestTsKv:
		if t != edqs.ObjectTypeLatestTsKv {
			return nil, fmt.Errorf("codec: cannot serialize latest value as %s", t)
		}
		b := make([]byte, 0, 48+len(v.Key))
		b = appendEntityID(b, v.EntityID)
		b = appendString(b, tsFieldKey, v.Key)
		b = appendVarint(b, tsFieldVersion, uint64(v.Version))
		if v.Value != nil {
			b = protowire.AppendTag(b, tsFieldDataPoint, protowire.BytesType)
			b = protowire.AppendBytes(b, p.appendDataPoint(nil, *v.Value))
		}
		return b, nil
	default:
		return nil, fmt.Errorf("codec: %T has no binary layout", obj)
	}
}

// appendDataPoint writes the ts and exactly one member of the value oneof.
// Raw strings at or above the threshold are compressed on the way.
func (p *protoStrategy) appendDataPoint(b []byte, dp edqs.DataPoint) []byte {
	dp = p.codec.Compact(dp)

	b = appendVarint(b, dpFieldTs, uint64(dp.Ts))
	switch dp.Type {
	case edqs.DataTypeBool:
		b = protowire.AppendTag(b, dpFieldBool, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(dp.Bool))
	case edqs.DataTypeLong:
		b = protowire.AppendTag(b, dpFieldLong, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(dp.Long))
	case edqs.DataTypeDouble:
		b = protowire.AppendTag(b, dpFieldDouble, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(dp.Double))
	case edqs.DataTypeString:
		b = protowire.AppendTag(b, dpFieldString, protowire.BytesType)
		b = protowire.AppendString(b, dp.Str)
	case edqs.DataTypeJSON:
		b = protowire.AppendTag(b, dpFieldJSON, protowire.BytesType)
		b = protowire.AppendString(b, dp.Str)
	case edqs.DataTypeCompressedString:
		b = protowire.AppendTag(b, dpFieldCompressedString, protowire.BytesType)
		b = protowire.AppendBytes(b, dp.Compressed)
	case edqs.DataTypeCompressedJSON:
		b = protowire.AppendTag(b, dpFieldCompressedJSON, protowire.BytesType)
		b = protowire.AppendBytes(b, dp.Compressed)
	}
	return b
}

// --------------------------------------------------------------------------
// Deserialize
// --------------------------------------------------------------------------

func (p *protoStrategy) deserialize(t edqs.ObjectType, data []byte, onlyKey bool) (edqs.Object, error) {
	var (
		msb, lsb   uint64
		entityType uint64
		scope      uint64
		key        string
		version    uint64
		dpBytes    []byte
		hasDP      bool
	)

	keyField, versionField, dpField := tsFieldKey, tsFieldVersion, tsFieldDataPoint
	if t == edqs.ObjectTypeAttributeKv {
		keyField, versionField, dpField = attrFieldKey, attrFieldVersion, attrFieldDataPoint
	}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, newDecodeError(t, "invalid field tag", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldEntityIDMSB, num == fieldEntityIDLSB, num == fieldEntityType,
			num == versionField, t == edqs.ObjectTypeAttributeKv && num == attrFieldScope:
			if typ != protowire.VarintType {
				return nil, newDecodeError(t, fmt.Sprintf("field %d has wire type %d, want varint", num, typ), nil)
			}
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, newDecodeError(t, fmt.Sprintf("data too short for field %d", num), protowire.ParseError(n))
			}
			data = data[n:]
			switch num {
			case fieldEntityIDMSB:
				msb = v
			case fieldEntityIDLSB:
				lsb = v
			case fieldEntityType:
				entityType = v
			case versionField:
				version = v
			default:
				scope = v
			}
		case num == keyField, num == dpField:
			if typ != protowire.BytesType {
				return nil, newDecodeError(t, fmt.Sprintf("field %d has wire type %d, want bytes", num, typ), nil)
			}
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, newDecodeError(t, fmt.Sprintf("data too short for field %d", num), protowire.ParseError(n))
			}
			data = data[n:]
			if num == keyField {
				key = p.codec.pool.Intern(string(v))
			} else {
				dpBytes, hasDP = v, true
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, newDecodeError(t, fmt.Sprintf("cannot skip unknown field %d", num), protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	if entityType > math.MaxInt32 || !edqs.EntityType(entityType).Valid() {
		return nil, newDecodeError(t, fmt.Sprintf("unknown entity type %d", entityType), nil)
	}
	entityID := edqs.NewEntityID(edqs.EntityType(entityType), uuidFromHalves(msb, lsb))

	var value *edqs.DataPoint
	if hasDP && !onlyKey {
		dp, err := p.decodeDataPoint(t, dpBytes)
		if err != nil {
			return nil, err
		}
		value = &dp
	}

	if t == edqs.ObjectTypeAttributeKv {
		if scope > uint64(edqs.ScopeShared-edqs.ScopeClient) {
			return nil, newDecodeError(t, fmt.Sprintf("unknown attribute scope %d", scope), nil)
		}
		return &edqs.AttributeKv{EntityID: entityID, Scope: edqs.AttributeScope(scope) + edqs.ScopeClient, Key: key, Version: int64(version), Value: value}, nil
	}
	return &edqs.LatestTsKv{EntityID: entityID, Key: key, Version: int64(version), Value: value}, nil
}

func (p *protoStrategy) decodeDataPoint(t edqs.ObjectType, data []byte) (edqs.DataPoint, error) {
	var dp edqs.DataPoint
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return dp, newDecodeError(t, "invalid data point tag", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case dpFieldTs, dpFieldBool, dpFieldLong:
			if typ != protowire.VarintType {
				return dp, newDecodeError(t, fmt.Sprintf("data point field %d has wire type %d, want varint", num, typ), nil)
			}
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return dp, newDecodeError(t, fmt.Sprintf("data too short for data point field %d", num), protowire.ParseError(n))
			}
			data = data[n:]
			switch num {
			case dpFieldTs:
				dp.Ts = int64(v)
			case dpFieldBool:
				dp.Type, dp.Bool = edqs.DataTypeBool, protowire.DecodeBool(v)
			default:
				dp.Type, dp.Long = edqs.DataTypeLong, int64(v)
			}
		case dpFieldDouble:
			if typ != protowire.Fixed64Type {
				return dp, newDecodeError(t, fmt.Sprintf("data point field %d has wire type %d, want fixed64", num, typ), nil)
			}
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return dp, newDecodeError(t, "data too short for double value", protowire.ParseError(n))
			}
			data = data[n:]
			dp.Type, dp.Double = edqs.DataTypeDouble, math.Float64frombits(v)
		case dpFieldString, dpFieldJSON, dpFieldCompressedString, dpFieldCompressedJSON:
			if typ != protowire.BytesType {
				return dp, newDecodeError(t, fmt.Sprintf("data point field %d has wire type %d, want bytes", num, typ), nil)
			}
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return dp, newDecodeError(t, fmt.Sprintf("data too short for data point field %d", num), protowire.ParseError(n))
			}
			data = data[n:]
			switch num {
			case dpFieldString:
				dp.Type, dp.Str = edqs.DataTypeString, string(v)
			case dpFieldJSON:
				dp.Type, dp.Str = edqs.DataTypeJSON, string(v)
			case dpFieldCompressedString:
				dp.Type, dp.Compressed = edqs.DataTypeCompressedString, append([]byte(nil), v...)
			default:
				dp.Type, dp.Compressed = edqs.DataTypeCompressedJSON, append([]byte(nil), v...)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return dp, newDecodeError(t, fmt.Sprintf("cannot skip unknown data point field %d", num), protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	if dp.Type == 0 {
		return dp, newDecodeError(t, "data point without value", nil)
	}
	return dp, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// appendVarint writes a varint field, omitting zero values like proto3 does
func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendEntityID(b []byte, id edqs.EntityID) []byte {
	msb, lsb := uuidHalves(id.ID)
	b = appendVarint(b, fieldEntityIDMSB, msb)
	b = appendVarint(b, fieldEntityIDLSB, lsb)
	return appendVarint(b, fieldEntityType, uint64(id.Type))
}

// uuidHalves splits a uuid into its most and least significant 64 bits
func uuidHalves(id uuid.UUID) (msb, lsb uint64) {
	for i := 0; i < 8; i++ {
		msb = msb<<8 | uint64(id[i])
		lsb = lsb<<8 | uint64(id[8+i])
	}
	return msb, lsb
}

func uuidFromHalves(msb, lsb uint64) uuid.UUID {
	var id uuid.UUID
	for i := 7; i >= 0; i-- {
		id[i] = byte(msb)
		id[8+i] = byte(lsb)
		msb >>= 8
		lsb >>= 8
	}
	return id
}
