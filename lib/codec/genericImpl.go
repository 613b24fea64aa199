package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/google/uuid"
)

// genericStrategy encodes entities and relations as self-describing json.
// Unknown json fields are ignored on decode.
type genericStrategy struct {
	codec *codecImpl
}

type entityJSON struct {
	EntityType *edqs.EntityType `json:"entityType,omitempty"`
	ID         uuid.UUID        `json:"id"`
	Fields     map[string]any   `json:"fields,omitempty"`
}

// entityKeyJSON is entityJSON without fields, json skips the payload entirely
type entityKeyJSON struct {
	EntityType *edqs.EntityType `json:"entityType,omitempty"`
	ID         uuid.UUID        `json:"id"`
}

type relationJSON struct {
	From      edqs.EntityID `json:"from"`
	To        edqs.EntityID `json:"to"`
	TypeGroup string        `json:"typeGroup"`
	Type      string        `json:"type"`
}

// --------------------------------------------------------------------------
// Serialize
// --------------------------------------------------------------------------

func (g *genericStrategy) serialize(t edqs.ObjectType, obj edqs.Object) ([]byte, error) {
	switch v := obj.(type) {
	case *edqs.Entity:
		fields := make(map[string]any, len(v.Fields))
		for name, value := range v.Fields {
			encoded, err := encodeField(value)
			if err != nil {
				return nil, fmt.Errorf("codec: field %q of %s: %w", name, v.EntityID(), err)
			}
			fields[name] = encoded
		}
		et := v.EntityType
		return json.Marshal(entityJSON{EntityType: &et, ID: v.ID, Fields: fields})
	case *edqs.EntityRelation:
		return json.Marshal(relationJSON{From: v.From, To: v.To, TypeGroup: v.TypeGroup, Type: v.Type})
	default:
		return nil, fmt.Errorf("codec: %T cannot be serialized as %s", obj, t)
	}
}

// encodeField keeps the int64/float64 distinction visible in the json text:
// integral floats are written with a fraction so they decode as float64 again.
func encodeField(value any) (any, error) {
	f, ok := value.(float64)
	if !ok {
		return value, nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("unsupported float value %v", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return json.Number(s), nil
}

// --------------------------------------------------------------------------
// Deserialize
// --------------------------------------------------------------------------

func (g *genericStrategy) deserialize(t edqs.ObjectType, data []byte, onlyKey bool) (edqs.Object, error) {
	if t == edqs.ObjectTypeRelation {
		var r relationJSON
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, newDecodeError(t, "invalid relation payload", err)
		}
		if r.From.IsZero() || r.To.IsZero() {
			return nil, newDecodeError(t, "relation without endpoints", nil)
		}
		return &edqs.EntityRelation{
			From:      r.From,
			To:        r.To,
			TypeGroup: g.codec.pool.Intern(r.TypeGroup),
			Type:      g.codec.pool.Intern(r.Type),
		}, nil
	}

	var (
		declared *edqs.EntityType
		id       uuid.UUID
		raw      map[string]any
	)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if onlyKey {
		var e entityKeyJSON
		if err := dec.Decode(&e); err != nil {
			return nil, newDecodeError(t, "invalid entity payload", err)
		}
		declared, id = e.EntityType, e.ID
	} else {
		var e entityJSON
		if err := dec.Decode(&e); err != nil {
			return nil, newDecodeError(t, "invalid entity payload", err)
		}
		declared, id, raw = e.EntityType, e.ID, e.Fields
	}

	if id == uuid.Nil {
		return nil, newDecodeError(t, "entity without id", nil)
	}
	entityType, known := t.EntityType()
	switch {
	case declared != nil && known && *declared != entityType:
		return nil, newDecodeError(t, fmt.Sprintf("payload holds a %s", *declared), nil)
	case declared != nil:
		entityType = *declared
	case !known:
		return nil, newDecodeError(t, "entity type missing", nil)
	}

	entity := &edqs.Entity{EntityType: entityType, ID: id}
	if !onlyKey {
		entity.Fields = make(edqs.Fields, len(raw))
		for name, value := range raw {
			if v, ok := g.decodeField(value); ok {
				entity.Fields[g.codec.pool.Intern(name)] = v
			}
		}
	}
	return entity, nil
}

// decodeField normalizes a json value to one of string, int64, float64 or
// bool. Nested objects and arrays are kept as their json text.
func (g *genericStrategy) decodeField(value any) (any, bool) {
	switch v := value.(type) {
	case string:
		return g.codec.pool.Intern(v), true
	case bool:
		return v, true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		f, err := v.Float64()
		if err != nil {
			return nil, false
		}
		return f, true
	case nil:
		return nil, false
	default:
		text, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		return string(text), true
	}
}
