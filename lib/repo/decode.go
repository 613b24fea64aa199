package repo

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/google/uuid"
)

// --------------------------------------------------------------------------
// JSON Events
// --------------------------------------------------------------------------

// jsonEvent is the external form of an Event, one per line in event files:
//
//	{"tenantId": "...", "type": "UPDATED", "objectType": "DEVICE", "object": {...}}
type jsonEvent struct {
	TenantID   uuid.UUID       `json:"tenantId"`
	Type       string          `json:"type"`
	ObjectType string          `json:"objectType"`
	Object     json.RawMessage `json:"object"`
}

type jsonEntity struct {
	ID     uuid.UUID       `json:"id"`
	Fields json.RawMessage `json:"fields"`
}

type jsonRelation struct {
	From      edqs.EntityID `json:"from"`
	To        edqs.EntityID `json:"to"`
	TypeGroup string        `json:"typeGroup"`
	Type      string        `json:"type"`
}

type jsonAttribute struct {
	EntityID edqs.EntityID       `json:"entityId"`
	Scope    edqs.AttributeScope `json:"scope"`
	Key      string              `json:"key"`
	Version  int64               `json:"version"`
	Value    *jsonDataPoint      `json:"value"`
}

type jsonLatest struct {
	EntityID edqs.EntityID  `json:"entityId"`
	Key      string         `json:"key"`
	Version  int64          `json:"version"`
	Value    *jsonDataPoint `json:"value"`
}

type jsonDataPoint struct {
	Ts    int64           `json:"ts"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// DecodeEvent decodes one JSON event. Entity fields keep integral numbers as
// int64 and all other numbers as float64.
func DecodeEvent(data []byte) (Event, error) {
	var raw jsonEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("invalid event: %w", err)
	}

	e := Event{TenantID: raw.TenantID}
	switch raw.Type {
	case "UPDATED":
		e.Type = EventUpdated
	case "DELETED":
		e.Type = EventDeleted
	default:
		return Event{}, fmt.Errorf("unknown event type %q", raw.Type)
	}

	objectType, err := edqs.ParseObjectType(raw.ObjectType)
	if err != nil {
		return Event{}, err
	}
	if len(raw.Object) == 0 {
		return Event{}, fmt.Errorf("%s event without object", objectType)
	}

	e.Object, err = decodeObject(objectType, raw.Object)
	if err != nil {
		return Event{}, fmt.Errorf("invalid %s object: %w", objectType, err)
	}
	return e, nil
}

func decodeObject(t edqs.ObjectType, data []byte) (edqs.Object, error) {
	switch t {
	case edqs.ObjectTypeRelation:
		var r jsonRelation
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		return &edqs.EntityRelation{From: r.From, To: r.To, TypeGroup: r.TypeGroup, Type: r.Type}, nil

	case edqs.ObjectTypeAttributeKv:
		var a jsonAttribute
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, err
		}
		dp, err := a.Value.dataPoint()
		if err != nil {
			return nil, err
		}
		return &edqs.AttributeKv{EntityID: a.EntityID, Scope: a.Scope, Key: a.Key, Version: a.Version, Value: dp}, nil

	case edqs.ObjectTypeLatestTsKv:
		var l jsonLatest
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, err
		}
		dp, err := l.Value.dataPoint()
		if err != nil {
			return nil, err
		}
		return &edqs.LatestTsKv{EntityID: l.EntityID, Key: l.Key, Version: l.Version, Value: dp}, nil
	}

	entityType, ok := t.EntityType()
	if !ok {
		return nil, fmt.Errorf("object type %s cannot be decoded", t)
	}
	var raw jsonEntity
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	fields, err := decodeFields(raw.Fields)
	if err != nil {
		return nil, err
	}
	return &edqs.Entity{EntityType: entityType, ID: raw.ID, Fields: fields}, nil
}

func decodeFields(data []byte) (edqs.Fields, error) {
	fields := edqs.Fields{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fields, nil
	}

	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	for name, v := range raw {
		switch v := v.(type) {
		case string, bool:
			fields[name] = v
		case json.Number:
			if i, err := v.Int64(); err == nil {
				fields[name] = i
			} else if f, err := v.Float64(); err == nil {
				fields[name] = f
			} else {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
		case nil:
		default:
			// nested values such as additionalInfo are kept as their json text
			text, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			fields[name] = string(text)
		}
	}
	return fields, nil
}

func (j *jsonDataPoint) dataPoint() (*edqs.DataPoint, error) {
	if j == nil {
		return nil, nil
	}

	var dp edqs.DataPoint
	var err error
	switch j.Type {
	case edqs.DataTypeBool.String():
		var v bool
		err = json.Unmarshal(j.Value, &v)
		dp = edqs.NewBoolDataPoint(j.Ts, v)
	case edqs.DataTypeLong.String():
		var v int64
		err = json.Unmarshal(j.Value, &v)
		dp = edqs.NewLongDataPoint(j.Ts, v)
	case edqs.DataTypeDouble.String():
		var v float64
		err = json.Unmarshal(j.Value, &v)
		dp = edqs.NewDoubleDataPoint(j.Ts, v)
	case edqs.DataTypeString.String():
		var v string
		err = json.Unmarshal(j.Value, &v)
		dp = edqs.NewStringDataPoint(j.Ts, v)
	case edqs.DataTypeJSON.String():
		var buf bytes.Buffer
		err = json.Compact(&buf, j.Value)
		dp = edqs.NewJSONDataPoint(j.Ts, buf.String())
	default:
		return nil, fmt.Errorf("unsupported value type %q", j.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s value: %w", j.Type, err)
	}
	return &dp, nil
}
