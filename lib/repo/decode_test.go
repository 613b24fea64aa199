package repo

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEntityEvent(t *testing.T) {
	tenant, device := uuid.New(), uuid.New()
	data := fmt.Sprintf(`{"tenantId":%q,"type":"UPDATED","objectType":"DEVICE","object":{
		"id":%q,
		"fields":{"name":"Sensor","createdTime":1700000000000,"version":3,"ratio":0.5,
		          "gateway":true,"additionalInfo":{"a":1},"label":null}}}`, tenant, device)

	e, err := DecodeEvent([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, tenant, e.TenantID)
	assert.Equal(t, EventUpdated, e.Type)

	entity, ok := e.Object.(*edqs.Entity)
	require.True(t, ok)
	assert.Equal(t, edqs.NewEntityID(edqs.EntityTypeDevice, device), entity.EntityID())
	assert.Equal(t, "Sensor", entity.Fields[edqs.FieldName])
	assert.Equal(t, int64(1700000000000), entity.Fields.CreatedTime())
	assert.Equal(t, int64(3), entity.GetVersion())
	assert.Equal(t, 0.5, entity.Fields["ratio"])
	assert.Equal(t, true, entity.Fields["gateway"])
	assert.Equal(t, `{"a":1}`, entity.Fields[edqs.FieldAdditionalInfo])
	assert.NotContains(t, entity.Fields, edqs.FieldLabel)
}

func TestDecodeRelationEvent(t *testing.T) {
	from, to := uuid.New(), uuid.New()
	data := fmt.Sprintf(`{"tenantId":%q,"type":"DELETED","objectType":"RELATION","object":{
		"from":{"entityType":"ASSET","id":%q},"to":{"entityType":"DEVICE","id":%q},
		"typeGroup":"COMMON","type":"Contains"}}`, uuid.New(), from, to)

	e, err := DecodeEvent([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, EventDeleted, e.Type)
	assert.Equal(t, &edqs.EntityRelation{
		From:      edqs.NewEntityID(edqs.EntityTypeAsset, from),
		To:        edqs.NewEntityID(edqs.EntityTypeDevice, to),
		TypeGroup: "COMMON",
		Type:      "Contains",
	}, e.Object)
}

func TestDecodeValueEvents(t *testing.T) {
	id := uuid.New()
	attr := fmt.Sprintf(`{"tenantId":%q,"type":"UPDATED","objectType":"ATTRIBUTE_KV","object":{
		"entityId":{"entityType":"DEVICE","id":%q},"scope":"SERVER_SCOPE","key":"mode","version":2,
		"value":{"ts":10,"type":"JSON","value":{"on": true}}}}`, uuid.New(), id)
	e, err := DecodeEvent([]byte(attr))
	require.NoError(t, err)
	a := e.Object.(*edqs.AttributeKv)
	assert.Equal(t, edqs.ScopeServer, a.Scope)
	assert.Equal(t, int64(2), a.Version)
	require.NotNil(t, a.Value)
	assert.Equal(t, edqs.NewJSONDataPoint(10, `{"on":true}`), *a.Value)

	latest := fmt.Sprintf(`{"tenantId":%q,"type":"UPDATED","objectType":"LATEST_TS_KV","object":{
		"entityId":{"entityType":"DEVICE","id":%q},"key":"temperature","version":1,
		"value":{"ts":11,"type":"DOUBLE","value":21.5}}}`, uuid.New(), id)
	e, err = DecodeEvent([]byte(latest))
	require.NoError(t, err)
	l := e.Object.(*edqs.LatestTsKv)
	assert.Equal(t, "temperature", l.Key)
	assert.Equal(t, edqs.NewDoubleDataPoint(11, 21.5), *l.Value)

	// deletes only carry the identity
	deleted := fmt.Sprintf(`{"tenantId":%q,"type":"DELETED","objectType":"LATEST_TS_KV","object":{
		"entityId":{"entityType":"DEVICE","id":%q},"key":"temperature","version":2}}`, uuid.New(), id)
	e, err = DecodeEvent([]byte(deleted))
	require.NoError(t, err)
	assert.Nil(t, e.Object.(*edqs.LatestTsKv).Value)
}

func TestDecodeEventErrors(t *testing.T) {
	tenant := uuid.New()
	for name, data := range map[string]string{
		"syntax":       `{"tenantId":`,
		"event type":   fmt.Sprintf(`{"tenantId":%q,"type":"CREATED","objectType":"DEVICE","object":{}}`, tenant),
		"object type":  fmt.Sprintf(`{"tenantId":%q,"type":"UPDATED","objectType":"ALARM","object":{}}`, tenant),
		"no object":    fmt.Sprintf(`{"tenantId":%q,"type":"UPDATED","objectType":"DEVICE"}`, tenant),
		"value type":   fmt.Sprintf(`{"tenantId":%q,"type":"UPDATED","objectType":"LATEST_TS_KV","object":{"key":"k","value":{"type":"COMPRESSED_STRING"}}}`, tenant),
		"value syntax": fmt.Sprintf(`{"tenantId":%q,"type":"UPDATED","objectType":"LATEST_TS_KV","object":{"key":"k","value":{"type":"LONG","value":"x"}}}`, tenant),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestDecodedEventsApply(t *testing.T) {
	r := newTestRepo(t)
	tenant, device := uuid.New(), uuid.New()
	lines := []string{
		fmt.Sprintf(`{"tenantId":%q,"type":"UPDATED","objectType":"DEVICE","object":{"id":%q,"fields":{"name":"d1","type":"sensor","createdTime":1}}}`, tenant, device),
		fmt.Sprintf(`{"tenantId":%q,"type":"UPDATED","objectType":"LATEST_TS_KV","object":{"entityId":{"entityType":"DEVICE","id":%q},"key":"temperature","version":1,"value":{"ts":5,"type":"LONG","value":21}}}`, tenant, device),
	}
	for _, line := range lines {
		e, err := DecodeEvent([]byte(line))
		require.NoError(t, err)
		assert.True(t, r.Apply(e))
	}

	stats := r.Stats()
	assert.Equal(t, 1, stats.Entities[edqs.EntityTypeDevice])
	assert.Equal(t, 1, stats.LatestValues)
}
