package repo

import (
	"testing"

	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/ValentinKolb/edqs/lib/query"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEntityDataDataPoint(t *testing.T) {
	id := edqs.NewEntityID(edqs.EntityTypeDevice, uuid.New())
	ed := newEntityData(id)
	assert.False(t, ed.HasFields())
	assert.True(t, ed.isEmpty())

	ed.setEntity(edqs.NewEntity(edqs.Device{ID: id.ID, Name: "Sensor", CreatedTime: 42}))
	ed.putAttribute(attribute(id, edqs.ScopeClient, "mode", 1, edqs.NewStringDataPoint(1, "client")), 7)
	ed.putAttribute(attribute(id, edqs.ScopeShared, "mode", 1, edqs.NewStringDataPoint(2, "shared")), 7)
	ed.putAttribute(&edqs.AttributeKv{EntityID: id, Scope: edqs.ScopeServer, Key: "empty"}, 8)
	ed.putLatest(latest(id, "temperature", 1, edqs.NewDoubleDataPoint(3, 20)), 9)

	dp, ok := ed.DataPoint(query.DataKey{Type: query.KeyTypeEntityField, Key: edqs.FieldCreatedTime})
	assert.True(t, ok)
	assert.Equal(t, int64(42), dp.Long)

	dp, ok = ed.DataPoint(query.DataKey{Type: query.KeyTypeAttribute, KeyID: 7})
	assert.True(t, ok)
	assert.Equal(t, "shared", dp.Str)
	dp, ok = ed.DataPoint(query.DataKey{Type: query.KeyTypeClientAttribute, KeyID: 7})
	assert.True(t, ok)
	assert.Equal(t, "client", dp.Str)
	_, ok = ed.DataPoint(query.DataKey{Type: query.KeyTypeServerAttribute, KeyID: 7})
	assert.False(t, ok)

	// a value without data point counts as missing
	_, ok = ed.DataPoint(query.DataKey{Type: query.KeyTypeServerAttribute, KeyID: 8})
	assert.False(t, ok)

	dp, ok = ed.DataPoint(query.DataKey{Type: query.KeyTypeTimeSeries, KeyID: 9})
	assert.True(t, ok)
	assert.Equal(t, 20.0, dp.Double)
	_, ok = ed.DataPoint(query.DataKey{Type: query.KeyTypeConstant, Key: "x"})
	assert.False(t, ok)

	assert.Len(t, ed.objects(nil), 5)
	assert.Equal(t, "Sensor", ed.Name())
	assert.Equal(t, uuid.Nil, ed.CustomerID())
}

func TestEntityDataNilHasNoFields(t *testing.T) {
	var ed *EntityData
	assert.False(t, ed.HasFields())
}

func TestEntityDataDashboards(t *testing.T) {
	customer := newEntityData(edqs.NewEntityID(edqs.EntityTypeCustomer, uuid.New()))
	dashboard := uuid.New()
	customer.assignDashboard(&edqs.EntityRelation{
		From:      customer.id,
		To:        edqs.NewEntityID(edqs.EntityTypeDashboard, dashboard),
		TypeGroup: edqs.RelationTypeGroupDashboard,
		Type:      edqs.RelationTypeContains,
	})
	assert.False(t, customer.isEmpty())
	assert.False(t, customer.unassignDashboard(uuid.New()))
	assert.True(t, customer.unassignDashboard(dashboard))
	assert.True(t, customer.isEmpty())
}
