package edqs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keyIDs hands out ids in the order key names are first seen
type keyIDs map[string]int32

func (k keyIDs) ID(key string) int32 {
	if id, ok := k[key]; ok {
		return id
	}
	id := int32(len(k) + 1)
	k[key] = id
	return id
}

func TestIdentityKeyResolvesKeyNames(t *testing.T) {
	keys := keyIDs{}
	device := EntityID{Type: EntityTypeDevice, ID: uuid.New()}

	attr := &AttributeKv{EntityID: device, Scope: ScopeServer, Key: "mode", Version: 2}
	ts := &LatestTsKv{EntityID: device, Key: "temperature", Version: 3}

	assert.Equal(t, AttributeKvKey{EntityID: device, Scope: ScopeServer, KeyID: 1}, attr.IdentityKey(keys))
	assert.Equal(t, LatestTsKvKey{EntityID: device, KeyID: 2}, ts.IdentityKey(keys))

	// the same name resolves to the same id, the key field keeps the name
	again := &LatestTsKv{EntityID: device, Key: "mode"}
	assert.Equal(t, LatestTsKvKey{EntityID: device, KeyID: 1}, again.IdentityKey(keys))
	assert.Equal(t, "mode", attr.Key)
	assert.Equal(t, "temperature", ts.Key)
	require.Len(t, keys, 2)

	// scope is part of the identity
	client := &AttributeKv{EntityID: device, Scope: ScopeClient, Key: "mode"}
	assert.NotEqual(t, attr.IdentityKey(keys), client.IdentityKey(keys))
}

func TestIdentityKeyOfEntitiesAndRelations(t *testing.T) {
	keys := keyIDs{}
	e := &Entity{EntityType: EntityTypeDevice, ID: uuid.New()}
	assert.Equal(t, EntityKey{EntityID: e.EntityID()}, e.IdentityKey(keys))

	asset := EntityID{Type: EntityTypeAsset, ID: uuid.New()}
	r := &EntityRelation{From: asset, To: e.EntityID(), TypeGroup: "COMMON", Type: "Contains"}
	other := *r
	other.Type = "Manages"
	assert.Equal(t, RelationKey{From: asset, To: e.EntityID(), TypeGroup: "COMMON", Type: "Contains"}, r.IdentityKey(keys))
	assert.NotEqual(t, r.IdentityKey(keys), other.IdentityKey(keys))
	assert.Empty(t, keys)
}
