package edqs

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// --------------------------------------------------------------------------
// Entity Types
// --------------------------------------------------------------------------

// EntityType identifies the kind of platform entity. The numeric values are
// part of the binary wire format and must never be reordered.
type EntityType int32

const (
	EntityTypeTenant EntityType = iota
	EntityTypeCustomer
	EntityTypeUser
	EntityTypeDashboard
	EntityTypeAsset
	EntityTypeDevice
	EntityTypeAlarm
	EntityTypeRuleChain
	EntityTypeRuleNode
	EntityTypeEntityView
	EntityTypeWidgetsBundle
	EntityTypeWidgetType
	EntityTypeTenantProfile
	EntityTypeDeviceProfile
	EntityTypeAssetProfile
	EntityTypeAPIUsageState
	EntityTypeTBResource
	EntityTypeOTAPackage
	EntityTypeEdge
	EntityTypeRPC
	EntityTypeQueue
)

var entityTypeNames = [...]string{
	EntityTypeTenant:        "TENANT",
	EntityTypeCustomer:      "CUSTOMER",
	EntityTypeUser:          "USER",
	EntityTypeDashboard:     "DASHBOARD",
	EntityTypeAsset:         "ASSET",
	EntityTypeDevice:        "DEVICE",
	EntityTypeAlarm:         "ALARM",
	EntityTypeRuleChain:     "RULE_CHAIN",
	EntityTypeRuleNode:      "RULE_NODE",
	EntityTypeEntityView:    "ENTITY_VIEW",
	EntityTypeWidgetsBundle: "WIDGETS_BUNDLE",
	EntityTypeWidgetType:    "WIDGET_TYPE",
	EntityTypeTenantProfile: "TENANT_PROFILE",
	EntityTypeDeviceProfile: "DEVICE_PROFILE",
	EntityTypeAssetProfile:  "ASSET_PROFILE",
	EntityTypeAPIUsageState: "API_USAGE_STATE",
	EntityTypeTBResource:    "TB_RESOURCE",
	EntityTypeOTAPackage:    "OTA_PACKAGE",
	EntityTypeEdge:          "EDGE",
	EntityTypeRPC:           "RPC",
	EntityTypeQueue:         "QUEUE",
}

func (t EntityType) String() string {
	if t >= 0 && int(t) < len(entityTypeNames) {
		return entityTypeNames[t]
	}
	return fmt.Sprintf("EntityType(%d)", int32(t))
}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	return t >= 0 && int(t) < len(entityTypeNames)
}

// ParseEntityType converts the upper-case name of an entity type into its value.
func ParseEntityType(s string) (EntityType, error) {
	for i, name := range entityTypeNames {
		if name == s {
			return EntityType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown entity type %q", s)
}

func (t EntityType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid entity type %d", int32(t))
	}
	return []byte(t.String()), nil
}

func (t *EntityType) UnmarshalText(text []byte) error {
	parsed, err := ParseEntityType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// --------------------------------------------------------------------------
// Object Types
// --------------------------------------------------------------------------

// ObjectType is the closed set of record categories held by the store.
// It selects the codec strategy and the shape of the identity key.
type ObjectType uint8

const (
	ObjectTypeTenant ObjectType = iota
	ObjectTypeTenantProfile
	ObjectTypeCustomer
	ObjectTypeQueue
	ObjectTypeRuleChain
	ObjectTypeAssetProfile
	ObjectTypeAsset
	ObjectTypeDeviceProfile
	ObjectTypeDevice
	ObjectTypeEntityView
	ObjectTypeEdge
	ObjectTypeWidgetType
	ObjectTypeWidgetsBundle
	ObjectTypeDashboard
	ObjectTypeAPIUsageState
	ObjectTypeUser
	ObjectTypeRelation
	ObjectTypeAttributeKv
	ObjectTypeLatestTsKv

	// NumObjectTypes is the number of known object types.
	NumObjectTypes = int(ObjectTypeLatestTsKv) + 1
)

var objectTypeNames = [...]string{
	ObjectTypeTenant:        "TENANT",
	ObjectTypeTenantProfile: "TENANT_PROFILE",
	ObjectTypeCustomer:      "CUSTOMER",
	ObjectTypeQueue:         "QUEUE",
	ObjectTypeRuleChain:     "RULE_CHAIN",
	ObjectTypeAssetProfile:  "ASSET_PROFILE",
	ObjectTypeAsset:         "ASSET",
	ObjectTypeDeviceProfile: "DEVICE_PROFILE",
	ObjectTypeDevice:        "DEVICE",
	ObjectTypeEntityView:    "ENTITY_VIEW",
	ObjectTypeEdge:          "EDGE",
	ObjectTypeWidgetType:    "WIDGET_TYPE",
	ObjectTypeWidgetsBundle: "WIDGETS_BUNDLE",
	ObjectTypeDashboard:     "DASHBOARD",
	ObjectTypeAPIUsageState: "API_USAGE_STATE",
	ObjectTypeUser:          "USER",
	ObjectTypeRelation:      "RELATION",
	ObjectTypeAttributeKv:   "ATTRIBUTE_KV",
	ObjectTypeLatestTsKv:    "LATEST_TS_KV",
}

func (t ObjectType) String() string {
	if int(t) < len(objectTypeNames) {
		return objectTypeNames[t]
	}
	return fmt.Sprintf("ObjectType(%d)", uint8(t))
}

// ParseObjectType converts the upper-case name of an object type into its value.
func ParseObjectType(s string) (ObjectType, error) {
	for i, name := range objectTypeNames {
		if name == s {
			return ObjectType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown object type %q", s)
}

// IsEntity reports whether records of this type are generic entities.
func (t ObjectType) IsEntity() bool {
	_, ok := t.EntityType()
	return ok
}

// EntityType returns the entity type stored under this object type, if any.
func (t ObjectType) EntityType() (EntityType, bool) {
	switch t {
	case ObjectTypeTenant:
		return EntityTypeTenant, true
	case ObjectTypeTenantProfile:
		return EntityTypeTenantProfile, true
	case ObjectTypeCustomer:
		return EntityTypeCustomer, true
	case ObjectTypeQueue:
		return EntityTypeQueue, true
	case ObjectTypeRuleChain:
		return EntityTypeRuleChain, true
	case ObjectTypeAssetProfile:
		return EntityTypeAssetProfile, true
	case ObjectTypeAsset:
		return EntityTypeAsset, true
	case ObjectTypeDeviceProfile:
		return EntityTypeDeviceProfile, true
	case ObjectTypeDevice:
		return EntityTypeDevice, true
	case ObjectTypeEntityView:
		return EntityTypeEntityView, true
	case ObjectTypeEdge:
		return EntityTypeEdge, true
	case ObjectTypeWidgetType:
		return EntityTypeWidgetType, true
	case ObjectTypeWidgetsBundle:
		return EntityTypeWidgetsBundle, true
	case ObjectTypeDashboard:
		return EntityTypeDashboard, true
	case ObjectTypeAPIUsageState:
		return EntityTypeAPIUsageState, true
	case ObjectTypeUser:
		return EntityTypeUser, true
	default:
		return 0, false
	}
}

// ObjectTypeOf returns the object type used to store entities of the given type.
// The boolean is false for entity types that are not held by the store.
func ObjectTypeOf(t EntityType) (ObjectType, bool) {
	for i := 0; i < NumObjectTypes; i++ {
		if et, ok := ObjectType(i).EntityType(); ok && et == t {
			return ObjectType(i), true
		}
	}
	return 0, false
}

// --------------------------------------------------------------------------
// Attribute Scope
// --------------------------------------------------------------------------

type AttributeScope int32

const (
	ScopeClient AttributeScope = iota + 1
	ScopeServer
	ScopeShared
)

func (s AttributeScope) String() string {
	switch s {
	case ScopeClient:
		return "CLIENT_SCOPE"
	case ScopeServer:
		return "SERVER_SCOPE"
	case ScopeShared:
		return "SHARED_SCOPE"
	default:
		return fmt.Sprintf("AttributeScope(%d)", int32(s))
	}
}

// ParseAttributeScope accepts both the short (SERVER) and the long (SERVER_SCOPE) form.
func ParseAttributeScope(s string) (AttributeScope, error) {
	switch strings.TrimSuffix(strings.ToUpper(s), "_SCOPE") {
	case "CLIENT":
		return ScopeClient, nil
	case "SERVER":
		return ScopeServer, nil
	case "SHARED":
		return ScopeShared, nil
	default:
		return 0, fmt.Errorf("unknown attribute scope %q", s)
	}
}

func (s AttributeScope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *AttributeScope) UnmarshalText(text []byte) error {
	parsed, err := ParseAttributeScope(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// --------------------------------------------------------------------------
// Entity ID
// --------------------------------------------------------------------------

// EntityID is the typed identifier of an entity. It is comparable and
// can be used as a map key.
type EntityID struct {
	Type EntityType `json:"entityType"`
	ID   uuid.UUID  `json:"id"`
}

func NewEntityID(t EntityType, id uuid.UUID) EntityID {
	return EntityID{Type: t, ID: id}
}

func (e EntityID) String() string {
	return e.Type.String() + ":" + e.ID.String()
}

// IsZero reports whether the id was never set.
func (e EntityID) IsZero() bool {
	return e.ID == uuid.Nil
}
