package query

import (
	"fmt"

	"github.com/ValentinKolb/edqs/lib/edqs"
)

// ResolveEntityType returns the entity type an entity filter selects.
// Relations queries resolve to the type of their root entity, or to the
// declared type of the roots when they have several.
func ResolveEntityType(f EntityFilter) edqs.EntityType {
	switch v := f.(type) {
	case *SingleEntityFilter:
		return v.SingleEntity.Type
	case *EntityListFilter:
		return v.EntityType
	case *EntityNameFilter:
		return v.EntityType
	case *EntityTypeFilter:
		return v.EntityType
	case *AssetTypeFilter, *AssetSearchQueryFilter:
		return edqs.EntityTypeAsset
	case *DeviceTypeFilter, *DeviceSearchQueryFilter:
		return edqs.EntityTypeDevice
	case *EntityViewTypeFilter, *EntityViewSearchQueryFilter:
		return edqs.EntityTypeEntityView
	case *EdgeTypeFilter, *EdgeSearchQueryFilter:
		return edqs.EntityTypeEdge
	case *RelationsQueryFilter:
		if v.MultiRoot {
			return v.MultiRootEntitiesType
		}
		return v.RootEntity.Type
	case *APIUsageStateFilter:
		return edqs.EntityTypeAPIUsageState
	default:
		panic(fmt.Sprintf("query: unsupported entity filter %T", f))
	}
}

// CustomerUserIsTryingToAccessTenantEntity reports whether a customer user
// asks for an entity category that only exists on tenant or system level.
// Only filters that name the entity type directly are considered, tenant
// users are never refused.
func CustomerUserIsTryingToAccessTenantEntity(ctx QueryContext, f EntityFilter) bool {
	if ctx.IsTenantUser() {
		return false
	}
	switch v := f.(type) {
	case *SingleEntityFilter:
		return isSystemOrTenantEntity(v.SingleEntity.Type)
	case *EntityListFilter:
		return isSystemOrTenantEntity(v.EntityType)
	case *EntityNameFilter:
		return isSystemOrTenantEntity(v.EntityType)
	case *EntityTypeFilter:
		return isSystemOrTenantEntity(v.EntityType)
	default:
		return false
	}
}

func isSystemOrTenantEntity(t edqs.EntityType) bool {
	switch t {
	case edqs.EntityTypeDeviceProfile, edqs.EntityTypeAssetProfile, edqs.EntityTypeRuleChain,
		edqs.EntityTypeTenant, edqs.EntityTypeTenantProfile, edqs.EntityTypeWidgetType,
		edqs.EntityTypeWidgetsBundle:
		return true
	default:
		return false
	}
}
