package edqs

import (
	"strconv"

	"github.com/google/uuid"
)

// Well known entity field names.
const (
	FieldID             = "id"
	FieldCreatedTime    = "createdTime"
	FieldName           = "name"
	FieldType           = "type"
	FieldLabel          = "label"
	FieldTitle          = "title"
	FieldCustomerID     = "customerId"
	FieldTenantID       = "tenantId"
	FieldVersion        = "version"
	FieldAdditionalInfo = "additionalInfo"
	FieldEmail          = "email"
	FieldPhone          = "phone"
	FieldFirstName      = "firstName"
	FieldLastName       = "lastName"
	FieldCountry        = "country"
	FieldState          = "state"
	FieldCity           = "city"
	FieldAddress        = "address"
	FieldAddress2       = "address2"
	FieldZip            = "zip"
	FieldRegion         = "region"
	FieldAuthority      = "authority"
	FieldProfileID      = "profileId"
	FieldIsDefault      = "default"
	FieldEntityID       = "entityId"
	FieldPublic         = "public"
)

// Fields is the schema-less field bag of an Entity. Values are always one
// of string, int64, float64 or bool.
type Fields map[string]any

// GetString returns the field as a string. Numbers and bools are formatted.
func (f Fields) GetString(name string) (string, bool) {
	switch v := f[name].(type) {
	case string:
		return v, true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// GetInt64 returns an integral field. Float values are truncated.
func (f Fields) GetInt64(name string) (int64, bool) {
	switch v := f[name].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// UUID parses a field holding a uuid. uuid.Nil is returned for missing or invalid values.
func (f Fields) UUID(name string) uuid.UUID {
	s, ok := f[name].(string)
	if !ok || s == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// CreatedTime returns the creation timestamp in milliseconds.
func (f Fields) CreatedTime() int64 {
	v, _ := f.GetInt64(FieldCreatedTime)
	return v
}

// DataPoint converts a field into a data point. The boolean is false if the
// field is absent.
func (f Fields) DataPoint(name string) (DataPoint, bool) {
	switch v := f[name].(type) {
	case string:
		return NewStringDataPoint(0, v), true
	case int64:
		return NewLongDataPoint(0, v), true
	case float64:
		return NewDoubleDataPoint(0, v), true
	case bool:
		return NewBoolDataPoint(0, v), true
	default:
		return DataPoint{}, false
	}
}

// --------------------------------------------------------------------------
// Domain Types
// --------------------------------------------------------------------------

// FieldSource is a strongly typed domain object that can be flattened
// into the generic entity representation.
type FieldSource interface {
	EntityID() EntityID
	ToFields() Fields
}

// NewEntity builds the generic entity for a domain object.
func NewEntity(src FieldSource) *Entity {
	id := src.EntityID()
	return &Entity{EntityType: id.Type, ID: id.ID, Fields: src.ToFields()}
}

func putUUID(f Fields, name string, id uuid.UUID) {
	if id != uuid.Nil {
		f[name] = id.String()
	}
}

func putString(f Fields, name, v string) {
	if v != "" {
		f[name] = v
	}
}

type Device struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	CustomerID      uuid.UUID
	CreatedTime     int64
	Name            string
	Type            string
	Label           string
	DeviceProfileID uuid.UUID
	AdditionalInfo  string
	Version         int64
}

func (d Device) EntityID() EntityID { return NewEntityID(EntityTypeDevice, d.ID) }

func (d Device) ToFields() Fields {
	f := Fields{FieldCreatedTime: d.CreatedTime, FieldName: d.Name, FieldType: d.Type, FieldVersion: d.Version}
	putString(f, FieldLabel, d.Label)
	putString(f, FieldAdditionalInfo, d.AdditionalInfo)
	putUUID(f, FieldTenantID, d.TenantID)
	putUUID(f, FieldCustomerID, d.CustomerID)
	putUUID(f, FieldProfileID, d.DeviceProfileID)
	return f
}

type Asset struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	CustomerID     uuid.UUID
	CreatedTime    int64
	Name           string
	Type           string
	Label          string
	AssetProfileID uuid.UUID
	AdditionalInfo string
	Version        int64
}

func (a Asset) EntityID() EntityID { return NewEntityID(EntityTypeAsset, a.ID) }

func (a Asset) ToFields() Fields {
	f := Fields{FieldCreatedTime: a.CreatedTime, FieldName: a.Name, FieldType: a.Type, FieldVersion: a.Version}
	putString(f, FieldLabel, a.Label)
	putString(f, FieldAdditionalInfo, a.AdditionalInfo)
	putUUID(f, FieldTenantID, a.TenantID)
	putUUID(f, FieldCustomerID, a.CustomerID)
	putUUID(f, FieldProfileID, a.AssetProfileID)
	return f
}

// EntityView references the entity it exposes through FieldEntityID.
type EntityView struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	CreatedTime int64
	Name        string
	Type        string
	EntityRef   EntityID
	Version     int64
}

func (v EntityView) EntityID() EntityID { return NewEntityID(EntityTypeEntityView, v.ID) }

func (v EntityView) ToFields() Fields {
	f := Fields{FieldCreatedTime: v.CreatedTime, FieldName: v.Name, FieldType: v.Type, FieldVersion: v.Version}
	putUUID(f, FieldCustomerID, v.CustomerID)
	if !v.EntityRef.IsZero() {
		f[FieldEntityID] = v.EntityRef.String()
	}
	return f
}

type Edge struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	CreatedTime int64
	Name        string
	Type        string
	Label       string
	Version     int64
}

func (e Edge) EntityID() EntityID { return NewEntityID(EntityTypeEdge, e.ID) }

func (e Edge) ToFields() Fields {
	f := Fields{FieldCreatedTime: e.CreatedTime, FieldName: e.Name, FieldType: e.Type, FieldVersion: e.Version}
	putString(f, FieldLabel, e.Label)
	putUUID(f, FieldCustomerID, e.CustomerID)
	return f
}

type Dashboard struct {
	ID          uuid.UUID
	CreatedTime int64
	Title       string
	Version     int64
}

func (d Dashboard) EntityID() EntityID { return NewEntityID(EntityTypeDashboard, d.ID) }

func (d Dashboard) ToFields() Fields {
	return Fields{FieldCreatedTime: d.CreatedTime, FieldName: d.Title, FieldTitle: d.Title, FieldVersion: d.Version}
}

// Contact holds the address block shared by customers and tenants.
type Contact struct {
	Country  string
	State    string
	City     string
	Address  string
	Address2 string
	Zip      string
	Phone    string
	Email    string
}

func (c Contact) putInto(f Fields) {
	putString(f, FieldCountry, c.Country)
	putString(f, FieldState, c.State)
	putString(f, FieldCity, c.City)
	putString(f, FieldAddress, c.Address)
	putString(f, FieldAddress2, c.Address2)
	putString(f, FieldZip, c.Zip)
	putString(f, FieldPhone, c.Phone)
	putString(f, FieldEmail, c.Email)
}

type Customer struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	CreatedTime int64
	Title       string
	Contact     Contact
	Version     int64
}

func (c Customer) EntityID() EntityID { return NewEntityID(EntityTypeCustomer, c.ID) }

func (c Customer) ToFields() Fields {
	f := Fields{FieldCreatedTime: c.CreatedTime, FieldName: c.Title, FieldTitle: c.Title, FieldVersion: c.Version}
	putUUID(f, FieldTenantID, c.TenantID)
	c.Contact.putInto(f)
	return f
}

type Tenant struct {
	ID          uuid.UUID
	CreatedTime int64
	Title       string
	Region      string
	Contact     Contact
	Version     int64
}

func (t Tenant) EntityID() EntityID { return NewEntityID(EntityTypeTenant, t.ID) }

func (t Tenant) ToFields() Fields {
	f := Fields{FieldCreatedTime: t.CreatedTime, FieldName: t.Title, FieldTitle: t.Title, FieldVersion: t.Version}
	putString(f, FieldRegion, t.Region)
	t.Contact.putInto(f)
	return f
}

type User struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	CreatedTime int64
	Email       string
	FirstName   string
	LastName    string
	Authority   string
	Phone       string
	Version     int64
}

func (u User) EntityID() EntityID { return NewEntityID(EntityTypeUser, u.ID) }

func (u User) ToFields() Fields {
	f := Fields{FieldCreatedTime: u.CreatedTime, FieldName: u.Email, FieldEmail: u.Email, FieldVersion: u.Version}
	putString(f, FieldFirstName, u.FirstName)
	putString(f, FieldLastName, u.LastName)
	putString(f, FieldAuthority, u.Authority)
	putString(f, FieldPhone, u.Phone)
	putUUID(f, FieldCustomerID, u.CustomerID)
	return f
}

// EntityProfile covers device and asset profiles.
type EntityProfile struct {
	Type        EntityType
	ID          uuid.UUID
	CreatedTime int64
	Name        string
	Default     bool
	Version     int64
}

func (p EntityProfile) EntityID() EntityID { return NewEntityID(p.Type, p.ID) }

func (p EntityProfile) ToFields() Fields {
	return Fields{FieldCreatedTime: p.CreatedTime, FieldName: p.Name, FieldIsDefault: p.Default, FieldVersion: p.Version}
}

// NamedEntity is used for the remaining categories that only carry a name
// (rule chains, widgets, queues, tenant profiles, api usage states).
type NamedEntity struct {
	Type        EntityType
	ID          uuid.UUID
	CustomerID  uuid.UUID
	CreatedTime int64
	Name        string
	Version     int64
}

func (n NamedEntity) EntityID() EntityID { return NewEntityID(n.Type, n.ID) }

func (n NamedEntity) ToFields() Fields {
	f := Fields{FieldCreatedTime: n.CreatedTime, FieldName: n.Name, FieldVersion: n.Version}
	putUUID(f, FieldCustomerID, n.CustomerID)
	return f
}
