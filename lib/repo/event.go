package repo

import (
	"fmt"

	"github.com/ValentinKolb/edqs/lib/edqs"
	"github.com/google/uuid"
)

type EventType uint8

const (
	EventUpdated EventType = iota + 1
	EventDeleted
)

func (t EventType) String() string {
	switch t {
	case EventUpdated:
		return "UPDATED"
	case EventDeleted:
		return "DELETED"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(t))
	}
}

// Event is a change of one object of a tenant. Deleted events only need the
// identity of the object, values are ignored.
type Event struct {
	TenantID uuid.UUID
	Type     EventType
	Object   edqs.Object
}

func (e Event) String() string {
	return fmt.Sprintf("Event{%s %s %s}", e.Type, e.Object.ObjectType(), e.Object.StorageKey())
}
