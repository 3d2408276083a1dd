package access

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind is the type of resource being accessed.
type Kind string

const (
	KindOrganizer Kind = "organizer"
	KindVenue     Kind = "venue"
	KindEvent     Kind = "event"
)

// Resource identifies the target of an access check.
type Resource struct {
	Kind Kind
	ID   uuid.UUID
}

// Organizer returns an organizer resource.
func Organizer(id uuid.UUID) Resource { return Resource{Kind: KindOrganizer, ID: id} }

// Venue returns a venue resource.
func Venue(id uuid.UUID) Resource { return Resource{Kind: KindVenue, ID: id} }

// Event returns an event resource.
func Event(id uuid.UUID) Resource { return Resource{Kind: KindEvent, ID: id} }

func (r Resource) String() string { return fmt.Sprintf("%s:%s", r.Kind, r.ID) }
