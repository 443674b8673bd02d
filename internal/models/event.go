package models

import (
	"fmt"
	"strings"
	"time"
)

// EventStatus describes where an event stands in its lifecycle
type EventStatus string

const (
	// StatusDraft marks an event that is still being prepared by its organizer
	StatusDraft = EventStatus("draft")
	// StatusPublished marks an event that is publicly announced
	StatusPublished = EventStatus("published")
	// StatusCanceled marks an event that has been called off but stays visible
	StatusCanceled = EventStatus("canceled")
	// StatusArchived marks an event that is hidden from public discovery
	StatusArchived = EventStatus("archived")
)

// Valid reports whether the status is one of the known lifecycle values
func (s EventStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusCanceled, StatusArchived:
		return true
	}
	return false
}

// TicketType is a priced inventory line item that belongs to exactly one event
type TicketType struct {
	// Internal ID - assigned by the repository on creation
	ID string `json:"id"`
	// Name of the ticket type - unique within its event since inventory
	// adjustments address ticket types by name
	Name string `json:"name"`
	// Price of a single ticket
	Price float64 `json:"price"`
	// ISO currency code, e.g. "USD"
	Currency string `json:"currency"`
	// Total number of tickets that can be sold
	QuantityTotal uint `json:"quantityTotal"`
	// Number of tickets sold so far - never exceeds QuantityTotal
	QuantitySold uint `json:"quantitySold"`
}

// Available returns the number of tickets that can still be sold
func (t *TicketType) Available() uint {
	if t.QuantitySold >= t.QuantityTotal {
		return 0
	}
	return t.QuantityTotal - t.QuantitySold
}

// Revenue returns the revenue estimate for this ticket type
func (t *TicketType) Revenue() float64 {
	return t.Price * float64(t.QuantitySold)
}

// Validate checks the local invariants of the ticket type
func (t *TicketType) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("ticket type needs a name")
	}
	if t.Price < 0 {
		return fmt.Errorf("ticket type '%s': price must not be negative", t.Name)
	}
	if t.QuantitySold > t.QuantityTotal {
		return fmt.Errorf("ticket type '%s': cannot have sold more tickets than the total quantity", t.Name)
	}
	return nil
}

// Event describes a schedulable activity owned by an organizer and discoverable by attendees
type Event struct {
	// Internal ID - assigned by the repository on creation and immutable afterwards
	ID string `json:"id"`
	// ID of the organizer owning this event
	OrganizerID string `json:"organizerId"`
	// Title of the event
	Title string `json:"title"`
	// A little description of the event
	Description string `json:"description,omitempty"`
	// The category the event is filed under
	Category string `json:"category"`
	// City or venue the event takes place at
	Location string `json:"location"`
	// When does/did the event start?
	StartsAt time.Time `json:"startsAt"`
	// When does/did the event end?
	EndsAt time.Time `json:"endsAt"`
	// Current lifecycle status
	Status EventStatus `json:"status"`
	// Searchable tags in the order the organizer entered them
	Tags []string `json:"tags"`
	// The ticket types sold for this event
	TicketTypes []TicketType `json:"ticketTypes"`
	// Number of times the event's details have been viewed
	Views uint64 `json:"views"`
	// Number of attendees that favorited the event - derived from the
	// favorite relation on every read, never stored
	Favorites uint `json:"favorites"`
	// Creation date of this entry
	CreatedAt time.Time `json:"createdAt"`
	// Date of the last update of this entry
	UpdatedAt time.Time `json:"updatedAt"`
	// Tombstone - set when the event has been deleted. Tombstoned events
	// stay around for analytics history but are invisible everywhere else
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Validate checks the local invariants of the event and its ticket types
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("event title missing")
	}
	if strings.TrimSpace(e.OrganizerID) == "" {
		return fmt.Errorf("organizer ID missing")
	}
	if !e.Status.Valid() {
		return fmt.Errorf("'%s' is no valid event status", e.Status)
	}
	if !e.EndsAt.After(e.StartsAt) {
		return fmt.Errorf("the event has to end after it starts")
	}
	seen := map[string]bool{}
	for i := range e.TicketTypes {
		if err := e.TicketTypes[i].Validate(); err != nil {
			return err
		}
		name := strings.ToLower(strings.TrimSpace(e.TicketTypes[i].Name))
		if seen[name] {
			return fmt.Errorf("duplicate ticket type name '%s'", e.TicketTypes[i].Name)
		}
		seen[name] = true
	}
	return nil
}

// Deleted reports whether the event has been tombstoned
func (e *Event) Deleted() bool {
	return e.DeletedAt != nil
}

// Clone returns a deep copy of the event that shares no mutable state with the original
func (e *Event) Clone() Event {
	ret := *e
	if e.Tags != nil {
		ret.Tags = make([]string, len(e.Tags))
		copy(ret.Tags, e.Tags)
	}
	if e.TicketTypes != nil {
		ret.TicketTypes = make([]TicketType, len(e.TicketTypes))
		copy(ret.TicketTypes, e.TicketTypes)
	}
	if e.DeletedAt != nil {
		t := *e.DeletedAt
		ret.DeletedAt = &t
	}
	return ret
}
