// Package repos contains the repository interfaces needed in EventDesk
// It exists to prevent circular dependencies between eventdesk and the repo implementations
package repos

import (
	"fmt"
	"time"

	"github.com/derWhity/eventdesk/internal/models"
)

var (
	// ErrEntityNotExisting is fired by a repository when an entity that is read, updated or
	// deleted does not exist. Tombstoned events count as non-existing for everything but
	// their analytics summary.
	ErrEntityNotExisting = fmt.Errorf("cannot update: Entity does not exist")
	// ErrTicketTypeNotExisting is fired when an inventory adjustment references a ticket
	// type name the event does not carry
	ErrTicketTypeNotExisting = fmt.Errorf("the event has no ticket type with this name")
	// ErrCapacityExceeded is fired when a ticket sale would push the sold count over the
	// ticket type's total quantity
	ErrCapacityExceeded = fmt.Errorf("ticket sale exceeds the remaining capacity")
)

// EntityInvalidError is returned by a repository when a mutation would leave an entity in
// a state that violates one of its invariants. The offending mutation is discarded as a
// whole - no partial write survives.
type EntityInvalidError struct {
	// The invariant violation as reported by the entity
	Reason error
}

func (e *EntityInvalidError) Error() string {
	return e.Reason.Error()
}

// SortField selects the attribute a result listing is ordered by
type SortField string

const (
	// SortByStartTime orders by the events' start times
	SortByStartTime = SortField("start_time")
	// SortByCreatedAt orders by the events' creation times
	SortByCreatedAt = SortField("created_at")
	// SortByViews orders by the events' view counters
	SortByViews = SortField("views")
	// SortByFavorites orders by the events' favorite counts
	SortByFavorites = SortField("favorites")
)

// Valid reports whether the sort field is one of the supported attributes
func (f SortField) Valid() bool {
	switch f {
	case SortByStartTime, SortByCreatedAt, SortByViews, SortByFavorites:
		return true
	}
	return false
}

// SortOrder describes how a result listing is ordered. Ties are always broken by
// event ID so that pagination stays stable when events share a sort key.
type SortOrder struct {
	// The attribute to order by
	Field SortField
	// Sort ascending instead of descending
	Ascending bool
}

// EventFilter describes the predicates of a discovery query. Zero values mean
// "no restriction" for their respective predicate.
type EventFilter struct {
	// Case-insensitive substring match over title and description
	Query string
	// Exact category match (case-insensitive)
	Category string
	// Exact location match (case-insensitive)
	Location string
	// Only events owned by this organizer
	OrganizerID string
	// Only events in this lifecycle status
	Status *models.EventStatus
	// Events carrying at least one of these tags (case-insensitive)
	Tags []string
	// Only events whose [start, end] interval intersects [From, To]
	From *time.Time
	To   *time.Time
	// Also return archived events. Public discovery never sets this; the
	// organizer's own listing does.
	IncludeArchived bool
}

// EventPatch describes a partial update to an event. Nil fields stay untouched.
type EventPatch struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Category    *string             `json:"category"`
	Location    *string             `json:"location"`
	StartsAt    *time.Time          `json:"startsAt"`
	EndsAt      *time.Time          `json:"endsAt"`
	Status      *models.EventStatus `json:"status"`
	Tags        *[]string           `json:"tags"`
	// Replaces the full ticket type set. The new ticket types get fresh IDs and
	// their sold counters start at zero.
	TicketTypes *[]models.TicketType `json:"ticketTypes"`
}

// Empty reports whether the patch would not change anything
func (p *EventPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.Location == nil &&
		p.StartsAt == nil && p.EndsAt == nil && p.Status == nil && p.Tags == nil &&
		p.TicketTypes == nil
}

// EventRepo defines a repository that owns the event store - every read and write of
// event state goes through it. Implementations guarantee that each operation is atomic
// with respect to every other operation on the same event and that listings and
// summaries are computed from a consistent snapshot of the store.
type EventRepo interface {
	// Create inserts a new event, assigning its ID and timestamps
	Create(ev *models.Event) error
	// Update applies a partial change to an existing event and returns the updated state
	Update(id string, patch EventPatch) (*models.Event, error)
	// Delete tombstones an existing event. The event vanishes from all listings and
	// lookups but keeps its analytics history.
	Delete(id string) error
	// GetByID returns a copy of the event with the given ID
	GetByID(id string) (*models.Event, error)
	// RecordView increments the event's view counter and returns the new value.
	// Safe for unbounded concurrent callers.
	RecordView(id string) (uint64, error)
	// Favorite adds the attendee to the event's favorite relation - a no-op if already present
	Favorite(attendeeID, eventID string) error
	// Unfavorite removes the attendee from the event's favorite relation - a no-op if absent
	Unfavorite(attendeeID, eventID string) error
	// AdjustInventory atomically changes the sold counter of one ticket type by delta
	AdjustInventory(eventID, ticketTypeName string, delta int) error
	// Find returns the events matching the filter in the given order - supports pagination.
	// The returned count is the total number of matches regardless of pagination.
	Find(filter EventFilter, sort SortOrder, offset, limit uint) ([]models.Event, uint, error)
	// Summarize computes the analytics summary for one event. Works for tombstoned
	// events as well, to preserve analytics history.
	Summarize(eventID string) (*models.EventSummary, error)
	// SummarizePlatform computes the platform-wide analytics rollup over all live events
	SummarizePlatform() (*models.PlatformSummary, error)
	// Version returns the store's current mutation counter
	Version() uint64
}
