package internal

import (
	"time"

	"github.com/derWhity/eventdesk/internal/models"
)

// -- Request data -----------------------------------------------------------------------------------------------------

// Pagination describes a request that uses page-numbered paging to retrieve only a
// subset of the full result. Pages are counted from 1.
type Pagination struct {
	// The page to return
	Page int
	// Number of items per page - 0 means "use the configured default"
	PageSize int
}

// EventSearch describes a discovery request with its filter predicates, sorting and
// pagination information - still in the raw form the transport delivers it in.
// Validation happens in the discovery service.
type EventSearch struct {
	Pagination
	// Free-text query over title and description
	Query string
	// Exact category match
	Category string
	// Exact location match
	Location string
	// Lifecycle status filter
	Status string
	// Match events carrying at least one of these tags
	Tags []string
	// Only events whose time window intersects [From, To]
	From *time.Time
	To   *time.Time
	// The attribute to sort by - start_time, created_at, views or favorites
	SortBy string
	// Sort direction - "asc" or "desc"
	SortDir string
}

// OrganizerListing describes a request for the management listing of one organizer's events
type OrganizerListing struct {
	Pagination
	// The organizer whose events are requested
	OrganizerID string
	// Optional lifecycle status filter
	Status string
}

// EventPage is one page of a paginated event listing
type EventPage struct {
	// Total number of events matching the filters - independent of pagination
	Total uint `json:"total"`
	// The returned page
	Page int `json:"page"`
	// The page size used
	PageSize int `json:"pageSize"`
	// The events on this page
	Items []models.Event `json:"items"`
}
