package models

// EventSummary is the per-event analytics snapshot. It is computed on demand
// from the store and never persisted.
type EventSummary struct {
	// The event the summary belongs to
	EventID string `json:"eventId"`
	// The organizer owning the event - analytics access is scoped to them
	OrganizerID string `json:"organizerId"`
	// Total number of detail views
	TotalViews uint64 `json:"totalViews"`
	// Number of attendees currently favoriting the event
	TotalFavorites uint `json:"totalFavorites"`
	// Sum of the total quantities over all ticket types
	TotalCapacity uint `json:"totalCapacity"`
	// Sum of the sold quantities over all ticket types
	TotalSold uint `json:"totalSold"`
	// Remaining sellable capacity
	TotalAvailable uint `json:"totalAvailable"`
	// Revenue estimate - sum of price times sold quantity over all ticket types
	Revenue float64 `json:"revenue"`
	// Store version the summary was computed at
	Version uint64 `json:"version"`
}

// CategoryCount is one entry of a per-category rollup
type CategoryCount struct {
	Category string `json:"category"`
	Count    uint   `json:"count"`
}

// PlatformSummary is the platform-wide analytics snapshot aggregated over all
// live (non-deleted) events. All numbers stem from one consistent snapshot, so
// the by-* breakdowns always sum up to the totals.
type PlatformSummary struct {
	// Number of live events
	TotalEvents uint `json:"totalEvents"`
	// Event counts per lifecycle status
	ByStatus map[EventStatus]uint `json:"byStatus"`
	// Event counts per category
	ByCategory map[string]uint `json:"byCategory"`
	// Event counts per organizer
	ByOrganizer map[string]uint `json:"byOrganizer"`
	// The five biggest categories, largest first
	TopCategories []CategoryCount `json:"topCategories"`
	// Total detail views over all live events
	TotalViews uint64 `json:"totalViews"`
	// Total favorite relations over all live events
	TotalFavorites uint `json:"totalFavorites"`
	// Total tickets sold over all live events
	TotalSold uint `json:"totalSold"`
	// Total revenue estimate over all live events
	TotalRevenue float64 `json:"totalRevenue"`
	// Store version the summary was computed at
	Version uint64 `json:"version"`
}
