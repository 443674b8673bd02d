// Package inmem provides the event repository that holds the full event store in memory.
//
// Locking works inverted to the usual read/write split: mutations that only touch a
// single event's record (favorites, ticket inventory, non-indexed field patches) take
// the structure lock *shared* plus the record's own mutex, so writes to unrelated
// events never serialize against each other. Operations that change the shape of the
// index structures (create, delete, patches on indexed fields) and operations that
// need a point-in-time snapshot of the whole store (discovery, platform analytics)
// take the structure lock *exclusive*. View increments are a plain atomic add under
// the shared lock.
//
// A non-indexed patch replaces the record's whole event struct under the record
// mutex, so shared-lock paths may only read event fields - the tombstone included -
// after taking that mutex as well.
package inmem

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/derWhity/eventdesk/internal/log"
	"github.com/derWhity/eventdesk/internal/models"
	"github.com/derWhity/eventdesk/internal/repos"
)

const defaultLimit = 50

// record is one event's slot in the store
type record struct {
	// Serializes field writes on this event
	mu sync.Mutex
	// The event's current state. Views and Favorites inside this struct are
	// meaningless - the live values are held in the fields below.
	ev models.Event
	// View counter - always accessed atomically
	views uint64
	// The attendee IDs currently favoriting this event
	favorites map[string]struct{}
}

// export returns a consistent copy of the record with the derived counters filled in.
// The caller has to hold the record mutex or the repository's exclusive structure lock.
func (r *record) export() models.Event {
	ev := r.ev.Clone()
	ev.Views = atomic.LoadUint64(&r.views)
	ev.Favorites = uint(len(r.favorites))
	return ev
}

// EventRepo is an event repository that keeps all of its data in memory
type EventRepo struct {
	// The structure lock - see the package documentation for the locking rules
	mu     sync.RWMutex
	events map[string]*record
	// Secondary indexes. The key sets are maintained together with every mutation
	// that changes an indexed field - a reader never observes an event findable
	// under a stale key.
	byOrganizer map[string]map[string]*record
	byCategory  map[string]map[string]*record
	byTag       map[string]map[string]*record
	// All live records ordered by (StartsAt, ID) for time-range queries
	byStart []*record
	// Counts every state-changing operation - accessed atomically
	version uint64
	logger  *logrus.Entry
}

// New creates a new event repository instance
func New(logger *logrus.Entry) *EventRepo {
	return &EventRepo{
		events:      make(map[string]*record),
		byOrganizer: make(map[string]map[string]*record),
		byCategory:  make(map[string]map[string]*record),
		byTag:       make(map[string]map[string]*record),
		logger:      logger,
	}
}

// Version returns the store's current mutation counter
func (r *EventRepo) Version() uint64 {
	return atomic.LoadUint64(&r.version)
}

func (r *EventRepo) bumpVersion() {
	atomic.AddUint64(&r.version, 1)
}

// -- Index maintenance ------------------------------------------------------------------------------------------------
// All of these expect the structure lock to be held exclusively.

func indexKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func addToBucket(idx map[string]map[string]*record, key string, rec *record) {
	if key == "" {
		return
	}
	bucket, ok := idx[key]
	if !ok {
		bucket = make(map[string]*record)
		idx[key] = bucket
	}
	bucket[rec.ev.ID] = rec
}

func removeFromBucket(idx map[string]map[string]*record, key string, id string) {
	if bucket, ok := idx[key]; ok {
		delete(bucket, id)
		if len(bucket) == 0 {
			delete(idx, key)
		}
	}
}

// startSearch returns the position of the record in the byStart slice that has the
// given start time and ID - or the position it would have to be inserted at
func (r *EventRepo) startSearch(startsAt time.Time, id string) int {
	return sort.Search(len(r.byStart), func(i int) bool {
		c := r.byStart[i]
		if c.ev.StartsAt.Equal(startsAt) {
			return c.ev.ID >= id
		}
		return c.ev.StartsAt.After(startsAt)
	})
}

func (r *EventRepo) addToIndexes(rec *record) {
	addToBucket(r.byOrganizer, indexKey(rec.ev.OrganizerID), rec)
	addToBucket(r.byCategory, indexKey(rec.ev.Category), rec)
	for _, tag := range rec.ev.Tags {
		addToBucket(r.byTag, indexKey(tag), rec)
	}
	pos := r.startSearch(rec.ev.StartsAt, rec.ev.ID)
	r.byStart = append(r.byStart, nil)
	copy(r.byStart[pos+1:], r.byStart[pos:])
	r.byStart[pos] = rec
}

func (r *EventRepo) removeFromIndexes(rec *record) {
	removeFromBucket(r.byOrganizer, indexKey(rec.ev.OrganizerID), rec.ev.ID)
	removeFromBucket(r.byCategory, indexKey(rec.ev.Category), rec.ev.ID)
	for _, tag := range rec.ev.Tags {
		removeFromBucket(r.byTag, indexKey(tag), rec.ev.ID)
	}
	pos := r.startSearch(rec.ev.StartsAt, rec.ev.ID)
	if pos < len(r.byStart) && r.byStart[pos] == rec {
		r.byStart = append(r.byStart[:pos], r.byStart[pos+1:]...)
	}
}

// -- Mutations --------------------------------------------------------------------------------------------------------

// Create inserts a new event, assigning its ID and timestamps
func (r *EventRepo) Create(ev *models.Event) error {
	if ev.Status == "" {
		ev.Status = models.StatusDraft
	}
	ev.ID = uuid.NewString()
	for i := range ev.TicketTypes {
		ev.TicketTypes[i].ID = uuid.NewString()
		// Nobody can have bought tickets for an event that did not exist yet
		ev.TicketTypes[i].QuantitySold = 0
	}
	ev.Views = 0
	ev.Favorites = 0
	ev.DeletedAt = nil
	if err := ev.Validate(); err != nil {
		return &repos.EntityInvalidError{Reason: err}
	}
	now := time.Now()
	ev.CreatedAt = now
	ev.UpdatedAt = now

	r.logger.WithField(log.FldEvent, ev.ID).Debug("Adding new event")
	rec := &record{
		ev:        ev.Clone(),
		favorites: make(map[string]struct{}),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[ev.ID] = rec
	r.addToIndexes(rec)
	r.bumpVersion()
	return nil
}

// touchesIndexes reports whether applying the patch can change an indexed attribute
func touchesIndexes(patch repos.EventPatch) bool {
	return patch.Category != nil || patch.Tags != nil || patch.StartsAt != nil
}

// applyPatch merges the patch into a copy of the record's event and validates the
// result. The record mutex has to be held. The record itself stays untouched.
func applyPatch(rec *record, patch repos.EventPatch) (models.Event, error) {
	updated := rec.ev.Clone()
	if patch.Title != nil {
		updated.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Category != nil {
		updated.Category = *patch.Category
	}
	if patch.Location != nil {
		updated.Location = *patch.Location
	}
	if patch.StartsAt != nil {
		updated.StartsAt = *patch.StartsAt
	}
	if patch.EndsAt != nil {
		updated.EndsAt = *patch.EndsAt
	}
	if patch.Status != nil {
		updated.Status = *patch.Status
	}
	if patch.Tags != nil {
		tags := make([]string, len(*patch.Tags))
		copy(tags, *patch.Tags)
		updated.Tags = tags
	}
	if patch.TicketTypes != nil {
		tts := make([]models.TicketType, len(*patch.TicketTypes))
		copy(tts, *patch.TicketTypes)
		for i := range tts {
			tts[i].ID = uuid.NewString()
			tts[i].QuantitySold = 0
		}
		updated.TicketTypes = tts
	}
	if err := updated.Validate(); err != nil {
		return models.Event{}, &repos.EntityInvalidError{Reason: err}
	}
	updated.UpdatedAt = time.Now()
	return updated, nil
}

// Update applies a partial change to an existing event and returns the updated state
func (r *EventRepo) Update(id string, patch repos.EventPatch) (*models.Event, error) {
	r.logger.WithField(log.FldEvent, id).Debug("Updating event")
	if touchesIndexes(patch) {
		// The patch can move the event between index buckets - this needs the
		// structure lock exclusively so no reader sees the event under a stale key
		r.mu.Lock()
		defer r.mu.Unlock()
		rec, ok := r.events[id]
		if !ok || rec.ev.Deleted() {
			return nil, repos.ErrEntityNotExisting
		}
		updated, err := applyPatch(rec, patch)
		if err != nil {
			return nil, err
		}
		r.removeFromIndexes(rec)
		rec.ev = updated
		r.addToIndexes(rec)
		r.bumpVersion()
		ret := rec.export()
		return &ret, nil
	}
	// No indexed attribute involved - the record mutex is enough and unrelated
	// events stay writable in parallel
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.events[id]
	if !ok {
		return nil, repos.ErrEntityNotExisting
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.ev.Deleted() {
		return nil, repos.ErrEntityNotExisting
	}
	updated, err := applyPatch(rec, patch)
	if err != nil {
		return nil, err
	}
	rec.ev = updated
	r.bumpVersion()
	ret := rec.export()
	return &ret, nil
}

// Delete tombstones an existing event and removes every index entry referencing it.
// The record itself stays in the store so analytics history survives.
func (r *EventRepo) Delete(id string) error {
	r.logger.WithField(log.FldEvent, id).Debug("Deleting event")
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.events[id]
	if !ok || rec.ev.Deleted() {
		return repos.ErrEntityNotExisting
	}
	now := time.Now()
	rec.ev.DeletedAt = &now
	rec.ev.UpdatedAt = now
	r.removeFromIndexes(rec)
	r.bumpVersion()
	return nil
}

// GetByID returns a copy of the event with the given ID
func (r *EventRepo) GetByID(id string) (*models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.events[id]
	if !ok {
		return nil, repos.ErrEntityNotExisting
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.ev.Deleted() {
		return nil, repos.ErrEntityNotExisting
	}
	ret := rec.export()
	return &ret, nil
}

// RecordView increments the event's view counter and returns the new value. This is
// the highest-frequency mutation, so the counter bump is a single atomic add - the
// record mutex is only held for the tombstone check.
func (r *EventRepo) RecordView(id string) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.events[id]
	if !ok {
		return 0, repos.ErrEntityNotExisting
	}
	rec.mu.Lock()
	deleted := rec.ev.Deleted()
	rec.mu.Unlock()
	if deleted {
		return 0, repos.ErrEntityNotExisting
	}
	views := atomic.AddUint64(&rec.views, 1)
	r.bumpVersion()
	return views, nil
}

// Favorite adds the attendee to the event's favorite relation - a no-op if already present
func (r *EventRepo) Favorite(attendeeID, eventID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.events[eventID]
	if !ok {
		return repos.ErrEntityNotExisting
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.ev.Deleted() {
		return repos.ErrEntityNotExisting
	}
	if _, ok := rec.favorites[attendeeID]; !ok {
		rec.favorites[attendeeID] = struct{}{}
		r.bumpVersion()
	}
	return nil
}

// Unfavorite removes the attendee from the event's favorite relation - a no-op if absent
func (r *EventRepo) Unfavorite(attendeeID, eventID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.events[eventID]
	if !ok {
		return repos.ErrEntityNotExisting
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.ev.Deleted() {
		return repos.ErrEntityNotExisting
	}
	if _, ok := rec.favorites[attendeeID]; ok {
		delete(rec.favorites, attendeeID)
		r.bumpVersion()
	}
	return nil
}

// AdjustInventory atomically changes the sold counter of one ticket type by delta.
// The check against the remaining capacity and the counter update happen under the
// same lock, so overselling is impossible no matter how many callers race.
func (r *EventRepo) AdjustInventory(eventID, ticketTypeName string, delta int) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.events[eventID]
	if !ok {
		return repos.ErrEntityNotExisting
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.ev.Deleted() {
		return repos.ErrEntityNotExisting
	}
	name := indexKey(ticketTypeName)
	for i := range rec.ev.TicketTypes {
		tt := &rec.ev.TicketTypes[i]
		if indexKey(tt.Name) != name {
			continue
		}
		newSold := int(tt.QuantitySold) + delta
		if newSold < 0 {
			return &repos.EntityInvalidError{
				Reason: fmt.Errorf("ticket type '%s': sold quantity cannot go below zero", tt.Name),
			}
		}
		if uint(newSold) > tt.QuantityTotal {
			return repos.ErrCapacityExceeded
		}
		tt.QuantitySold = uint(newSold)
		rec.ev.UpdatedAt = time.Now()
		r.bumpVersion()
		return nil
	}
	return repos.ErrTicketTypeNotExisting
}

// -- Queries ----------------------------------------------------------------------------------------------------------

// matches checks all filter predicates against a single record. Expects the
// structure lock to be held exclusively.
func matches(rec *record, filter repos.EventFilter) bool {
	ev := &rec.ev
	if ev.Deleted() {
		return false
	}
	if !filter.IncludeArchived && ev.Status == models.StatusArchived {
		return false
	}
	if filter.Status != nil && ev.Status != *filter.Status {
		return false
	}
	if filter.OrganizerID != "" && indexKey(ev.OrganizerID) != indexKey(filter.OrganizerID) {
		return false
	}
	if filter.Category != "" && indexKey(ev.Category) != indexKey(filter.Category) {
		return false
	}
	if filter.Location != "" && indexKey(ev.Location) != indexKey(filter.Location) {
		return false
	}
	if filter.Query != "" {
		q := strings.ToLower(filter.Query)
		if !strings.Contains(strings.ToLower(ev.Title), q) &&
			!strings.Contains(strings.ToLower(ev.Description), q) {
			return false
		}
	}
	if len(filter.Tags) > 0 {
		// OR semantics - one common tag is enough
		found := false
	tagSearch:
		for _, want := range filter.Tags {
			for _, have := range ev.Tags {
				if indexKey(want) == indexKey(have) {
					found = true
					break tagSearch
				}
			}
		}
		if !found {
			return false
		}
	}
	if filter.From != nil && ev.EndsAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && ev.StartsAt.After(*filter.To) {
		return false
	}
	return true
}

// candidates narrows the scan down using the most selective applicable index.
// Expects the structure lock to be held exclusively.
func (r *EventRepo) candidates(filter repos.EventFilter) []*record {
	if filter.OrganizerID != "" {
		return bucketRecords(r.byOrganizer[indexKey(filter.OrganizerID)])
	}
	if filter.Category != "" {
		return bucketRecords(r.byCategory[indexKey(filter.Category)])
	}
	if len(filter.Tags) > 0 {
		seen := map[string]*record{}
		for _, tag := range filter.Tags {
			for id, rec := range r.byTag[indexKey(tag)] {
				seen[id] = rec
			}
		}
		ret := make([]*record, 0, len(seen))
		for _, rec := range seen {
			ret = append(ret, rec)
		}
		return ret
	}
	if filter.To != nil {
		// byStart is ordered, so everything starting after To can be cut off
		end := sort.Search(len(r.byStart), func(i int) bool {
			return r.byStart[i].ev.StartsAt.After(*filter.To)
		})
		ret := make([]*record, end)
		copy(ret, r.byStart[:end])
		return ret
	}
	ret := make([]*record, 0, len(r.events))
	for _, rec := range r.events {
		ret = append(ret, rec)
	}
	return ret
}

func bucketRecords(bucket map[string]*record) []*record {
	ret := make([]*record, 0, len(bucket))
	for _, rec := range bucket {
		ret = append(ret, rec)
	}
	return ret
}

// compareEvents orders two event copies according to the sort order, falling back
// to the event ID so pagination stays stable for equal sort keys
func compareEvents(a, b *models.Event, order repos.SortOrder) bool {
	var c int
	switch order.Field {
	case repos.SortByCreatedAt:
		c = compareTimes(a.CreatedAt, b.CreatedAt)
	case repos.SortByViews:
		c = compareUint64(a.Views, b.Views)
	case repos.SortByFavorites:
		c = compareUint64(uint64(a.Favorites), uint64(b.Favorites))
	default:
		c = compareTimes(a.StartsAt, b.StartsAt)
	}
	if c == 0 {
		return a.ID < b.ID
	}
	if order.Ascending {
		return c < 0
	}
	return c > 0
}

func compareTimes(a, b time.Time) int {
	if a.Before(b) {
		return -1
	}
	if a.After(b) {
		return 1
	}
	return 0
}

func compareUint64(a, b uint64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Find returns the events matching the filter in the given order - supports pagination.
// The matching set is copied out under the exclusive structure lock, so the result is a
// consistent snapshot: the total count and the page contents always belong to the same
// logical instant, no matter what mutates concurrently.
func (r *EventRepo) Find(filter repos.EventFilter, order repos.SortOrder, offset, limit uint) ([]models.Event, uint, error) {
	if limit == 0 {
		limit = defaultLimit
	}
	r.logger.WithFields(logrus.Fields{
		log.FldSearch:   filter.Query,
		log.FldCategory: filter.Category,
	}).Debug("Searching for events")

	r.mu.Lock()
	found := []models.Event{}
	for _, rec := range r.candidates(filter) {
		if matches(rec, filter) {
			found = append(found, rec.export())
		}
	}
	r.mu.Unlock()

	// Sorting and slicing work on the copies - no lock needed any more
	sort.Slice(found, func(i, j int) bool {
		return compareEvents(&found[i], &found[j], order)
	})
	total := uint(len(found))
	if offset >= total {
		return []models.Event{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return found[offset:end], total, nil
}

// Summarize computes the analytics summary for one event. Tombstoned events keep
// answering here so organizers do not lose the history of past events.
func (r *EventRepo) Summarize(eventID string) (*models.EventSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.events[eventID]
	if !ok {
		return nil, repos.ErrEntityNotExisting
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	ret := summarize(rec)
	ret.Version = atomic.LoadUint64(&r.version)
	return &ret, nil
}

// summarize derives the analytics numbers from a single record. The caller has to
// hold the record mutex or the exclusive structure lock.
func summarize(rec *record) models.EventSummary {
	ret := models.EventSummary{
		EventID:        rec.ev.ID,
		OrganizerID:    rec.ev.OrganizerID,
		TotalViews:     atomic.LoadUint64(&rec.views),
		TotalFavorites: uint(len(rec.favorites)),
	}
	for i := range rec.ev.TicketTypes {
		tt := &rec.ev.TicketTypes[i]
		ret.TotalCapacity += tt.QuantityTotal
		ret.TotalSold += tt.QuantitySold
		ret.TotalAvailable += tt.Available()
		ret.Revenue += tt.Revenue()
	}
	return ret
}

// SummarizePlatform computes the platform-wide rollup over all live events. One pass
// under the exclusive structure lock makes the breakdowns and the grand totals stem
// from the same instant - summed sub-totals always equal the totals.
func (r *EventRepo) SummarizePlatform() (*models.PlatformSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := &models.PlatformSummary{
		ByStatus:    make(map[models.EventStatus]uint),
		ByCategory:  make(map[string]uint),
		ByOrganizer: make(map[string]uint),
		Version:     atomic.LoadUint64(&r.version),
	}
	for _, rec := range r.events {
		if rec.ev.Deleted() {
			continue
		}
		sum := summarize(rec)
		ret.TotalEvents++
		ret.ByStatus[rec.ev.Status]++
		ret.ByCategory[rec.ev.Category]++
		ret.ByOrganizer[rec.ev.OrganizerID]++
		ret.TotalViews += sum.TotalViews
		ret.TotalFavorites += sum.TotalFavorites
		ret.TotalSold += sum.TotalSold
		ret.TotalRevenue += sum.Revenue
	}
	ret.TopCategories = topCategories(ret.ByCategory, 5)
	return ret, nil
}

// topCategories returns the n biggest categories, largest first, name as tie-break
func topCategories(byCategory map[string]uint, n int) []models.CategoryCount {
	ret := make([]models.CategoryCount, 0, len(byCategory))
	for cat, count := range byCategory {
		ret = append(ret, models.CategoryCount{Category: cat, Count: count})
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Count == ret[j].Count {
			return ret[i].Category < ret[j].Category
		}
		return ret[i].Count > ret[j].Count
	})
	if len(ret) > n {
		ret = ret[:n]
	}
	return ret
}
