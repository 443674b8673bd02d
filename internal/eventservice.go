package internal

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/derWhity/eventdesk/internal/ctxhelper"
	"github.com/derWhity/eventdesk/internal/log"
	"github.com/derWhity/eventdesk/internal/models"
	"github.com/derWhity/eventdesk/internal/repos"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// EventService provides the mutation-side service functions for working with events
type EventService interface {
	// Create creates a new event owned by the calling organizer
	Create(ctx context.Context, draft *models.Event) (*models.Event, error)
	// Get returns a single event, bumping its view counter unless the caller opts out
	Get(ctx context.Context, id string, incrementView bool) (*models.Event, error)
	// Update applies a partial change to an event of the calling organizer
	Update(ctx context.Context, id string, patch repos.EventPatch) (*models.Event, error)
	// Delete tombstones an event of the calling organizer
	Delete(ctx context.Context, id string) error
	// RecordView increments an event's view counter and returns the new value
	RecordView(ctx context.Context, id string) (uint64, error)
	// Favorite bookmarks the event for the calling attendee - idempotent
	Favorite(ctx context.Context, id string) error
	// Unfavorite removes the calling attendee's bookmark - idempotent
	Unfavorite(ctx context.Context, id string) error
	// AdjustInventory changes the sold counter of one of the event's ticket types
	AdjustInventory(ctx context.Context, id, ticketTypeName string, delta int) error
	// OrganizerEvents lists the events of one organizer for management purposes
	OrganizerEvents(ctx context.Context, req OrganizerListing) (*EventPage, error)
}

// -- Shared service helpers -------------------------------------------------------------------------------------------

// mapRepoError converts the repository's sentinel errors into the HTTP errors the
// transport knows how to encode
func mapRepoError(err error, eventID string) error {
	switch err {
	case nil:
		return nil
	case repos.ErrEntityNotExisting:
		return MakeError(http.StatusNotFound, ErrCodeEventNotFound,
			fmt.Sprintf("Event '%s' does not exist", eventID),
		)
	case repos.ErrTicketTypeNotExisting:
		return MakeError(http.StatusNotFound, ErrCodeTicketTypeNotFound,
			"The event has no ticket type with the given name",
		)
	case repos.ErrCapacityExceeded:
		return MakeError(http.StatusConflict, ErrCodeCapacityExceeded,
			"The requested amount of tickets exceeds the remaining capacity",
		)
	}
	if inv, ok := err.(*repos.EntityInvalidError); ok {
		return MakeError(http.StatusUnprocessableEntity, ErrCodeValidationFailed, inv.Error())
	}
	return MakeErrorWithData(http.StatusInternalServerError, ErrCodeRepoError,
		fmt.Sprintf("Error while working on event '%s'", eventID), err,
	)
}

// bounds converts the page-numbered pagination into offset/limit, applying the
// configured defaults and rejecting out-of-range values
func (p Pagination) bounds(conf models.PaginationConfig) (uint, uint, error) {
	page := p.Page
	if page == 0 {
		page = 1
	}
	size := p.PageSize
	if size == 0 {
		size = int(conf.DefaultPageSize)
	}
	if page < 1 {
		return 0, 0, MakeError(http.StatusBadRequest, ErrCodeValidationFailed,
			"The page number has to be 1 or greater",
		)
	}
	if size < 1 || uint(size) > conf.MaxPageSize {
		return 0, 0, MakeError(http.StatusBadRequest, ErrCodeValidationFailed,
			fmt.Sprintf("The page size has to be between 1 and %d", conf.MaxPageSize),
		)
	}
	return uint(page-1) * uint(size), uint(size), nil
}

// parseStatus validates an optional status filter string
func parseStatus(raw string) (*models.EventStatus, error) {
	if raw == "" {
		return nil, nil
	}
	status := models.EventStatus(raw)
	if !status.Valid() {
		return nil, MakeError(http.StatusBadRequest, ErrCodeValidationFailed,
			fmt.Sprintf("'%s' is no valid event status", raw),
		)
	}
	return &status, nil
}

// -- EventService implementation --------------------------------------------------------------------------------------

type eventService struct {
	repo   repos.EventRepo
	cs     ConfigService
	logger *logrus.Entry
}

// NewEventService creates a new event service instance
func NewEventService(repo repos.EventRepo, cs ConfigService, logger *logrus.Entry) EventService {
	return &eventService{
		repo:   repo,
		cs:     cs,
		logger: logger,
	}
}

// Create creates a new event owned by the calling organizer
func (s *eventService) Create(ctx context.Context, draft *models.Event) (*models.Event, error) {
	caller := ctxhelper.Identity(ctx)
	if !caller.IsOrganizer() {
		return nil, ErrOrganizerRequired
	}
	draft.Title = strings.TrimSpace(draft.Title)
	if draft.OrganizerID == "" {
		// Organizers usually create events for themselves
		draft.OrganizerID = caller.UserID
	}
	if !caller.Owns(draft.OrganizerID) {
		return nil, MakeError(http.StatusForbidden, ErrCodeForbidden,
			"Cannot create an event for another organizer",
		)
	}
	if err := s.repo.Create(draft); err != nil {
		return nil, mapRepoError(err, draft.ID)
	}
	s.logger.WithFields(logrus.Fields{
		log.FldEvent:     draft.ID,
		log.FldOrganizer: draft.OrganizerID,
	}).Info("Event created")
	return draft, nil
}

// Get returns a single event, bumping its view counter unless the caller opts out
func (s *eventService) Get(ctx context.Context, id string, incrementView bool) (*models.Event, error) {
	if incrementView {
		if _, err := s.repo.RecordView(id); err != nil {
			return nil, mapRepoError(err, id)
		}
	}
	ev, err := s.repo.GetByID(id)
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	return ev, nil
}

// requireOwnership loads the event and checks that the caller may manage it
func (s *eventService) requireOwnership(ctx context.Context, id string) error {
	caller := ctxhelper.Identity(ctx)
	if !caller.IsOrganizer() {
		return ErrOrganizerRequired
	}
	ev, err := s.repo.GetByID(id)
	if err != nil {
		return mapRepoError(err, id)
	}
	if !caller.Owns(ev.OrganizerID) {
		return ErrNotEventOwner
	}
	return nil
}

// Update applies a partial change to an event of the calling organizer
func (s *eventService) Update(ctx context.Context, id string, patch repos.EventPatch) (*models.Event, error) {
	if err := s.requireOwnership(ctx, id); err != nil {
		return nil, err
	}
	ev, err := s.repo.Update(id, patch)
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	s.logger.WithField(log.FldEvent, id).Info("Event updated")
	return ev, nil
}

// Delete tombstones an event of the calling organizer
func (s *eventService) Delete(ctx context.Context, id string) error {
	if err := s.requireOwnership(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return mapRepoError(err, id)
	}
	s.logger.WithField(log.FldEvent, id).Info("Event deleted")
	return nil
}

// RecordView increments an event's view counter and returns the new value
func (s *eventService) RecordView(ctx context.Context, id string) (uint64, error) {
	views, err := s.repo.RecordView(id)
	if err != nil {
		return 0, mapRepoError(err, id)
	}
	return views, nil
}

// Favorite bookmarks the event for the calling attendee
func (s *eventService) Favorite(ctx context.Context, id string) error {
	caller := ctxhelper.Identity(ctx)
	if caller.IsAnonymous() {
		return MakeError(http.StatusForbidden, ErrCodeForbidden,
			"Favoriting an event needs an identified caller",
		)
	}
	return mapRepoError(s.repo.Favorite(caller.UserID, id), id)
}

// Unfavorite removes the calling attendee's bookmark
func (s *eventService) Unfavorite(ctx context.Context, id string) error {
	caller := ctxhelper.Identity(ctx)
	if caller.IsAnonymous() {
		return MakeError(http.StatusForbidden, ErrCodeForbidden,
			"Unfavoriting an event needs an identified caller",
		)
	}
	return mapRepoError(s.repo.Unfavorite(caller.UserID, id), id)
}

// AdjustInventory changes the sold counter of one of the event's ticket types.
// Reserved for the event's organizer (or an admin acting for the booking system).
func (s *eventService) AdjustInventory(ctx context.Context, id, ticketTypeName string, delta int) error {
	if err := s.requireOwnership(ctx, id); err != nil {
		return err
	}
	if err := s.repo.AdjustInventory(id, ticketTypeName, delta); err != nil {
		return mapRepoError(err, id)
	}
	s.logger.WithFields(logrus.Fields{
		log.FldEvent:      id,
		log.FldTicketType: ticketTypeName,
		log.FldDelta:      delta,
	}).Info("Ticket inventory adjusted")
	return nil
}

// OrganizerEvents lists the events of one organizer for management purposes
func (s *eventService) OrganizerEvents(ctx context.Context, req OrganizerListing) (*EventPage, error) {
	caller := ctxhelper.Identity(ctx)
	if !caller.IsOrganizer() {
		return nil, ErrOrganizerRequired
	}
	if !caller.Owns(req.OrganizerID) {
		return nil, MakeError(http.StatusForbidden, ErrCodeForbidden,
			"Cannot list the events of another organizer",
		)
	}
	status, err := parseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	conf := s.cs.GetConfig(ctx).Pagination
	offset, limit, err := req.bounds(conf)
	if err != nil {
		return nil, err
	}
	filter := repos.EventFilter{
		OrganizerID: req.OrganizerID,
		Status:      status,
		// The organizer manages archived events through this listing as well
		IncludeArchived: true,
	}
	order := repos.SortOrder{Field: repos.SortByCreatedAt}
	items, total, err := s.repo.Find(filter, order, offset, limit)
	if err != nil {
		return nil, MakeErrorWithData(http.StatusInternalServerError, ErrCodeRepoError,
			"Error while listing organizer events", err,
		)
	}
	page := req.Page
	if page == 0 {
		page = 1
	}
	size := req.PageSize
	if size == 0 {
		size = int(conf.DefaultPageSize)
	}
	return &EventPage{Total: total, Page: page, PageSize: size, Items: items}, nil
}
