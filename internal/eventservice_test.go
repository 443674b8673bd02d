package internal

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"

	"github.com/derWhity/eventdesk/internal/ctxhelper"
	"github.com/derWhity/eventdesk/internal/models"
	"github.com/derWhity/eventdesk/internal/repos"
	"github.com/derWhity/eventdesk/internal/repos/event/inmem"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// ctxFor builds a request context the way the HTTP transport would - with the
// caller identity and a logger attached
func ctxFor(userID string, roles ...string) context.Context {
	ctx := ctxhelper.WithLogger(context.Background(), testLogger())
	return ctxhelper.WithIdentity(ctx, models.Identity{UserID: userID, Roles: roles})
}

func anonCtx() context.Context {
	return ctxhelper.WithLogger(context.Background(), testLogger())
}

func newTestServices(t *testing.T) (EventService, DiscoveryService, AnalyticsService, repos.EventRepo) {
	t.Helper()
	repo := inmem.New(testLogger())
	cs := NewConfigService("does-not-exist.json")
	return NewEventService(repo, cs, testLogger()),
		NewDiscoveryService(repo, cs, testLogger()),
		NewAnalyticsService(repo, testLogger()),
		repo
}

func eventDraft(organizer, title string) *models.Event {
	start := time.Now().Add(24 * time.Hour)
	return &models.Event{
		OrganizerID: organizer,
		Title:       title,
		Category:    "Tech",
		Location:    "Berlin",
		StartsAt:    start,
		EndsAt:      start.Add(2 * time.Hour),
		Status:      models.StatusPublished,
	}
}

// requireHTTPError asserts that the service returned an HTTPError with the
// expected status and error code
func requireHTTPError(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	httpErr, ok := err.(*HTTPError)
	require.True(t, ok, "expected an *HTTPError, got %T: %v", err, err)
	assert.Equal(t, status, httpErr.Status())
	assert.Equal(t, code, httpErr.ErrorCode())
}

func TestEventServiceCreate(t *testing.T) {
	es, _, _, _ := newTestServices(t)

	t.Run("organizer creates for themselves", func(t *testing.T) {
		draft := eventDraft("", "My event")
		ev, err := es.Create(ctxFor("org-1", models.RoleOrganizer), draft)
		require.NoError(t, err)
		assert.Equal(t, "org-1", ev.OrganizerID)
		assert.NotEmpty(t, ev.ID)
	})

	t.Run("organizer cannot create for somebody else", func(t *testing.T) {
		draft := eventDraft("org-2", "Foreign event")
		_, err := es.Create(ctxFor("org-1", models.RoleOrganizer), draft)
		requireHTTPError(t, err, 403, ErrCodeForbidden)
	})

	t.Run("admin may create for anybody", func(t *testing.T) {
		draft := eventDraft("org-2", "Backfilled event")
		ev, err := es.Create(ctxFor("admin-1", models.RoleAdmin), draft)
		require.NoError(t, err)
		assert.Equal(t, "org-2", ev.OrganizerID)
	})

	t.Run("attendees may not create events", func(t *testing.T) {
		_, err := es.Create(ctxFor("att-1", models.RoleAttendee), eventDraft("", "Nope"))
		requireHTTPError(t, err, 403, ErrCodeForbidden)
	})

	t.Run("invalid drafts are rejected", func(t *testing.T) {
		draft := eventDraft("", "Broken event")
		draft.EndsAt = draft.StartsAt.Add(-time.Hour)
		_, err := es.Create(ctxFor("org-1", models.RoleOrganizer), draft)
		requireHTTPError(t, err, 422, ErrCodeValidationFailed)
	})
}

func TestEventServiceGet(t *testing.T) {
	es, _, _, _ := newTestServices(t)
	created, err := es.Create(ctxFor("org-1", models.RoleOrganizer), eventDraft("", "Viewable"))
	require.NoError(t, err)

	// A public detail view counts as a view
	ev, err := es.Get(anonCtx(), created.ID, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ev.Views)

	// Internal reads can opt out of the counter bump
	ev, err = es.Get(anonCtx(), created.ID, false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ev.Views)

	_, err = es.Get(anonCtx(), "no-such-event", true)
	requireHTTPError(t, err, 404, ErrCodeEventNotFound)
}

func TestEventServiceUpdateOwnership(t *testing.T) {
	es, _, _, _ := newTestServices(t)
	created, err := es.Create(ctxFor("org-1", models.RoleOrganizer), eventDraft("", "Mine"))
	require.NoError(t, err)

	title := "Renamed"
	patch := repos.EventPatch{Title: &title}

	_, err = es.Update(ctxFor("org-2", models.RoleOrganizer), created.ID, patch)
	requireHTTPError(t, err, 403, ErrCodeForbidden)

	_, err = es.Update(ctxFor("att-1", models.RoleAttendee), created.ID, patch)
	requireHTTPError(t, err, 403, ErrCodeForbidden)

	ev, err := es.Update(ctxFor("org-1", models.RoleOrganizer), created.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", ev.Title)

	// Admins may manage any event
	title2 := "Renamed again"
	ev, err = es.Update(ctxFor("admin-1", models.RoleAdmin), created.ID, repos.EventPatch{Title: &title2})
	require.NoError(t, err)
	assert.Equal(t, "Renamed again", ev.Title)
}

func TestEventServiceDelete(t *testing.T) {
	es, _, _, _ := newTestServices(t)
	created, err := es.Create(ctxFor("org-1", models.RoleOrganizer), eventDraft("", "Doomed"))
	require.NoError(t, err)

	requireHTTPError(t,
		es.Delete(ctxFor("org-2", models.RoleOrganizer), created.ID), 403, ErrCodeForbidden)

	require.NoError(t, es.Delete(ctxFor("org-1", models.RoleOrganizer), created.ID))

	_, err = es.Get(anonCtx(), created.ID, false)
	requireHTTPError(t, err, 404, ErrCodeEventNotFound)
}

func TestEventServiceFavorites(t *testing.T) {
	es, _, _, repo := newTestServices(t)
	created, err := es.Create(ctxFor("org-1", models.RoleOrganizer), eventDraft("", "Bookmarkable"))
	require.NoError(t, err)

	requireHTTPError(t, es.Favorite(anonCtx(), created.ID), 403, ErrCodeForbidden)
	requireHTTPError(t, es.Unfavorite(anonCtx(), created.ID), 403, ErrCodeForbidden)

	require.NoError(t, es.Favorite(ctxFor("att-1", models.RoleAttendee), created.ID))
	require.NoError(t, es.Favorite(ctxFor("att-1", models.RoleAttendee), created.ID))

	ev, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ev.Favorites)

	require.NoError(t, es.Unfavorite(ctxFor("att-1", models.RoleAttendee), created.ID))
	ev, err = repo.GetByID(created.ID)
	require.NoError(t, err)
	assert.Zero(t, ev.Favorites)
}

func TestEventServiceAdjustInventory(t *testing.T) {
	es, _, _, _ := newTestServices(t)
	draft := eventDraft("", "Ticketed")
	draft.TicketTypes = []models.TicketType{
		{Name: "Standard", Price: 20, Currency: "EUR", QuantityTotal: 2},
	}
	created, err := es.Create(ctxFor("org-1", models.RoleOrganizer), draft)
	require.NoError(t, err)

	owner := ctxFor("org-1", models.RoleOrganizer)

	requireHTTPError(t,
		es.AdjustInventory(ctxFor("org-2", models.RoleOrganizer), created.ID, "Standard", 1),
		403, ErrCodeForbidden)

	require.NoError(t, es.AdjustInventory(owner, created.ID, "Standard", 2))

	requireHTTPError(t,
		es.AdjustInventory(owner, created.ID, "Standard", 1), 409, ErrCodeCapacityExceeded)

	requireHTTPError(t,
		es.AdjustInventory(owner, created.ID, "VIP", 1), 404, ErrCodeTicketTypeNotFound)

	requireHTTPError(t,
		es.AdjustInventory(owner, created.ID, "Standard", -3), 422, ErrCodeValidationFailed)
}

func TestEventServiceOrganizerEvents(t *testing.T) {
	es, _, _, _ := newTestServices(t)
	owner := ctxFor("org-1", models.RoleOrganizer)

	for i := 0; i < 3; i++ {
		draft := eventDraft("", "Managed event")
		if i == 0 {
			draft.Status = models.StatusArchived
		}
		_, err := es.Create(owner, draft)
		require.NoError(t, err)
	}

	t.Run("lists all own events including archived", func(t *testing.T) {
		page, err := es.OrganizerEvents(owner, OrganizerListing{OrganizerID: "org-1"})
		require.NoError(t, err)
		assert.EqualValues(t, 3, page.Total)
		assert.Len(t, page.Items, 3)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 20, page.PageSize)
	})

	t.Run("status filter narrows the listing", func(t *testing.T) {
		page, err := es.OrganizerEvents(owner, OrganizerListing{
			OrganizerID: "org-1",
			Status:      string(models.StatusArchived),
		})
		require.NoError(t, err)
		assert.EqualValues(t, 1, page.Total)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		_, err := es.OrganizerEvents(owner, OrganizerListing{
			OrganizerID: "org-1",
			Status:      "happening",
		})
		requireHTTPError(t, err, 400, ErrCodeValidationFailed)
	})

	t.Run("foreign listings are forbidden", func(t *testing.T) {
		_, err := es.OrganizerEvents(ctxFor("org-2", models.RoleOrganizer),
			OrganizerListing{OrganizerID: "org-1"})
		requireHTTPError(t, err, 403, ErrCodeForbidden)
	})

	t.Run("admins may read any listing", func(t *testing.T) {
		page, err := es.OrganizerEvents(ctxFor("admin-1", models.RoleAdmin),
			OrganizerListing{OrganizerID: "org-1"})
		require.NoError(t, err)
		assert.EqualValues(t, 3, page.Total)
	})
}
