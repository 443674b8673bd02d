package internal

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"

	"github.com/derWhity/eventdesk/internal/ctxhelper"
	"github.com/derWhity/eventdesk/internal/models"
	"github.com/derWhity/eventdesk/internal/repos/event/inmem"
)

// newTestServer wires the full HTTP stack against a fresh in-memory store
func newTestServer(t *testing.T, cs ConfigService) *httptest.Server {
	t.Helper()
	logger := testLogger()
	repo := inmem.New(logger)
	handler := MakeHTTPHandler(
		NewEventService(repo, cs, logger),
		NewDiscoveryService(repo, cs, logger),
		NewAnalyticsService(repo, logger),
		cs,
		logger,
	)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// doJSON fires a request with the given identity headers and decodes the JSON answer
func doJSON(t *testing.T, srv *httptest.Server, method, path, userID, roles string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, reqBody)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("x-user-id", userID)
		req.Header.Set("x-user-roles", roles)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func createViaHTTP(t *testing.T, srv *httptest.Server, userID string, draft map[string]interface{}) string {
	t.Helper()
	status, body := doJSON(t, srv, http.MethodPost, "/api/events", userID, "organizer", draft)
	require.Equal(t, http.StatusOK, status, "create failed: %v", body)
	require.Equal(t, true, body["ok"])
	data := body["data"].(map[string]interface{})
	id, _ := data["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func sampleDraft(title string) map[string]interface{} {
	start := time.Now().Add(24 * time.Hour).UTC()
	return map[string]interface{}{
		"title":    title,
		"category": "Tech",
		"location": "Berlin",
		"startsAt": start.Format(time.RFC3339),
		"endsAt":   start.Add(2 * time.Hour).Format(time.RFC3339),
		"status":   "published",
		"tags":     []string{"go"},
	}
}

func TestHTTPAliveEndpoint(t *testing.T) {
	srv := newTestServer(t, NewConfigService("does-not-exist.json"))
	status, body := doJSON(t, srv, http.MethodGet, "/alive", "", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])
}

func TestHTTPEventLifecycle(t *testing.T) {
	srv := newTestServer(t, NewConfigService("does-not-exist.json"))
	id := createViaHTTP(t, srv, "org-1", sampleDraft("Lifecycle event"))

	t.Run("public detail view counts a view", func(t *testing.T) {
		status, body := doJSON(t, srv, http.MethodGet, "/api/events/"+id, "", "", nil)
		require.Equal(t, http.StatusOK, status)
		data := body["data"].(map[string]interface{})
		assert.EqualValues(t, 1, data["views"])

		// Reading with incrementView=false keeps the counter
		status, body = doJSON(t, srv, http.MethodGet, "/api/events/"+id+"?incrementView=false", "", "", nil)
		require.Equal(t, http.StatusOK, status)
		data = body["data"].(map[string]interface{})
		assert.EqualValues(t, 1, data["views"])
	})

	t.Run("patch updates the event", func(t *testing.T) {
		status, body := doJSON(t, srv, http.MethodPatch, "/api/events/"+id, "org-1", "organizer",
			map[string]interface{}{"title": "Renamed event"})
		require.Equal(t, http.StatusOK, status)
		data := body["data"].(map[string]interface{})
		assert.Equal(t, "Renamed event", data["title"])
	})

	t.Run("foreign organizer gets a 403", func(t *testing.T) {
		status, body := doJSON(t, srv, http.MethodPatch, "/api/events/"+id, "org-2", "organizer",
			map[string]interface{}{"title": "Hijacked"})
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, ErrCodeForbidden, body["error"])
	})

	t.Run("attendee cannot create events", func(t *testing.T) {
		status, body := doJSON(t, srv, http.MethodPost, "/api/events", "att-1", "attendee",
			sampleDraft("Not allowed"))
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, ErrCodeForbidden, body["error"])
	})

	t.Run("delete tombstones the event", func(t *testing.T) {
		status, _ := doJSON(t, srv, http.MethodDelete, "/api/events/"+id, "org-1", "organizer", nil)
		require.Equal(t, http.StatusOK, status)

		status, body := doJSON(t, srv, http.MethodGet, "/api/events/"+id, "", "", nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, ErrCodeEventNotFound, body["error"])
	})
}

func TestHTTPFavoriteRoutes(t *testing.T) {
	srv := newTestServer(t, NewConfigService("does-not-exist.json"))
	id := createViaHTTP(t, srv, "org-1", sampleDraft("Favorited event"))

	status, body := doJSON(t, srv, http.MethodPost, "/api/events/"+id+"/favorite", "", "", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, ErrCodeForbidden, body["error"])

	status, _ = doJSON(t, srv, http.MethodPost, "/api/events/"+id+"/favorite", "att-1", "attendee", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, srv, http.MethodGet, "/api/events/"+id+"?incrementView=false", "", "", nil)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["favorites"])

	status, _ = doJSON(t, srv, http.MethodPost, "/api/events/"+id+"/unfavorite", "att-1", "attendee", nil)
	require.Equal(t, http.StatusOK, status)
}

func TestHTTPInventoryRoute(t *testing.T) {
	srv := newTestServer(t, NewConfigService("does-not-exist.json"))
	draft := sampleDraft("Ticketed event")
	draft["ticketTypes"] = []map[string]interface{}{
		{"name": "Standard", "price": 25.0, "currency": "EUR", "quantityTotal": 2},
	}
	id := createViaHTTP(t, srv, "org-1", draft)

	status, _ := doJSON(t, srv, http.MethodPost, "/api/events/"+id+"/tickets/Standard/adjust",
		"org-1", "organizer", map[string]interface{}{"delta": 2})
	require.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, srv, http.MethodPost, "/api/events/"+id+"/tickets/Standard/adjust",
		"org-1", "organizer", map[string]interface{}{"delta": 1})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, ErrCodeCapacityExceeded, body["error"])

	status, body = doJSON(t, srv, http.MethodPost, "/api/events/"+id+"/tickets/VIP/adjust",
		"org-1", "organizer", map[string]interface{}{"delta": 1})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, ErrCodeTicketTypeNotFound, body["error"])
}

func TestHTTPSearchRoute(t *testing.T) {
	srv := newTestServer(t, NewConfigService("does-not-exist.json"))
	createViaHTTP(t, srv, "org-1", sampleDraft("Jazz Night"))
	createViaHTTP(t, srv, "org-1", sampleDraft("Tech Meetup"))

	status, body := doJSON(t, srv, http.MethodGet, "/api/events?q=jazz&tags=go", "", "", nil)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["total"])
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Jazz Night", items[0].(map[string]interface{})["title"])

	status, body = doJSON(t, srv, http.MethodGet, "/api/events?from=yesterday", "", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ErrCodeValidationFailed, body["error"])

	status, body = doJSON(t, srv, http.MethodGet, "/api/events?pageSize=5000", "", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ErrCodeValidationFailed, body["error"])
}

func TestHTTPPaginationParameterValidation(t *testing.T) {
	srv := newTestServer(t, NewConfigService("does-not-exist.json"))
	createViaHTTP(t, srv, "org-1", sampleDraft("Paged event"))

	// An explicitly sent zero, negative or non-numeric value is rejected - only an
	// absent parameter means "use the configured default"
	for _, query := range []string{
		"pageSize=0", "pageSize=-1", "pageSize=many",
		"page=0", "page=-3", "page=first",
	} {
		status, body := doJSON(t, srv, http.MethodGet, "/api/events?"+query, "", "", nil)
		assert.Equal(t, http.StatusBadRequest, status, "query %q", query)
		assert.Equal(t, ErrCodeValidationFailed, body["error"], "query %q", query)
	}

	status, body := doJSON(t, srv, http.MethodGet, "/api/events", "", "", nil)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["page"])
	assert.EqualValues(t, 20, data["pageSize"])

	// The organizer listing shares the same decoding
	status, body = doJSON(t, srv, http.MethodGet, "/api/events/organizer/org-1?pageSize=0",
		"org-1", "organizer", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ErrCodeValidationFailed, body["error"])
}

func TestHTTPOrganizerListingRoute(t *testing.T) {
	srv := newTestServer(t, NewConfigService("does-not-exist.json"))
	createViaHTTP(t, srv, "org-1", sampleDraft("First"))
	createViaHTTP(t, srv, "org-1", sampleDraft("Second"))

	status, body := doJSON(t, srv, http.MethodGet, "/api/events/organizer/org-1", "org-1", "organizer", nil)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 2, data["total"])

	status, body = doJSON(t, srv, http.MethodGet, "/api/events/organizer/org-1", "org-2", "organizer", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, ErrCodeForbidden, body["error"])
}

func TestHTTPAnalyticsRoutes(t *testing.T) {
	srv := newTestServer(t, NewConfigService("does-not-exist.json"))
	id := createViaHTTP(t, srv, "org-1", sampleDraft("Measured event"))

	status, body := doJSON(t, srv, http.MethodGet, "/api/events/"+id+"/analytics/summary",
		"org-1", "organizer", nil)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, id, data["eventId"])

	status, body = doJSON(t, srv, http.MethodGet, "/api/admin/analytics", "org-1", "organizer", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, ErrCodeForbidden, body["error"])

	status, body = doJSON(t, srv, http.MethodGet, "/api/admin/analytics", "admin-1", "admin", nil)
	require.Equal(t, http.StatusOK, status)
	data = body["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["totalEvents"])
}

func TestHTTPAPIKeyMiddleware(t *testing.T) {
	// A config carrying an internal API key makes the check mandatory
	confFile := filepath.Join(t.TempDir(), "config.json")
	conf := models.GetDefaultConfig()
	conf.InternalAPIKey = "sesame"
	raw, err := json.Marshal(conf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(confFile, raw, 0o600))

	cs := NewConfigService(confFile)
	ctx := ctxhelper.WithLogger(context.Background(), testLogger())
	require.NoError(t, cs.Load(ctx))

	srv := newTestServer(t, cs)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, ErrCodeIllegalAPIKey, body["error"])

	req, err = http.NewRequest(http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	req.Header.Set("x-api-key", "sesame")
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPBadJSONBody(t *testing.T) {
	srv := newTestServer(t, NewConfigService("does-not-exist.json"))
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/events",
		bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	req.Header.Set("x-user-id", "org-1")
	req.Header.Set("x-user-roles", "organizer")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, ErrCodeIllegalJSON, body["error"])
	assert.Equal(t, false, body["ok"])
}
