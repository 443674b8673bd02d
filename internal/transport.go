package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/derWhity/eventdesk/internal/ctxhelper"
	"github.com/derWhity/eventdesk/internal/log"
	"github.com/derWhity/eventdesk/internal/models"
	"github.com/derWhity/eventdesk/internal/repos"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	apiBasePath = "/api"

	// The headers the API gateway uses to hand over the authenticated caller
	headerUserID    = "x-user-id"
	headerUserRoles = "x-user-roles"
	headerAPIKey    = "x-api-key"
)

// Defines an error that defines the HTTP status that should be returned
type httpStatuser interface {
	Status() int
}

// Defines an error that returns a machine-readable error code
type errorCoder interface {
	ErrorCode() string
}

// Defines an error that contains a data field with additional information
type dataBearer interface {
	Data() interface{}
}

type errorResponse struct {
	basicResponse
	// The error code
	Error   string      `json:"error"`
	Message string      `json:"errorMessage"`
	Details interface{} `json:"errorDetails,omitempty"`
}

// MakeHTTPHandler creates the main HTTP handler for the EventDesk service
func MakeHTTPHandler(
	es EventService,
	ds DiscoveryService,
	as AnalyticsService,
	cs ConfigService,
	logger *logrus.Entry,
) http.Handler {
	r := mux.NewRouter()

	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(encodeError),
		httptransport.ServerBefore(makeContextInjector(logger)),
		httptransport.ServerBefore(identityDecoder),
	}

	r.Use(makeAPIKeyMiddleware(cs))

	// -- Discovery ------------------------------------
	{
		dEp := MakeDiscoveryEndpoints(ds)

		// Search
		r.Methods(http.MethodGet).Path(apiBasePath + "/events").Handler(httptransport.NewServer(
			dEp.Search,
			decodeSearchRequest,
			encodeJSONResponse,
			options...,
		))
	}

	// -- Event service --------------------------------
	{
		evEp := MakeEventEndpoints(es)

		// Create
		r.Methods(http.MethodPost).Path(apiBasePath + "/events").Handler(httptransport.NewServer(
			evEp.Create,
			decodeEventDraft,
			encodeJSONResponse,
			options...,
		))

		// OrganizerEvents - registered before the {id} routes so "organizer" is not
		// swallowed as an event ID
		r.Methods(http.MethodGet).Path(apiBasePath + "/events/organizer/{organizerId}").Handler(httptransport.NewServer(
			evEp.OrganizerEvents,
			decodeOrganizerListing,
			encodeJSONResponse,
			options...,
		))

		// Get
		r.Methods(http.MethodGet).Path(apiBasePath + "/events/{id}").Handler(httptransport.NewServer(
			evEp.Get,
			decodeGetEventRequest,
			encodeJSONResponse,
			options...,
		))

		// Update
		r.Methods(http.MethodPatch).Path(apiBasePath + "/events/{id}").Handler(httptransport.NewServer(
			evEp.Update,
			decodeEventPatch,
			encodeJSONResponse,
			options...,
		))

		// Delete
		r.Methods(http.MethodDelete).Path(apiBasePath + "/events/{id}").Handler(httptransport.NewServer(
			evEp.Delete,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))

		// RecordView
		r.Methods(http.MethodPost).Path(apiBasePath + "/events/{id}/view").Handler(httptransport.NewServer(
			evEp.RecordView,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))

		// Favorite
		r.Methods(http.MethodPost).Path(apiBasePath + "/events/{id}/favorite").Handler(httptransport.NewServer(
			evEp.Favorite,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))

		// Unfavorite
		r.Methods(http.MethodPost).Path(apiBasePath + "/events/{id}/unfavorite").Handler(httptransport.NewServer(
			evEp.Unfavorite,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))

		// AdjustInventory
		r.Methods(http.MethodPost).Path(apiBasePath + "/events/{id}/tickets/{ticketType}/adjust").Handler(httptransport.NewServer(
			evEp.AdjustInventory,
			decodeAdjustInventoryRequest,
			encodeJSONResponse,
			options...,
		))
	}

	// -- Analytics ------------------------------------
	{
		aEp := MakeAnalyticsEndpoints(as)

		// EventSummary
		r.Methods(http.MethodGet).Path(apiBasePath + "/events/{id}/analytics/summary").Handler(httptransport.NewServer(
			aEp.EventSummary,
			decodeIDFromPath,
			encodeJSONResponse,
			options...,
		))

		// PlatformSummary
		r.Methods(http.MethodGet).Path(apiBasePath + "/admin/analytics").Handler(httptransport.NewServer(
			aEp.PlatformSummary,
			decodeNilRequest,
			encodeJSONResponse,
			options...,
		))
	}

	// Simple alive answer for checking if HTTP can be reached
	r.Methods(http.MethodGet).Path("/alive").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		data := map[string]bool{"ok": true}
		json.NewEncoder(w).Encode(data)
	})

	return r
}

// -- Request decoding -------------------------------------------------------------------------------------------------

// decodeNilRequest just does nothing with the request. It is used for endpoints that don't need anything to be passed
func decodeNilRequest(_ context.Context, r *http.Request) (request interface{}, err error) {
	return nil, nil
}

// Decodes an ID from the "id" path variable provided by GoRilla
func decodeIDFromPath(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	id, ok := vars["id"]
	if !ok || id == "" {
		return nil, MakeError(http.StatusBadRequest, ErrCodeValidationFailed, "No event ID provided")
	}
	return id, nil
}

// decodeGetEventRequest reads the event ID from the path and the optional
// incrementView flag from the query - public detail views count by default
func decodeGetEventRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := decodeIDFromPath(ctx, r)
	if err != nil {
		return nil, err
	}
	req := getEventRequest{
		ID:            id.(string),
		IncrementView: true,
	}
	if raw := r.URL.Query().Get("incrementView"); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			req.IncrementView = b
		}
	}
	return req, nil
}

// decodeEventDraft tries to load an event object from the provided HTTP request's body
func decodeEventDraft(_ context.Context, r *http.Request) (interface{}, error) {
	var ev models.Event
	err := json.NewDecoder(r.Body).Decode(&ev)
	if err != nil {
		return nil, MakeError(
			http.StatusBadRequest,
			ErrCodeIllegalJSON,
			fmt.Sprintf("Failed to decode JSON body: %v", err),
		)
	}
	return ev, nil
}

// Decodes an event patch from an update request where the ID of the event is in the path
func decodeEventPatch(ctx context.Context, r *http.Request) (interface{}, error) {
	var patch repos.EventPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		return nil, MakeError(
			http.StatusBadRequest,
			ErrCodeIllegalJSON,
			fmt.Sprintf("Failed to decode JSON body: %v", err),
		)
	}
	id, err := decodeIDFromPath(ctx, r)
	if err != nil {
		return nil, err
	}
	return updateEventRequest{ID: id.(string), Patch: patch}, nil
}

// decodeAdjustInventoryRequest reads the event ID and ticket type name from the path
// and the quantity delta from the JSON body
func decodeAdjustInventoryRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := decodeIDFromPath(ctx, r)
	if err != nil {
		return nil, err
	}
	vars := mux.Vars(r)
	name, ok := vars["ticketType"]
	if !ok || name == "" {
		return nil, MakeError(http.StatusBadRequest, ErrCodeValidationFailed, "No ticket type name provided")
	}
	var req adjustInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, MakeError(
			http.StatusBadRequest,
			ErrCodeIllegalJSON,
			fmt.Sprintf("Failed to decode JSON body: %v", err),
		)
	}
	req.ID = id.(string)
	req.TicketType = name
	return req, nil
}

// decodePaginationRequest reads the pagination information from the request's query
// variables. Absent parameters fall back to the configured defaults later on, but a
// parameter that is present has to be a positive number - an explicit "0" is a
// validation error, not a request for the default.
func decodePaginationRequest(r *http.Request) (Pagination, error) {
	val := r.URL.Query()
	var pag Pagination
	if raw := val.Get("page"); raw != "" {
		i, err := strconv.Atoi(raw)
		if err != nil || i < 1 {
			return pag, MakeError(http.StatusBadRequest, ErrCodeValidationFailed,
				"The 'page' parameter has to be a positive number",
			)
		}
		pag.Page = i
	}
	if raw := val.Get("pageSize"); raw != "" {
		i, err := strconv.Atoi(raw)
		if err != nil || i < 1 {
			return pag, MakeError(http.StatusBadRequest, ErrCodeValidationFailed,
				"The 'pageSize' parameter has to be a positive number",
			)
		}
		pag.PageSize = i
	}
	return pag, nil
}

// decodeSearchRequest decodes the discovery query from the request's GET variables
func decodeSearchRequest(_ context.Context, r *http.Request) (request interface{}, err error) {
	pag, err := decodePaginationRequest(r)
	if err != nil {
		return nil, err
	}
	val := r.URL.Query()
	search := EventSearch{
		Pagination: pag,
		Query:      val.Get("q"),
		Category:   val.Get("category"),
		Location:   val.Get("location"),
		Status:     val.Get("status"),
		Tags:       val["tags"],
		SortBy:     val.Get("sortBy"),
		SortDir:    val.Get("sortDir"),
	}
	if raw := val.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, MakeError(http.StatusBadRequest, ErrCodeValidationFailed,
				"The 'from' timestamp has to be in RFC3339 format",
			)
		}
		search.From = &t
	}
	if raw := val.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, MakeError(http.StatusBadRequest, ErrCodeValidationFailed,
				"The 'to' timestamp has to be in RFC3339 format",
			)
		}
		search.To = &t
	}
	return search, nil
}

// decodeOrganizerListing reads the organizer ID from the path and the listing options
// from the query variables
func decodeOrganizerListing(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	organizerID, ok := vars["organizerId"]
	if !ok || organizerID == "" {
		return nil, MakeError(http.StatusBadRequest, ErrCodeValidationFailed, "No organizer ID provided")
	}
	pag, err := decodePaginationRequest(r)
	if err != nil {
		return nil, err
	}
	return OrganizerListing{
		Pagination:  pag,
		OrganizerID: organizerID,
		Status:      r.URL.Query().Get("status"),
	}, nil
}

// -- Response encoding ------------------------------------------------------------------------------------------------

// Encodes a typical JSON response
func encodeJSONResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}

// Builds an error response based on the incoming error
func encodeError(_ context.Context, err error, w http.ResponseWriter) {
	if err == nil {
		panic("encodeError with nil error")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if st, ok := err.(httpStatuser); ok {
		w.WriteHeader(st.Status())
	} else {
		w.WriteHeader(http.StatusInternalServerError)
	}
	ret := errorResponse{
		basicResponse: basicResponse{false, nil},
		Message:       err.Error(),
		Error:         ErrCodeUnknown,
	}
	if cd, ok := err.(errorCoder); ok {
		ret.Error = cd.ErrorCode()
	}
	if db, ok := err.(dataBearer); ok {
		if data := db.Data(); data != nil {
			if err, ok := data.(error); ok {
				ret.Details = err.Error()
			} else {
				ret.Details = data
			}
		}
	}
	json.NewEncoder(w).Encode(&ret)
}

// -- Context preparation ----------------------------------------------------------------------------------------------

// identityDecoder reads the caller identity the API gateway hands over via the
// trusted headers and attaches it to the call's context. Requests without a user
// ID stay anonymous and are limited to the public endpoints.
func identityDecoder(ctx context.Context, r *http.Request) context.Context {
	userID := strings.TrimSpace(r.Header.Get(headerUserID))
	if userID == "" {
		return ctxhelper.WithIdentity(ctx, models.Anonymous())
	}
	var roles []string
	for _, role := range strings.Split(r.Header.Get(headerUserRoles), ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	logger := ctxhelper.Logger(ctx).WithField(log.FldUser, userID)
	ctx = ctxhelper.WithLogger(ctx, logger)
	return ctxhelper.WithIdentity(ctx, models.Identity{UserID: userID, Roles: roles})
}

func makeContextInjector(logger *logrus.Entry) httptransport.RequestFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		return ctxhelper.WithLogger(ctx, logger)
	}
}

// makeAPIKeyMiddleware enforces the configured internal API key on every route.
// With no key configured, the middleware waves everything through.
func makeAPIKeyMiddleware(cs ConfigService) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := cs.CheckAPIKey(r.Header.Get(headerAPIKey)); err != nil {
				encodeError(r.Context(), err, w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
