package internal

import (
	"github.com/derWhity/eventdesk/internal/models"
	"github.com/derWhity/eventdesk/internal/repos"
	"github.com/go-kit/kit/endpoint"
	"golang.org/x/net/context"
)

// EventEndpoints is a collection of endpoints for working with the event service
type EventEndpoints struct {
	Create          endpoint.Endpoint
	Get             endpoint.Endpoint
	Update          endpoint.Endpoint
	Delete          endpoint.Endpoint
	RecordView      endpoint.Endpoint
	Favorite        endpoint.Endpoint
	Unfavorite      endpoint.Endpoint
	AdjustInventory endpoint.Endpoint
	OrganizerEvents endpoint.Endpoint
}

// DiscoveryEndpoints is a collection of endpoints for the public event discovery
type DiscoveryEndpoints struct {
	Search endpoint.Endpoint
}

// AnalyticsEndpoints is a collection of endpoints for reading analytics snapshots
type AnalyticsEndpoints struct {
	EventSummary    endpoint.Endpoint
	PlatformSummary endpoint.Endpoint
}

// The base for all responses which always contains an "ok" property to show if the call
// was successful and a data element containing the result of the request
type basicResponse struct {
	OK   bool        `json:"ok"`
	Data interface{} `json:"data,omitempty"`
}

// Response for a standalone view-count bump
type viewCountResponse struct {
	Views uint64 `json:"views"`
}

// A request for a single event's details
type getEventRequest struct {
	ID string
	// Bump the view counter while reading - the default for public detail views
	IncrementView bool
}

// A request updating an event's fields
type updateEventRequest struct {
	ID    string
	Patch repos.EventPatch
}

// A request changing a ticket type's sold counter
type adjustInventoryRequest struct {
	ID         string
	TicketType string
	Delta      int `json:"delta"`
}

// -- Event service ----------------------------------------------------------------------------------------------------

// MakeEventEndpoints creates the endpoints needed to use the event service
func MakeEventEndpoints(s EventService) EventEndpoints {
	return EventEndpoints{
		Create:          EnsureOrganizer(MakeCreateEventEndpoint(s)),
		Get:             MakeGetEventEndpoint(s),
		Update:          EnsureOrganizer(MakeUpdateEventEndpoint(s)),
		Delete:          EnsureOrganizer(MakeDeleteEventEndpoint(s)),
		RecordView:      MakeRecordViewEndpoint(s),
		Favorite:        EnsureIdentified(MakeFavoriteEndpoint(s)),
		Unfavorite:      EnsureIdentified(MakeUnfavoriteEndpoint(s)),
		AdjustInventory: EnsureOrganizer(MakeAdjustInventoryEndpoint(s)),
		OrganizerEvents: EnsureOrganizer(MakeOrganizerEventsEndpoint(s)),
	}
}

// MakeCreateEventEndpoint returns an endpoint calling the Create method of the EventService
func MakeCreateEventEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		draft := request.(models.Event)
		ev, err := s.Create(ctx, &draft)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, ev}, nil
	}
}

// MakeGetEventEndpoint returns an endpoint calling the Get method of the EventService
func MakeGetEventEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(getEventRequest)
		ev, err := s.Get(ctx, req.ID, req.IncrementView)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, ev}, nil
	}
}

// MakeUpdateEventEndpoint returns an endpoint calling the Update method of the EventService
func MakeUpdateEventEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(updateEventRequest)
		ev, err := s.Update(ctx, req.ID, req.Patch)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, ev}, nil
	}
}

// MakeDeleteEventEndpoint returns an endpoint calling the Delete method of the EventService
func MakeDeleteEventEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		id := request.(string)
		if err := s.Delete(ctx, id); err != nil {
			return nil, err
		}
		return basicResponse{OK: true}, nil
	}
}

// MakeRecordViewEndpoint returns an endpoint calling the RecordView method of the EventService
func MakeRecordViewEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		id := request.(string)
		views, err := s.RecordView(ctx, id)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, viewCountResponse{Views: views}}, nil
	}
}

// MakeFavoriteEndpoint returns an endpoint calling the Favorite method of the EventService
func MakeFavoriteEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		id := request.(string)
		if err := s.Favorite(ctx, id); err != nil {
			return nil, err
		}
		return basicResponse{OK: true}, nil
	}
}

// MakeUnfavoriteEndpoint returns an endpoint calling the Unfavorite method of the EventService
func MakeUnfavoriteEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		id := request.(string)
		if err := s.Unfavorite(ctx, id); err != nil {
			return nil, err
		}
		return basicResponse{OK: true}, nil
	}
}

// MakeAdjustInventoryEndpoint returns an endpoint calling the AdjustInventory method of the EventService
func MakeAdjustInventoryEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(adjustInventoryRequest)
		if err := s.AdjustInventory(ctx, req.ID, req.TicketType, req.Delta); err != nil {
			return nil, err
		}
		return basicResponse{OK: true}, nil
	}
}

// MakeOrganizerEventsEndpoint returns an endpoint calling the OrganizerEvents method of the EventService
func MakeOrganizerEventsEndpoint(s EventService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(OrganizerListing)
		page, err := s.OrganizerEvents(ctx, req)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, page}, nil
	}
}

// -- Discovery service ------------------------------------------------------------------------------------------------

// MakeDiscoveryEndpoints creates the endpoints needed to use the discovery service
func MakeDiscoveryEndpoints(s DiscoveryService) DiscoveryEndpoints {
	return DiscoveryEndpoints{
		Search: MakeSearchEndpoint(s),
	}
}

// MakeSearchEndpoint returns an endpoint calling the Search method of the DiscoveryService
func MakeSearchEndpoint(s DiscoveryService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(EventSearch)
		page, err := s.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, page}, nil
	}
}

// -- Analytics service ------------------------------------------------------------------------------------------------

// MakeAnalyticsEndpoints creates the endpoints needed to use the analytics service
func MakeAnalyticsEndpoints(s AnalyticsService) AnalyticsEndpoints {
	return AnalyticsEndpoints{
		EventSummary:    EnsureOrganizer(MakeEventSummaryEndpoint(s)),
		PlatformSummary: EnsureAdmin(MakePlatformSummaryEndpoint(s)),
	}
}

// MakeEventSummaryEndpoint returns an endpoint calling the EventSummary method of the AnalyticsService
func MakeEventSummaryEndpoint(s AnalyticsService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		id := request.(string)
		sum, err := s.EventSummary(ctx, id)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, sum}, nil
	}
}

// MakePlatformSummaryEndpoint returns an endpoint calling the PlatformSummary method of the AnalyticsService
func MakePlatformSummaryEndpoint(s AnalyticsService) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		sum, err := s.PlatformSummary(ctx)
		if err != nil {
			return nil, err
		}
		return basicResponse{true, sum}, nil
	}
}
