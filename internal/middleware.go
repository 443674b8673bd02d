package internal

import (
	"net/http"

	"github.com/derWhity/eventdesk/internal/ctxhelper"
	"github.com/go-kit/kit/endpoint"
	"golang.org/x/net/context"
)

// EnsureIdentified is a middleware that rejects calls without an identified caller
func EnsureIdentified(next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		if ctxhelper.Identity(ctx).IsAnonymous() {
			return nil, MakeError(
				http.StatusForbidden,
				ErrCodeForbidden,
				"This function needs an identified caller",
			)
		}
		return next(ctx, request)
	}
}

// EnsureOrganizer is a middleware that rejects calls from users without the organizer role
func EnsureOrganizer(next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		if !ctxhelper.Identity(ctx).IsOrganizer() {
			return nil, ErrOrganizerRequired
		}
		return next(ctx, request)
	}
}

// EnsureAdmin is a middleware that rejects calls from users without the admin role
func EnsureAdmin(next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		if !ctxhelper.Identity(ctx).IsAdmin() {
			return nil, ErrAdminRequired
		}
		return next(ctx, request)
	}
}
