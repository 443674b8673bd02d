package internal

import "net/http"

const (
	// ErrCodeUnknown is the error code for unknown errors
	ErrCodeUnknown = "UNKNOWN_ERROR"
	// ErrCodeIllegalJSON is returned when the request did not contain a valid JSON body
	ErrCodeIllegalJSON = "ILLEGAL_JSON_REQUEST"
	// ErrCodeValidationFailed is returned when incoming data violates one of the
	// entity invariants - malformed fields, an event ending before it starts or
	// a ticket inventory that would go out of range
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	// ErrCodeEventNotFound is returned when an operation works on an event that does not exist
	ErrCodeEventNotFound = "EVENT_NOT_FOUND"
	// ErrCodeTicketTypeNotFound is returned when an inventory adjustment references
	// a ticket type name the event does not have
	ErrCodeTicketTypeNotFound = "TICKET_TYPE_NOT_FOUND"
	// ErrCodeForbidden is returned when the caller lacks the role or ownership an
	// operation requires
	ErrCodeForbidden = "FORBIDDEN"
	// ErrCodeCapacityExceeded is returned when a ticket sale would push the sold
	// count over the ticket type's total quantity
	ErrCodeCapacityExceeded = "CAPACITY_EXCEEDED"
	// ErrCodeIllegalAPIKey is returned when the configured internal API key does
	// not match the one sent by the gateway
	ErrCodeIllegalAPIKey = "ILLEGAL_API_KEY"
	// ErrCodeRepoError is returned when a request to a repo fails with an unexpected error
	ErrCodeRepoError = "STORAGE_QUERY_FAILED"
)

var (
	// ErrAdminRequired is the default error returned when a caller without the
	// admin role requests an admin-only operation
	ErrAdminRequired = MakeError(
		http.StatusForbidden,
		ErrCodeForbidden,
		"Admin role required",
	)
	// ErrOrganizerRequired is the default error returned when a caller without
	// the organizer role requests an organizer operation
	ErrOrganizerRequired = MakeError(
		http.StatusForbidden,
		ErrCodeForbidden,
		"Organizer role required",
	)
	// ErrNotEventOwner is returned when an organizer tries to work on an event
	// that belongs to somebody else
	ErrNotEventOwner = MakeError(
		http.StatusForbidden,
		ErrCodeForbidden,
		"This event belongs to another organizer",
	)
)

// HTTPError is an error that contains information about the error message to return to the client
type HTTPError struct {
	message string
	code    string
	status  int
	data    interface{}
}

// MakeError creates a new HTTPError with the given contents
func MakeError(status int, code, message string) *HTTPError {
	return MakeErrorWithData(status, code, message, nil)
}

// MakeErrorWithData creates a new HTTPError with the given contents and an additional data element
func MakeErrorWithData(status int, code, message string, data interface{}) *HTTPError {
	return &HTTPError{message, code, status, data}
}

// Error implements the errorer interface
func (e *HTTPError) Error() string {
	return e.message
}

// Status returns the HTTP status that should be returned
func (e *HTTPError) Status() int {
	return e.status
}

// ErrorCode returns the machine-readable error code
func (e *HTTPError) ErrorCode() string {
	return e.code
}

// Data returns additional data about the error
func (e *HTTPError) Data() interface{} {
	return e.data
}
