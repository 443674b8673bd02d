package log

const (
	// FldFile is the name of the log field for storing file name information
	FldFile = "file"
	// FldTransport is the name of the log field for storing a transport name
	FldTransport = "transport"
	// FldUser is the name of the log field for storing the ID of the calling user
	FldUser = "user"
	// FldVersion is the version number of the application
	FldVersion = "ver"
	// FldEvent is the ID of the event an operation works on
	FldEvent = "event"
	// FldOrganizer is the ID of an organizer used in the log entry
	FldOrganizer = "organizer"
	// FldTicketType is the name of a ticket type used in the log entry
	FldTicketType = "ticketType"
	// FldSearch is a search term used in a discovery query
	FldSearch = "search"
	// FldCategory is the category filter used in a discovery query
	FldCategory = "category"
	// FldPage is the requested page number
	FldPage = "page"
	// FldPageSize is the requested page size
	FldPageSize = "pageSize"
	// FldDelta is the quantity delta of an inventory adjustment
	FldDelta = "delta"
)
