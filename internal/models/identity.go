package models

// Role names as they arrive in the gateway's role header
const (
	// RoleAttendee may favorite events and browse discovery
	RoleAttendee = "attendee"
	// RoleOrganizer may manage their own events and read their analytics
	RoleOrganizer = "organizer"
	// RoleAdmin may manage any event and read platform analytics
	RoleAdmin = "admin"
)

// AnonymousUserID is the user ID assigned to callers that did not identify themselves
const AnonymousUserID = "anonymous"

// Identity represents the already-authenticated caller as handed over by the
// API gateway. The service trusts these claims - verifying them is the
// gateway's job, not ours.
type Identity struct {
	// The caller's user ID
	UserID string `json:"userId"`
	// The roles granted to the caller
	Roles []string `json:"roles"`
}

// Anonymous returns the identity used for callers without user information
func Anonymous() Identity {
	return Identity{UserID: AnonymousUserID}
}

// IsAnonymous reports whether the caller did not identify themselves
func (i Identity) IsAnonymous() bool {
	return i.UserID == "" || i.UserID == AnonymousUserID
}

func (i Identity) hasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the caller holds the admin role
func (i Identity) IsAdmin() bool {
	return i.hasRole(RoleAdmin)
}

// IsOrganizer reports whether the caller may act as an organizer.
// Admins implicitly qualify.
func (i Identity) IsOrganizer() bool {
	return i.hasRole(RoleOrganizer) || i.IsAdmin()
}

// IsAttendee reports whether the caller may act as an attendee.
// Organizers and admins implicitly qualify.
func (i Identity) IsAttendee() bool {
	return i.hasRole(RoleAttendee) || i.IsOrganizer()
}

// Owns reports whether the caller is the organizer with the given ID or an admin
func (i Identity) Owns(organizerID string) bool {
	return i.IsAdmin() || (!i.IsAnonymous() && i.UserID == organizerID)
}
