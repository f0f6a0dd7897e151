package identity

// Identity represents the principal that owns cart and wishlist state.
// Exactly one field is authoritative: UserID wins whenever it is set.
// Both fields empty means an unpersisted anonymous context.
type Identity struct {
	// SessionID is the durable anonymous session identifier.
	SessionID string

	// UserID is the authenticated user identifier supplied by the host
	// page's auth collaborator.
	UserID string
}

// IsAnonymous returns true when no authenticated user is present.
func (id Identity) IsAnonymous() bool {
	return id.UserID == ""
}

// IsZero returns true when neither identity field is set.
func (id Identity) IsZero() bool {
	return id.UserID == "" && id.SessionID == ""
}

// Owner returns the ownership key and value attached to remote requests:
// ("user_id", UserID) when authenticated, ("session_id", SessionID) when
// anonymous, ("", "") when unpersisted.
func (id Identity) Owner() (key, value string) {
	if id.UserID != "" {
		return "user_id", id.UserID
	}
	if id.SessionID != "" {
		return "session_id", id.SessionID
	}
	return "", ""
}
