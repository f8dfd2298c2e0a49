package models

// Identity is the caller of a request, resolved once by the auth middleware.
type Identity struct {
	UserID  string
	IsAdmin bool
}

// Guest is the identity of an unauthenticated caller.
func Guest() Identity {
	return Identity{}
}

// Authenticated returns the identity of a signed-in user.
func Authenticated(userID string, isAdmin bool) Identity {
	return Identity{UserID: userID, IsAdmin: isAdmin}
}

func (i Identity) IsAuthenticated() bool {
	return i.UserID != ""
}

// OwnerID is nil for guests.
func (i Identity) OwnerID() *string {
	if !i.IsAuthenticated() {
		return nil
	}
	id := i.UserID
	return &id
}
