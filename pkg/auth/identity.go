package auth

import (
	"github.com/google/uuid"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
)

// Identity is the resolved caller of a request. Authenticated users carry a
// UserID; guests carry the session id from the X-Guest-Session header.
type Identity struct {
	UserID    *uuid.UUID
	SessionID *string
	Role      enums.ActorRole
}

// IsAuthenticated reports whether the caller presented a valid access token.
func (i Identity) IsAuthenticated() bool {
	return i.UserID != nil && *i.UserID != uuid.Nil
}

// IsAdmin reports whether the caller may use the admin surface.
func (i Identity) IsAdmin() bool {
	return i.IsAuthenticated() && i.Role == enums.ActorRoleAdmin
}

// HasActor reports whether the caller can own a cart or an order.
func (i Identity) HasActor() bool {
	if i.IsAuthenticated() {
		return true
	}
	return i.SessionID != nil && *i.SessionID != ""
}
