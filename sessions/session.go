package sessions

import (
	"time"

	"golang.org/x/oauth2"
)

// Session binds an opaque token to the Google credential obtained during the
// OAuth callback, plus the cached profile email. Sessions live in memory for
// the process lifetime; there is deliberately no persistence across restarts.
type Session struct {
	Token        string        // Opaque session identifier, carried in a cookie
	Credential   *oauth2.Token // Access/refresh token pair; never nil for a stored session
	ProfileEmail string        // Gmail account address, cached at login
	CreatedAt    time.Time
}
