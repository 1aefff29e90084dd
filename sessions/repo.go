package sessions

import "golang.org/x/oauth2"

// Repo defines the interface for session storage operations.
// Implementations must serialize writes to the same token so that two
// concurrent requests refreshing the same credential cannot corrupt it.
type Repo interface {
	// Upsert creates or updates a session for the token
	Upsert(token string, session Session) error

	// Get retrieves a session by token
	Get(token string) (Session, error)

	// UpdateCredential replaces the stored credential after a token refresh
	UpdateCredential(token string, credential *oauth2.Token) error

	// Delete removes a session; deleting an absent token is a no-op
	Delete(token string) error
}
