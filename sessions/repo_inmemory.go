package sessions

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/lubembemichael/mail-agent/internal/apperrors"
)

// InMemoryRepo is an in-memory implementation of Repo. Entries persist for
// the process lifetime or until explicit logout.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]Session),
	}
}

// NewToken mints an opaque session token.
func NewToken() string {
	return uuid.New().String()
}

// Upsert creates or updates a session
func (r *InMemoryRepo) Upsert(token string, session Session) error {
	if token == "" {
		return fmt.Errorf("token is required")
	}
	if session.Credential == nil {
		return fmt.Errorf("session credential is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Copy the credential so callers cannot mutate the stored session
	// behind the repo's back
	cred := *session.Credential
	session.Credential = &cred
	session.Token = token
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	r.sessions[token] = session
	return nil
}

// Get retrieves a session by token
func (r *InMemoryRepo) Get(token string) (Session, error) {
	if token == "" {
		return Session{}, apperrors.ErrSessionNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[token]
	if !ok {
		return Session{}, apperrors.ErrSessionNotFound
	}

	cred := *session.Credential
	session.Credential = &cred
	return session, nil
}

// UpdateCredential replaces the stored credential for token. Writes are
// serialized by the repo mutex, so two requests refreshing the same session
// concurrently leave one complete credential behind, never a mix of both.
func (r *InMemoryRepo) UpdateCredential(token string, credential *oauth2.Token) error {
	if credential == nil {
		return fmt.Errorf("credential is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[token]
	if !ok {
		return apperrors.ErrSessionNotFound
	}

	cred := *credential
	session.Credential = &cred
	r.sessions[token] = session
	return nil
}

// Delete removes a session. Deleting a token that does not exist is a no-op.
func (r *InMemoryRepo) Delete(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, token)
	return nil
}
