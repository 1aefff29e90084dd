package fakesessionrepo

import (
	"sync"

	"golang.org/x/oauth2"

	"github.com/lubembemichael/mail-agent/internal/apperrors"
	"github.com/lubembemichael/mail-agent/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	lock     sync.RWMutex
	sessions map[string]sessions.Session

	// Error injection for tests
	UpsertErr           error
	GetErr              error
	UpdateCredentialErr error

	UpdateCredentialCalls int
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]sessions.Session),
	}
}

func (sr *FakeSessionRepo) Upsert(token string, session sessions.Session) error {
	if sr.UpsertErr != nil {
		return sr.UpsertErr
	}
	sr.lock.Lock()
	defer sr.lock.Unlock()
	session.Token = token
	sr.sessions[token] = session
	return nil
}

func (sr *FakeSessionRepo) Get(token string) (sessions.Session, error) {
	if sr.GetErr != nil {
		return sessions.Session{}, sr.GetErr
	}
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	session, ok := sr.sessions[token]
	if !ok {
		return sessions.Session{}, apperrors.ErrSessionNotFound
	}
	return session, nil
}

func (sr *FakeSessionRepo) UpdateCredential(token string, credential *oauth2.Token) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	sr.UpdateCredentialCalls++
	if sr.UpdateCredentialErr != nil {
		return sr.UpdateCredentialErr
	}
	session, ok := sr.sessions[token]
	if !ok {
		return apperrors.ErrSessionNotFound
	}
	session.Credential = credential
	sr.sessions[token] = session
	return nil
}

func (sr *FakeSessionRepo) Delete(token string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	delete(sr.sessions, token)
	return nil
}
