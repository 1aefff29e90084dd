package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/lubembemichael/mail-agent/authflow"
	"github.com/lubembemichael/mail-agent/internal/apperrors"
	"github.com/lubembemichael/mail-agent/internal/config"
	"github.com/lubembemichael/mail-agent/pipeline"
	"github.com/lubembemichael/mail-agent/sessions"
	fakesessionrepo "github.com/lubembemichael/mail-agent/sessions/repofakes"
)

type fakeProcessor struct {
	result pipeline.Result
	err    error
	calls  int
}

func (p *fakeProcessor) ProcessUnread(_ context.Context, _ string) (pipeline.Result, error) {
	p.calls++
	return p.result, p.err
}

type fakeProfiles struct {
	email string
	err   error
}

func (p *fakeProfiles) Profile(_ context.Context, _ *oauth2.Token) (string, error) {
	return p.email, p.err
}

func newTestServer(repo sessions.Repo, processor Processor, profiles ProfileService, flow *authflow.Flow) *Server {
	if flow == nil {
		flow = authflow.NewWithConfig(&oauth2.Config{
			ClientID:    "client-id",
			RedirectURL: "http://localhost:8080" + RouteAuthCallback,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://accounts.example.com/auth",
				TokenURL: "https://accounts.example.com/token",
			},
		})
	}
	return New(config.New(), flow, repo, processor, profiles, nil)
}

func storedSession(t *testing.T, repo sessions.Repo) string {
	t.Helper()
	token := sessions.NewToken()
	err := repo.Upsert(token, sessions.Session{
		Token:        token,
		Credential:   &oauth2.Token{AccessToken: "access", RefreshToken: "refresh"},
		ProfileEmail: "user@example.com",
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)
	return token
}

func TestHealthzHandler(t *testing.T) {
	s := newTestServer(fakesessionrepo.NewFakeSessionRepo(), &fakeProcessor{}, &fakeProfiles{}, nil)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RouteHealthz, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestLoginHandler(t *testing.T) {
	s := newTestServer(fakesessionrepo.NewFakeSessionRepo(), &fakeProcessor{}, &fakeProfiles{}, nil)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RouteAuthLogin, nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body["auth_url"], "https://accounts.example.com/auth")

	var stateCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookieName {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie, "state cookie must be set")
	require.NotEmpty(t, stateCookie.Value)
	require.True(t, stateCookie.HttpOnly)
	require.Contains(t, body["auth_url"], "state="+stateCookie.Value)
}

func TestOAuthCallbackHandler(t *testing.T) {
	t.Run("provider error param", func(t *testing.T) {
		s := newTestServer(fakesessionrepo.NewFakeSessionRepo(), &fakeProcessor{}, &fakeProfiles{}, nil)

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RouteAuthCallback+"?error=access_denied", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "access_denied")
	})

	t.Run("missing code", func(t *testing.T) {
		s := newTestServer(fakesessionrepo.NewFakeSessionRepo(), &fakeProcessor{}, &fakeProfiles{}, nil)

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RouteAuthCallback+"?state=abc", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("state mismatch", func(t *testing.T) {
		s := newTestServer(fakesessionrepo.NewFakeSessionRepo(), &fakeProcessor{}, &fakeProfiles{}, nil)

		req := httptest.NewRequest(http.MethodGet, RouteAuthCallback+"?code=abc&state=tampered", nil)
		req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "original"})

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "Invalid state")
	})

	t.Run("successful exchange creates a session", func(t *testing.T) {
		idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"email": "user@example.com",
		}).SignedString([]byte("test-key"))
		require.NoError(t, err)

		tokenEndpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"access_token":"new-access","token_type":"Bearer","refresh_token":"new-refresh","expires_in":3600,"id_token":"%s"}`, idToken)
		}))
		defer tokenEndpoint.Close()

		flow := authflow.NewWithConfig(&oauth2.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:8080" + RouteAuthCallback,
			Endpoint: oauth2.Endpoint{
				AuthURL:  tokenEndpoint.URL + "/auth",
				TokenURL: tokenEndpoint.URL + "/token",
			},
		})

		repo := fakesessionrepo.NewFakeSessionRepo()
		s := newTestServer(repo, &fakeProcessor{}, &fakeProfiles{}, flow)

		req := httptest.NewRequest(http.MethodGet, RouteAuthCallback+"?code=auth-code&state=abc", nil)
		req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "abc"})

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/", rec.Result().Header.Get("Location"))

		var sessionCookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == sessionCookieName && c.Value != "" {
				sessionCookie = c
			}
		}
		require.NotNil(t, sessionCookie, "session cookie must be set")
		require.True(t, sessionCookie.HttpOnly)

		session, err := repo.Get(sessionCookie.Value)
		require.NoError(t, err)
		require.Equal(t, "user@example.com", session.ProfileEmail)
		require.Equal(t, "new-access", session.Credential.AccessToken)
	})

	t.Run("exchange failure", func(t *testing.T) {
		tokenEndpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		}))
		defer tokenEndpoint.Close()

		flow := authflow.NewWithConfig(&oauth2.Config{
			ClientID: "client-id",
			Endpoint: oauth2.Endpoint{TokenURL: tokenEndpoint.URL},
		})

		s := newTestServer(fakesessionrepo.NewFakeSessionRepo(), &fakeProcessor{}, &fakeProfiles{}, flow)

		req := httptest.NewRequest(http.MethodGet, RouteAuthCallback+"?code=bad-code&state=abc", nil)
		req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "abc"})

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestAuthStatusHandler(t *testing.T) {
	t.Run("no session cookie", func(t *testing.T) {
		s := newTestServer(fakesessionrepo.NewFakeSessionRepo(), &fakeProcessor{}, &fakeProfiles{}, nil)

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RouteAuthStatus, nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var body authStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.False(t, body.Authenticated)
		require.Empty(t, body.Email)
	})

	t.Run("unknown session token", func(t *testing.T) {
		s := newTestServer(fakesessionrepo.NewFakeSessionRepo(), &fakeProcessor{}, &fakeProfiles{}, nil)

		req := httptest.NewRequest(http.MethodGet, RouteAuthStatus, nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "stale"})

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		var body authStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.False(t, body.Authenticated)
	})

	t.Run("authenticated", func(t *testing.T) {
		repo := fakesessionrepo.NewFakeSessionRepo()
		token := storedSession(t, repo)
		s := newTestServer(repo, &fakeProcessor{}, &fakeProfiles{}, nil)

		req := httptest.NewRequest(http.MethodGet, RouteAuthStatus, nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		var body authStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.True(t, body.Authenticated)
		require.Equal(t, "user@example.com", body.Email)
	})
}

func TestLogoutHandler(t *testing.T) {
	t.Run("removes the session and clears the cookie", func(t *testing.T) {
		repo := fakesessionrepo.NewFakeSessionRepo()
		token := storedSession(t, repo)
		s := newTestServer(repo, &fakeProcessor{}, &fakeProfiles{}, nil)

		req := httptest.NewRequest(http.MethodPost, RouteAuthLogout, nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]bool
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.True(t, body["success"])

		_, err := repo.Get(token)
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

		var cleared *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == sessionCookieName {
				cleared = c
			}
		}
		require.NotNil(t, cleared)
		require.Empty(t, cleared.Value)
		require.Negative(t, cleared.MaxAge)
	})

	t.Run("logout without a session still succeeds", func(t *testing.T) {
		s := newTestServer(fakesessionrepo.NewFakeSessionRepo(), &fakeProcessor{}, &fakeProfiles{}, nil)

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, RouteAuthLogout, nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]bool
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.True(t, body["success"])
	})
}

func TestProcessEmailsHandler(t *testing.T) {
	t.Run("rejects request without a session", func(t *testing.T) {
		processor := &fakeProcessor{}
		s := newTestServer(fakesessionrepo.NewFakeSessionRepo(), processor, &fakeProfiles{}, nil)

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, RouteProcessEmails, nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var body processResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.False(t, body.Success)
		require.Equal(t, "Not authenticated", body.Message)
		require.Zero(t, processor.calls, "pipeline must not run without a session")
	})

	t.Run("session vanished between check and run", func(t *testing.T) {
		repo := fakesessionrepo.NewFakeSessionRepo()
		token := storedSession(t, repo)
		processor := &fakeProcessor{err: fmt.Errorf("%w: gone", apperrors.ErrUnauthenticated)}
		s := newTestServer(repo, processor, &fakeProfiles{}, nil)

		req := httptest.NewRequest(http.MethodPost, RouteProcessEmails, nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("pipeline failure", func(t *testing.T) {
		repo := fakesessionrepo.NewFakeSessionRepo()
		token := storedSession(t, repo)
		processor := &fakeProcessor{err: fmt.Errorf("%w: gmail said no", apperrors.ErrFetch)}
		s := newTestServer(repo, processor, &fakeProfiles{}, nil)

		req := httptest.NewRequest(http.MethodPost, RouteProcessEmails, nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var body processResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.False(t, body.Success)
	})

	t.Run("no unread emails", func(t *testing.T) {
		repo := fakesessionrepo.NewFakeSessionRepo()
		token := storedSession(t, repo)
		processor := &fakeProcessor{result: pipeline.Result{}}
		s := newTestServer(repo, processor, &fakeProfiles{}, nil)

		req := httptest.NewRequest(http.MethodPost, RouteProcessEmails, nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var body processResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.True(t, body.Success)
		require.Equal(t, "No unread emails found.", body.Message)
		require.Zero(t, body.TotalFound)
	})

	t.Run("drafts created", func(t *testing.T) {
		repo := fakesessionrepo.NewFakeSessionRepo()
		token := storedSession(t, repo)
		processor := &fakeProcessor{result: pipeline.Result{DraftsCreated: 2, TotalFound: 3}}
		s := newTestServer(repo, processor, &fakeProfiles{}, nil)

		req := httptest.NewRequest(http.MethodPost, RouteProcessEmails, nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var body processResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.True(t, body.Success)
		require.Equal(t, "Successfully created 2 draft(s). Please check your Gmail inbox!", body.Message)
		require.Equal(t, 2, body.Count)
		require.Equal(t, 3, body.TotalFound)
	})
}

func TestStaticFiles(t *testing.T) {
	s := newTestServer(fakesessionrepo.NewFakeSessionRepo(), &fakeProcessor{}, &fakeProfiles{}, nil)

	t.Run("index page", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		require.Contains(t, rec.Body.String(), "Mail Agent")
	})

	t.Run("script asset", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/script.js", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Header().Get("Content-Type"), "javascript")
	})

	t.Run("unknown asset", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/missing.js", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCorsMiddleware(t *testing.T) {
	t.Run("allowed origin echoed back", func(t *testing.T) {
		t.Setenv("ALLOWED_ORIGINS", "http://allowed.example.com")
		s := newTestServer(fakesessionrepo.NewFakeSessionRepo(), &fakeProcessor{}, &fakeProfiles{}, nil)

		req := httptest.NewRequest(http.MethodGet, RouteAuthStatus, nil)
		req.Header.Set("Origin", "http://allowed.example.com")

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		require.Equal(t, "http://allowed.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("disallowed origin gets no CORS headers", func(t *testing.T) {
		t.Setenv("ALLOWED_ORIGINS", "http://allowed.example.com")
		s := newTestServer(fakesessionrepo.NewFakeSessionRepo(), &fakeProcessor{}, &fakeProfiles{}, nil)

		req := httptest.NewRequest(http.MethodGet, RouteAuthStatus, nil)
		req.Header.Set("Origin", "http://evil.example.com")

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
