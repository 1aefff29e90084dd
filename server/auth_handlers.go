package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/lubembemichael/mail-agent/authflow"
	"github.com/lubembemichael/mail-agent/sessions"
)

type authStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
}

// LoginHandler mints a fresh state value, stores it in a short-lived cookie
// and hands the Google consent URL back to the UI, which performs the
// redirect itself.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := generateRandomString(32)
		s.SetStateCookie(w, r, state)

		writeJSON(w, http.StatusOK, map[string]string{
			"auth_url": s.flow.AuthCodeURL(state),
		})
	}
}

func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		errorParam := r.FormValue("error")
		code := r.FormValue("code")
		state := r.FormValue("state")

		// The provider reports consent denial via an error query param
		if errorParam != "" {
			http.Error(w, fmt.Sprintf("Authorization failed: %s", errorParam), http.StatusBadRequest)
			return
		}

		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		stateCookie, err := r.Cookie(stateCookieName)
		if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		credential, err := s.flow.Exchange(r.Context(), code)
		if err != nil {
			log.Error().Err(err).Msg("oauth code exchange failed")
			http.Error(w, "Token exchange failed", http.StatusInternalServerError)
			return
		}

		email := s.resolveProfileEmail(r, credential)

		sessionToken := sessions.NewToken()
		session := sessions.Session{
			Token:        sessionToken,
			Credential:   credential,
			ProfileEmail: email,
			CreatedAt:    time.Now(),
		}
		if err := s.sessions.Upsert(sessionToken, session); err != nil {
			log.Error().Err(err).Msg("failed to store session")
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}

		s.SetSessionCookie(w, r, sessionToken)
		s.ClearStateCookie(w, r)

		log.Info().Str("email", email).Msg("login completed")
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// resolveProfileEmail prefers the id_token email claim, falling back to a
// Gmail profile lookup. "Unknown" is a display placeholder, never an error.
func (s *Server) resolveProfileEmail(r *http.Request, credential *oauth2.Token) string {
	if email, ok := authflow.IDTokenEmail(credential); ok {
		return email
	}
	if s.profiles != nil {
		if email, err := s.profiles.Profile(r.Context(), credential); err == nil && email != "" {
			return email
		}
	}
	return "Unknown"
}

func (s *Server) AuthStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			writeJSON(w, http.StatusOK, authStatusResponse{Authenticated: false})
			return
		}

		session, err := s.sessions.Get(cookie.Value)
		if err != nil {
			writeJSON(w, http.StatusOK, authStatusResponse{Authenticated: false})
			return
		}

		writeJSON(w, http.StatusOK, authStatusResponse{
			Authenticated: true,
			Email:         session.ProfileEmail,
		})
	}
}

// LogoutHandler drops the server-side session and clears the cookie.
// Logging out without a session still succeeds.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
			if err := s.sessions.Delete(cookie.Value); err != nil {
				log.Error().Err(err).Msg("failed to delete session")
			}
		}
		s.ClearSessionCookie(w, r)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
