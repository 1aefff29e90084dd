package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/lubembemichael/mail-agent/authflow"
	"github.com/lubembemichael/mail-agent/internal/config"
	"github.com/lubembemichael/mail-agent/pipeline"
	"github.com/lubembemichael/mail-agent/sessions"
)

// Processor is the slice of the pipeline the HTTP layer needs.
type Processor interface {
	ProcessUnread(ctx context.Context, sessionToken string) (pipeline.Result, error)
}

// ProfileService resolves the authenticated account's email address.
// Implemented by the mailbox gateway.
type ProfileService interface {
	Profile(ctx context.Context, cred *oauth2.Token) (string, error)
}

type Server struct {
	env            string // Environment (e.g., "DEV", "production")
	mux            *http.ServeMux
	routes         []string
	config         config.Config
	flow           *authflow.Flow
	sessions       sessions.Repo
	processor      Processor
	profiles       ProfileService
	metricsHandler http.Handler
}

func New(cfg config.Config, flow *authflow.Flow, sessionRepo sessions.Repo, processor Processor, profiles ProfileService, metricsHandler http.Handler) *Server {
	s := &Server{
		mux:            http.NewServeMux(),
		config:         cfg,
		flow:           flow,
		sessions:       sessionRepo,
		processor:      processor,
		profiles:       profiles,
		metricsHandler: metricsHandler,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// RedirectURL is the OAuth redirect URI, derived from the configured base
// URL. The same value must be used for the authorization request and the
// code exchange.
func RedirectURL(cfg config.EnvConfig) string {
	return strings.TrimSuffix(cfg.GetBaseURL(), "/") + RouteAuthCallback
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
