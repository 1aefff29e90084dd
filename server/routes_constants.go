package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth routes
	RouteAuthLogin    = "/api/auth/login"
	RouteAuthCallback = "/api/auth/callback"
	RouteAuthStatus   = "/api/auth/status"
	RouteAuthLogout   = "/api/auth/logout"

	// Pipeline routes
	RouteProcessEmails = "/api/process-emails"

	// Operational routes
	RouteHealthz = "/healthz"
	RouteMetrics = "/metrics"

	// Static asset routes (patterns)
	RouteStatic = "/static/{file}"
)
