package server

// Route path constants
const (
	RouteHealth = "/healthz"

	// Conversation
	RouteChat = "/api/v1/chat"

	// Authentication
	RouteAuthenticate = "/api/v1/auth/authenticate"
	RouteToken        = "/api/v1/auth/token"
	RouteRevoke       = "/api/v1/auth/revoke"
	RouteSession      = "/api/v1/auth/session"

	// Admin (master identity)
	RouteAdminStatus = "/api/v1/admin/status"
	RouteAdminLogs   = "/api/v1/admin/logs"

	// Admin (admin key)
	RouteAdminWhitelist       = "/api/v1/admin/whitelist"
	RouteAdminWhitelistDevice = "/api/v1/admin/whitelist/{device}"
)
