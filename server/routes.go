package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("POST "+RouteChat, ChainMiddleware(s.ChatHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("POST "+RouteAuthenticate, ChainMiddleware(s.AuthenticateHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteToken, ChainMiddleware(s.TokenHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteRevoke, ChainMiddleware(s.RevokeHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware(s.RequireMaster())...))

	s.RegisterRouteHandler("GET "+RouteAdminStatus, ChainMiddleware(s.AdminStatusHandler(), s.APIMiddleware(s.RequireMaster())...))
	s.RegisterRouteHandler("GET "+RouteAdminLogs, ChainMiddleware(s.AdminLogsHandler(), s.APIMiddleware(s.RequireMaster())...))

	s.RegisterRouteHandler("GET "+RouteAdminWhitelist, ChainMiddleware(s.WhitelistListHandler(), s.APIMiddleware(s.RequireAdminKey())...))
	s.RegisterRouteHandler("PUT "+RouteAdminWhitelistDevice, ChainMiddleware(s.WhitelistAddHandler(), s.APIMiddleware(s.RequireAdminKey())...))
	s.RegisterRouteHandler("DELETE "+RouteAdminWhitelistDevice, ChainMiddleware(s.WhitelistRemoveHandler(), s.APIMiddleware(s.RequireAdminKey())...))
}
