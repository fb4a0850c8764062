package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")
	api.POST("/chat", s.chat)
	api.POST("/voice", s.voice)
	api.DELETE("/sessions/:id", s.endSession)

	admin := s.echo.Group("/admin")
	admin.Use(s.middleware.AdminAuth.RequireAdminJWT())
	admin.POST("/cache/clear", s.clearCache)
	admin.POST("/cache/prune", s.pruneCache)
	admin.GET("/stats", s.stats)
	admin.GET("/usage", s.usageLogs)
}
