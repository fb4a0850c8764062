package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
	customMiddleware "github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

type ServerDeps struct {
	Assistant          ports.AssistantService
	Sessions           ports.SessionService
	Cache              ports.AssistantCache
	Pool               ports.ConnectionPool
	Usage              ports.UsageRepository
	RateLimiterService ports.RateLimiterService
	HealthCheckers     []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	assistant      ports.AssistantService
	sessions       ports.SessionService
	cache          ports.AssistantCache
	pool           ports.ConnectionPool
	usage          ports.UsageRepository
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, adminJWTSecret string, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		assistant:      deps.Assistant,
		sessions:       deps.Sessions,
		cache:          deps.Cache,
		pool:           deps.Pool,
		usage:          deps.Usage,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.RateLimiterService,
			logger,
			adminJWTSecret,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
