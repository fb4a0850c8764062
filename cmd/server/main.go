package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/bibeksah-dev/NRAI-Kancha/configs"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/application/services"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/cache"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/db"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/health"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/httpserver"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/providers/agent"
	speechclient "github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/providers/speech"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/redis"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/repositories"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/speechpool"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting NRAI Kancha voice assistant backend...")

	// Initialize usage-log database (apply pool settings from config)
	database, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	// Initialize Redis client (session store, locks, rate limiting)
	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	logger.Info("Connected to Redis successfully")

	// Run migrations
	if err := database.Migrate("./migrations"); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	// Cache engine: three bounded TTL tiers shared by every request
	engine := cache.NewEngine(cache.Config{
		ResponseCapacity:   cfg.Cache.ResponseCapacity,
		ResponseTTL:        cfg.Cache.ResponseTTL,
		TranscriptCapacity: cfg.Cache.TranscriptCapacity,
		TranscriptTTL:      cfg.Cache.TranscriptTTL,
		LanguageCapacity:   cfg.Cache.LanguageCapacity,
		LanguageTTL:        cfg.Cache.LanguageTTL,
	}, logger)

	// Speech connection pool with pre-warmed provider handles
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := speechpool.New(startupCtx, speechpool.Config{
		Size:           cfg.Pool.Size,
		StaleThreshold: cfg.Pool.StaleThreshold,
	}, speechclient.Factory(speechclient.Config{
		Endpoint:        cfg.Speech.Endpoint,
		SubscriptionKey: cfg.Speech.SubscriptionKey,
		Region:          cfg.Speech.Region,
		RequestTimeout:  cfg.Speech.RequestTimeout,
	}, logger), logger)
	cancelStartup()
	if err != nil {
		logger.Fatal("Failed to initialize speech connection pool:", err)
	}
	defer pool.CloseAll()

	// Providers and repositories
	agentClient := agent.NewClient(agent.Config{
		Endpoint:       cfg.Agent.Endpoint,
		APIKey:         cfg.Agent.APIKey,
		AgentID:        cfg.Agent.AgentID,
		RequestTimeout: cfg.Agent.RequestTimeout,
	}, logger)
	sessionStore := redis.NewSessionStore(redisClient, logger)
	locker := redis.NewLocker(redisClient)
	usageRepo := repositories.NewUsageRepository(database, logger)
	rateLimitRepo := repositories.NewRateLimitRedisRepository(redisClient, cfg.RateLimit.KeyPrefix)

	// Services
	sessionService := services.NewSessionService(sessionStore, locker, agentClient, cfg.Session.TTL, cfg.Session.LockTTL, logger)
	assistantService := services.NewAssistantService(engine, pool, agentClient, sessionService, usageRepo, logger)
	rateLimiterService := services.NewRateLimiterService(rateLimitRepo, &services.RateLimiterConfig{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Window:            cfg.RateLimit.Window,
	}, logger)

	// Background maintenance: cache sweep/prune and pool staleness refresh
	maintCtx, stopMaintenance := context.WithCancel(context.Background())
	defer stopMaintenance()
	runner := services.NewMaintenanceRunner(engine, pool, cfg.Cache.SweepInterval, cfg.Pool.MaintenanceInterval, logger)
	go runner.Run(maintCtx)

	hcSlice := []ports.HealthChecker{
		health.NewDBHealthChecker(database),
		health.NewRedisHealthChecker(redisClient),
		health.NewPoolHealthChecker(pool),
	}

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
	}

	deps := httpserver.ServerDeps{
		Assistant:          assistantService,
		Sessions:           sessionService,
		Cache:              engine,
		Pool:               pool,
		Usage:              usageRepo,
		RateLimiterService: rateLimiterService,
		HealthCheckers:     hcSlice,
	}

	server := httpserver.NewServer(serverConfig, cfg.Admin.JWTSecret, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopMaintenance()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
