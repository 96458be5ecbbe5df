package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nestorcamelo12/hospitales/internal/config"
	"github.com/nestorcamelo12/hospitales/internal/domain/directory"
	"github.com/nestorcamelo12/hospitales/internal/domain/emergency"
	"github.com/nestorcamelo12/hospitales/internal/domain/medicalrecord"
	"github.com/nestorcamelo12/hospitales/internal/domain/notification"
	"github.com/nestorcamelo12/hospitales/internal/domain/reports"
	"github.com/nestorcamelo12/hospitales/internal/domain/vitals"
	"github.com/nestorcamelo12/hospitales/internal/platform/apierr"
	"github.com/nestorcamelo12/hospitales/internal/platform/auth"
	"github.com/nestorcamelo12/hospitales/internal/platform/db"
	"github.com/nestorcamelo12/hospitales/internal/platform/metrics"
	"github.com/nestorcamelo12/hospitales/internal/platform/middleware"
)

const version = "1.0.0"

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.JWTSecret == "" {
		logger.Warn().Msg("JWT_SECRET is empty, only unauthenticated development requests will succeed")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	rdb := connectRedis(ctx, cfg.RedisURL, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	e := newEcho(cfg, logger)
	e.GET("/health/db", db.HealthHandler(pool))
	registerDomains(newAPIGroup(e, cfg, logger), pool, rdb, cfg, logger)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// connectRedis returns nil when live notifications are not configured or
// the server cannot be reached. Notifications are still stored either way.
func connectRedis(ctx context.Context, url string, logger zerolog.Logger) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid REDIS_URL, live notifications disabled")
		return nil
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, live notifications disabled")
		client.Close()
		return nil
	}
	logger.Info().Msg("connected to redis")
	return client
}

// newEcho builds the server with its global middleware and public routes.
func newEcho(cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apierr.HTTPErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.Metrics())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit("1M"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	return e
}

// newAPIGroup mounts /api behind authentication, auditing, a request
// deadline and per-user rate limiting.
func newAPIGroup(e *echo.Echo, cfg *config.Config, logger zerolog.Logger) *echo.Group {
	api := e.Group("/api")

	jwtCfg := auth.JWTConfig{
		Secret:  []byte(cfg.JWTSecret),
		Issuer:  cfg.JWTIssuer,
		Skipper: auth.AuthSkipper,
	}
	if cfg.IsDev() {
		api.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		api.Use(auth.JWTMiddleware(jwtCfg))
	}

	api.Use(middleware.Audit(logger))
	api.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	api.Use(middleware.RateLimit(rateLimitConfig(cfg)))
	return api
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
		rl.BurstSize = cfg.RateLimitBurst
	}
	return rl
}

func registerDomains(api *echo.Group, pool *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, logger zerolog.Logger) {
	dirRepo := directory.NewRepoPG(pool)
	notifRepo := notification.NewRepoPG(pool)
	vitalRepo := vitals.NewRepoPG(pool)
	emergencyRepo := emergency.NewRepoPG(pool)

	dispatcher := notification.NewDispatcher(notifRepo, dirRepo, logger.With().Str("component", "dispatcher").Logger())
	if rdb != nil {
		dispatcher.SetPublisher(notification.NewRedisPublisher(rdb, cfg.NotifyChannelPrefix))
	}

	vitalSvc := vitals.NewService(vitalRepo, dirRepo, dispatcher, logger.With().Str("component", "vitals").Logger())
	emergencySvc := emergency.NewService(emergencyRepo, vitalRepo, dirRepo, dispatcher, db.NewTxRunner(pool), logger.With().Str("component", "emergency").Logger())
	reportSvc := reports.NewService(reports.NewRepoPG(pool))
	recordSvc := medicalrecord.NewService(medicalrecord.NewRepoPG(pool), dirRepo, logger.With().Str("component", "medicalrecord").Logger())

	emergency.NewHandler(emergencySvc).RegisterRoutes(api)
	vitals.NewHandler(vitalSvc).RegisterRoutes(api)
	notification.NewHandler(notification.NewService(notifRepo)).RegisterRoutes(api)
	reports.NewHandler(reportSvc).RegisterRoutes(api)
	medicalrecord.NewHandler(recordSvc).RegisterRoutes(api)
}
