package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sudo-init-do/staybook/internal/admin"
	"github.com/sudo-init-do/staybook/internal/alerts"
	"github.com/sudo-init-do/staybook/internal/app"
	"github.com/sudo-init-do/staybook/internal/auth"
	"github.com/sudo-init-do/staybook/internal/config"
	"github.com/sudo-init-do/staybook/internal/domain"
	"github.com/sudo-init-do/staybook/internal/gateway/chapa"
	"github.com/sudo-init-do/staybook/internal/httpx"
	"github.com/sudo-init-do/staybook/internal/lock"
	"github.com/sudo-init-do/staybook/internal/logger"
	"github.com/sudo-init-do/staybook/internal/marketplace"
	mware "github.com/sudo-init-do/staybook/internal/middleware"
	"github.com/sudo-init-do/staybook/internal/payment"
	"github.com/sudo-init-do/staybook/internal/realtime"
	"github.com/sudo-init-do/staybook/internal/store"
	"github.com/sudo-init-do/staybook/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init("staybook-api", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer closeStore()

	rdb := app.RedisClient(cfg.Redis)
	defer rdb.Close()

	enqueuer := alerts.NewEnqueuer(asynq.NewClient(app.AsynqRedis(cfg.Redis)), cfg.Queue.MaxRetry)
	defer enqueuer.Close()

	hub := realtime.NewHub()
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	payments := payment.NewService(st,
		chapa.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.SecretKey, cfg.Gateway.Timeout),
		enqueuer,
		payment.Config{
			Currency:    cfg.Gateway.Currency,
			CallbackURL: cfg.Gateway.CallbackURL,
			ReturnURL:   cfg.Gateway.ReturnURL,
			Timeout:     cfg.Gateway.Timeout,
		},
		payment.WithLocker(lock.NewRedisLocker(rdb, cfg.Gateway.InitiateLockTTL)),
		payment.WithPublisher(hub),
	)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpx.NewValidator()

	// Basic middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(logger.RequestLogger())

	// Health and readiness
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", ready(st, rdb))

	jwt := mware.JWTMiddleware(tokens)

	// Auth routes with per-IP rate limiting to protect signup/login from abuse
	authPublic := e.Group("/auth")
	authPublic.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authed := e.Group("/auth", jwt)
	auth.NewHandler(st, tokens, cfg.Auth.BootstrapSecret).Register(authPublic, authed)

	public := e.Group("")
	api := e.Group("", jwt)

	market := marketplace.NewHandler(marketplace.NewService(st))
	market.Register(public, api)
	market.RegisterHost(e.Group("/host", jwt, mware.RequireRoles(domain.RoleHost, domain.RoleAdmin)))

	user.NewHandler(st).Register(public)
	payment.NewHandler(payments, st).Register(public, api)
	realtime.NewHandler(hub, st).Register(api)

	// Admin routes
	adminGroup := e.Group("/admin", jwt, mware.AdminGuard)
	admin.NewHandler(admin.NewService(st, hub)).Register(adminGroup)

	go func() {
		addr := ":" + strconv.Itoa(cfg.Server.Port)
		log.Info().Str("addr", addr).Str("store", cfg.Server.StoreDriver).Msg("http server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

func ready(st store.Store, rdb *redis.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "redis unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	}
}
