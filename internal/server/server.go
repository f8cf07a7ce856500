package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Jaden-Nix/swarmverify/config"
	core "github.com/Jaden-Nix/swarmverify/internal/resolver/core"
	"github.com/Jaden-Nix/swarmverify/internal/resolver/telemetry"
	"github.com/Jaden-Nix/swarmverify/internal/store"
	"github.com/Jaden-Nix/swarmverify/tools/websearch/ddg"
)

// Run wires the full service and blocks serving HTTP: store, orchestrator,
// telemetry, auth, rate limiting, and the due-market scheduler.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Cookie"},
		AllowCredentials: true,
	}))

	_ = Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0)

	ctx := context.Background()
	st, err := store.New(ctx, cfg.Storage.Postgres)
	if err != nil {
		return err
	}

	tele := telemetry.NewTelemetry(cfg.Telemetry)
	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(tele.Registry(), promhttp.HandlerOpts{})))

	search := ddg.New(cfg.Search.Endpoint, cfg.Search.Timeout)
	orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	orch, err := core.NewOrchestrator(cfg, orchLogger, tele, search)
	if err != nil {
		return err
	}

	if cfg.Server.JWTSecret == "" {
		return fmt.Errorf("jwt secret not configured (server.jwt_secret)")
	}
	secret := []byte(cfg.Server.JWTSecret)

	if cfg.Storage.Redis.Host == "" || cfg.Storage.Redis.Port == "" {
		return fmt.Errorf("redis not configured (storage.redis.host/port)")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr(),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
	}
	limiter := NewRateLimiter(rdb, cfg.Server.RateLimit, cfg.Server.RateWindow)

	api := e.Group("/api")
	api.Use(withAuth(secret))
	api.Use(limiter.Middleware())

	rh := &ResolutionsHandler{Store: st, Orch: orch}
	rh.Register(api)

	oh := &OpsHandler{Telemetry: tele}
	oh.Register(api.Group("/ops"))

	sched := &Scheduler{
		Store:    st,
		Orch:     orch,
		Rdb:      rdb,
		Schedule: cfg.Server.SweepSchedule,
		Logger:   log.New(log.Writer(), "[SCHED] ", log.LstdFlags),
		Stop:     make(chan struct{}),
	}
	sched.Start()

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":10010"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
