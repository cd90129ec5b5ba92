package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"postboard/auth"
	"postboard/cache"
	"postboard/config"
	"postboard/database"
	"postboard/events"
	"postboard/logging"
	"postboard/middleware"
	"postboard/routes"
	"postboard/services"
	"postboard/telemetry"
	"postboard/websocket"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("❌ Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.AppEnv, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("🚀 Starting postboard API", "env", cfg.AppEnv, "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("❌ Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("👋 Server stopped gracefully")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	// ===== TRACING =====
	tracing := cfg.OtelEndpoint != ""
	if tracing {
		tp, err := telemetry.InitTracer(ctx, cfg.OtelEndpoint, cfg.AppEnv)
		if err != nil {
			logger.Error("Failed to init tracer", "error", err)
			tracing = false
		} else {
			defer func() { _ = tp.Shutdown(context.Background()) }()
		}
	}

	// ===== MONGODB =====
	store, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Disconnect(); err != nil {
			logger.Warn("MongoDB disconnect failed", "error", err)
		}
	}()

	postRepo := database.NewPostRepository(store.DB)
	userRepo := database.NewUserRepository(store.DB)
	if err := postRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		return err
	}

	var posts database.PostRepository = postRepo

	// ===== REDIS (optional) =====
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if tracing {
			if err := redisotel.InstrumentTracing(rdb); err != nil {
				logger.Warn("Redis instrumentation failed", "error", err)
			}
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, post cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			posts = cache.NewRepository(postRepo, cache.NewRedisPostCache(rdb, cfg.CacheTTL), logger)
			logger.Info("✅ Connected to Redis", "addr", cfg.RedisAddr)
		}
	}

	// ===== EVENTS =====
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	hub := websocket.NewHub(logger, cfg.AllowedOrigins())
	go hub.Run(hubCtx)

	publishers := []events.Publisher{hub}
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL, nats.Name("postboard-api"))
		if err != nil {
			logger.Warn("NATS unreachable, events stay local", "url", cfg.NatsURL, "error", err)
		} else {
			defer nc.Drain()
			publishers = append(publishers, events.NewNatsPublisher(nc))
			logger.Info("✅ Connected to NATS", "url", cfg.NatsURL)
		}
	}

	// ===== SERVICES =====
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	postService := services.NewPostService(posts, events.NewFanout(logger, publishers...), logger)
	accountService := services.NewAccountService(userRepo, tokens)

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit, cfg.RateWindow)
	go sweepLimiter(ctx, limiter, cfg.RateWindow)

	// ===== ROUTER =====
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.SetupRouter(routes.Dependencies{
		Config:   cfg,
		Logger:   logger,
		Tokens:   tokens,
		Posts:    postService,
		Accounts: accountService,
		Limiter:  limiter,
		Hub:      hub,
		Ping:     store.Ping,
	})

	var handler http.Handler = router
	if tracing {
		handler = otelhttp.NewHandler(router, telemetry.ServiceName)
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("🌐 Server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// ===== GRACEFUL SHUTDOWN =====
	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("🛑 Shutting down server...")
	stopHub()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func sweepLimiter(ctx context.Context, limiter *middleware.IPRateLimiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}
