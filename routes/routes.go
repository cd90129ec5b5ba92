package routes

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"postboard/auth"
	"postboard/config"
	"postboard/handlers"
	"postboard/middleware"
	"postboard/services"
	"postboard/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Dependencies struct {
	Config   config.Config
	Logger   *slog.Logger
	Tokens   *auth.TokenService
	Posts    *services.PostService
	Accounts *services.AccountService
	Limiter  *middleware.IPRateLimiter
	Hub      *websocket.Hub              // optional
	Ping     func(context.Context) error // optional, backs /health
}

func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	dev := deps.Config.IsDevelopment()

	router.Use(
		middleware.Recovery(deps.Logger, dev),
		middleware.RequestLogger(deps.Logger),
		cors.New(corsConfig(deps.Config.AllowedOrigins())),
		middleware.ErrorHandler(deps.Logger, dev),
	)

	router.GET("/health", func(c *gin.Context) {
		if deps.Ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ping(ctx); err != nil {
				deps.Logger.Warn("health check failed", "error", err)
				c.String(http.StatusServiceUnavailable, "Unavailable")
				return
			}
		}
		c.String(http.StatusOK, "OK")
	})

	if deps.Hub != nil {
		router.GET("/ws", deps.Hub.ServeWS(deps.Tokens))
	}

	demo := handlers.NewDemoHandler(deps.Logger)
	accounts := handlers.NewAccountHandler(deps.Accounts)
	posts := handlers.NewPostHandler(deps.Posts, deps.Logger)
	requireAuth := middleware.RequireAuth(deps.Tokens)

	api := router.Group("/api")
	if deps.Limiter != nil {
		api.Use(middleware.RateLimit(deps.Limiter))
	}

	api.GET("/hello", demo.Hello)
	api.POST("/login", demo.Login)
	api.POST("/contact", demo.Contact)
	api.POST("/register", accounts.Register)
	api.POST("/token", accounts.Token)

	api.GET("/posts", posts.List)
	api.GET("/posts/:id", posts.Get)
	api.POST("/posts", requireAuth, posts.Create)
	api.PUT("/posts/:id", requireAuth, posts.Update)
	api.DELETE("/posts/:id", requireAuth, posts.Delete)

	router.NoRoute(middleware.NotFound(deps.Logger))

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
