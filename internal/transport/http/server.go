package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/darryyna/chatline-server/internal/auth"
	"github.com/darryyna/chatline-server/internal/cache"
	"github.com/darryyna/chatline-server/internal/chat"
	"github.com/darryyna/chatline-server/internal/config"
	"github.com/darryyna/chatline-server/internal/limiter"
	"github.com/darryyna/chatline-server/internal/store"
)

// NewServer builds the HTTP server: REST API, websocket endpoint, and
// middleware stack. userCache may be nil when Redis is not configured.
func NewServer(
	cfg *config.Config,
	hub *chat.Hub,
	gate *chat.Gate,
	authService *auth.Service,
	st store.Store,
	userCache *cache.Cache,
	logger *zerolog.Logger,
) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	engine.GET("/health", healthHandler)
	engine.GET("/ws", gin.WrapH(NewWSHandler(hub, gate, cfg.AllowedOrigins, logger)))

	authHandlers := NewAuthHandlers(authService, st, logger)
	userHandlers := NewUserHandlers(st, authService, logger)

	ipLimiter := limiter.NewIPRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst, logger)
	api := engine.Group("/api", ipLimiter.Middleware())

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandlers.Register)
	authGroup.POST("/login", authHandlers.Login)
	authGroup.GET("/profile", AuthMiddleware(authService, logger), authHandlers.Profile)
	authGroup.POST("/forgot-password", authHandlers.ForgotPassword)
	authGroup.POST("/reset-password", authHandlers.ResetPassword)

	users := api.Group("/users", AuthMiddleware(authService, logger))
	users.GET("", userHandlers.ListUsers)
	if userCache != nil {
		users.GET("/:id", userCache.Middleware(), userHandlers.GetUser)
	} else {
		users.GET("/:id", userHandlers.GetUser)
	}

	admin := users.Group("", RequireAdmin(logger))
	admin.POST("", userHandlers.CreateUser)
	admin.PUT("/:id", userHandlers.UpdateUser)
	admin.DELETE("/:id", userHandlers.DeleteUser)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{stdhttp.MethodGet, stdhttp.MethodPost, stdhttp.MethodPut, stdhttp.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(engine)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           corsHandler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	_, _ = fmt.Fprint(c.Writer, "ok")
}
