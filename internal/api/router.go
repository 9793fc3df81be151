package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/rosterhq/roster/internal/app"
	"github.com/rosterhq/roster/internal/auth"
	"github.com/rosterhq/roster/internal/handlers"
	"github.com/rosterhq/roster/internal/middleware"
	"github.com/rosterhq/roster/internal/services"
)

// Dependencies bundles the collaborators the router needs.
type Dependencies struct {
	DB            *gorm.DB
	Config        *app.Config
	JoinService   *services.JoinService
	TokenService  *services.TokenService
	JWTService    *auth.JWTService
	Authenticator handlers.Authenticator
	RateStore     middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.JoinService == nil {
		return nil, fmt.Errorf("join service must be provided")
	}
	if deps.TokenService == nil {
		return nil, fmt.Errorf("token service must be provided")
	}
	if deps.JWTService == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	r.NoRoute(middleware.NotFoundHandler)

	// Health endpoint (public)
	r.GET("/health", handlers.Health(deps.DB))

	if deps.Config.Monitoring.Prometheus.Enabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	joinHandler := handlers.NewJoinHandler(deps.JoinService, deps.JWTService)

	// Public join route, rate limited per client to blunt token guessing.
	join := r.Group("/api")
	join.Use(middleware.RateLimit(deps.RateStore, deps.Config.Server.JoinRateLimit, time.Minute))
	join.POST("/join", joinHandler.Redeem)

	if deps.Authenticator != nil {
		authHandler := handlers.NewAuthHandler(deps.Authenticator, deps.JWTService)
		r.POST("/api/auth/login", authHandler.Login)
	}

	// Protected admin routes
	tokenHandler := handlers.NewTokenHandler(deps.TokenService)

	admin := r.Group("/api")
	admin.Use(middleware.Auth(deps.JWTService))

	tokens := admin.Group("/join-tokens")
	{
		tokens.POST("", tokenHandler.Create)
		tokens.GET("", tokenHandler.List)
		tokens.GET("/:id", tokenHandler.Get)
		tokens.DELETE("/:id", tokenHandler.Disable)
	}

	return r, nil
}
