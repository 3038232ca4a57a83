package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/victor-wayward/ironode/internal/core/port"
	"github.com/victor-wayward/ironode/internal/infra/config"
	"github.com/victor-wayward/ironode/internal/transport/http/handlers"
	"github.com/victor-wayward/ironode/internal/transport/http/middleware"
	"github.com/victor-wayward/ironode/internal/transport/http/oauth"
	"github.com/victor-wayward/ironode/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Reset        *usecase.ResetService
	Profile      *usecase.ProfileService
	Contact      *usecase.ContactService
	Tokens       *usecase.TokenService
	Validator    *usecase.AccountValidator
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Accounts    port.AccountRepository
	Sessions    *middleware.SessionManager
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS([]string{deps.Config.Site.URL}))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	requireSession := deps.Sessions.RequireAccount()
	optionalSession := deps.Sessions.OptionalAccount()

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Sessions, deps.Logger)
	registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration)
	tokenHandler := handlers.NewTokenHandler(deps.Accounts, deps.Services.Tokens, deps.Services.Registration, deps.Services.Profile, deps.Logger)
	resetHandler := handlers.NewResetHandler(deps.Accounts, deps.Services.Tokens, deps.Services.Reset)
	profileHandler := handlers.NewProfileHandler(deps.Services.Profile)
	contactHandler := handlers.NewContactHandler(deps.Services.Contact)
	validationHandler := handlers.NewValidationHandler(deps.Services.Validator)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/login", append(limitBy(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts), authHandler.Login)...)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", requireSession, authHandler.Me)

		accountGroup := api.Group("/account")
		accountGroup.POST("/register", append(limitBy(deps, "register_ip", deps.Config.RateLimit.RegisterMaxAttempts), registrationHandler.Register)...)
		accountGroup.GET("/token/:username/:token", tokenHandler.Resolve)

		resetGroup := api.Group("/password")
		resetGroup.POST("/reset", append(limitBy(deps, "password_reset_ip", deps.Config.RateLimit.ResetMaxAttempts), resetHandler.Request)...)
		resetGroup.POST("/reset/complete", resetHandler.CompletePassword)

		profileGroup := api.Group("/profile")
		profileGroup.Use(requireSession)
		profileGroup.PUT("/account", profileHandler.UpdateAccount)
		profileGroup.PUT("/password", profileHandler.UpdatePassword)
		profileGroup.PUT("/names", profileHandler.UpdateProfile)
		profileGroup.PUT("/address", profileHandler.UpdateAddress)
		profileGroup.PUT("/avatar", profileHandler.UpdateAvatar)

		api.POST("/contact", append(limitBy(deps, "contact_ip", deps.Config.RateLimit.ContactMaxAttempts), contactHandler.Submit)...)

		api.POST("/validate", optionalSession, validationHandler.Check)
	}

	return r
}

// RegisterOAuth binds the consent flow endpoints when providers are
// configured.
func RegisterOAuth(r *gin.Engine, handler *oauth.Handler) {
	group := r.Group("/auth/:provider")
	group.GET("", handler.Redirect)
	group.GET("/callback", handler.Callback)
}

func limitBy(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}
	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
