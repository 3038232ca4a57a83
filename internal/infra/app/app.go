package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/victor-wayward/ironode/internal/core/port"
	"github.com/victor-wayward/ironode/internal/infra/captcha"
	"github.com/victor-wayward/ironode/internal/infra/config"
	"github.com/victor-wayward/ironode/internal/infra/database"
	"github.com/victor-wayward/ironode/internal/infra/email"
	kafkainfra "github.com/victor-wayward/ironode/internal/infra/kafka"
	"github.com/victor-wayward/ironode/internal/infra/logger"
	redisinfra "github.com/victor-wayward/ironode/internal/infra/redis"
	postgresrepo "github.com/victor-wayward/ironode/internal/repository/postgres"
	redisrepo "github.com/victor-wayward/ironode/internal/repository/redis"
	"github.com/victor-wayward/ironode/internal/transport/http/middleware"
	"github.com/victor-wayward/ironode/internal/transport/http/oauth"
	"github.com/victor-wayward/ironode/internal/transport/http/routes"
	"github.com/victor-wayward/ironode/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	var captchaVerifier port.CaptchaVerifier
	if cfg.Captcha.Enabled {
		captchaVerifier = captcha.NewVerifier(cfg.Captcha.Secret, log)
	}

	mailer := email.NewLoggingMailer(cfg.Site.URL, log)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), "", rateLimitWindow*2)
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	validator := usecase.NewAccountValidator(repos.Accounts)
	tokenService := usecase.NewTokenService(repos.Accounts, log)
	identityService := usecase.NewIdentityService(repos.Accounts, log)
	authService := usecase.NewAuthService(repos.Accounts, eventPublisher, log)
	registrationService := usecase.NewRegistrationService(cfg, repos.Accounts, validator, tokenService, identityService, mailer, captchaVerifier, eventPublisher, log)
	resetService := usecase.NewResetService(cfg, repos.Accounts, validator, tokenService, mailer, eventPublisher, log)
	profileService := usecase.NewProfileService(cfg, repos.Accounts, validator, tokenService, mailer, eventPublisher, log)
	contactService := usecase.NewContactService(cfg, repos.Messages, validator, captchaVerifier, log)

	sessions := middleware.NewSessionManager(cfg.Session, repos.Accounts, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Accounts:    repos.Accounts,
		Sessions:    sessions,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Reset:        resetService,
			Profile:      profileService,
			Contact:      contactService,
			Tokens:       tokenService,
			Validator:    validator,
		},
	})

	providers := oauth.NewProviders(cfg.Social, cfg.Site.URL)
	if len(providers) > 0 {
		routes.RegisterOAuth(engine, oauth.NewHandler(providers, identityService, sessions, log))
	}

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting account API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
