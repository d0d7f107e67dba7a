package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wegift/auth-service/internal/client"
	"github.com/wegift/auth-service/internal/config"
	"github.com/wegift/auth-service/internal/handler"
	"github.com/wegift/auth-service/internal/repository"
	"github.com/wegift/auth-service/internal/service"
	"github.com/wegift/auth-service/internal/utils"
	"github.com/wegift/auth-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 5 * time.Second
	serviceName     = "wegift-auth-service"
)

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

type options struct {
	repos    *repository.Repositories
	profiles service.ProfileClient
	mailer   service.Mailer
	now      func() time.Time
}

// Option replaces a collaborator built from configuration
type Option func(*options)

func WithRepositories(repos *repository.Repositories) Option {
	return func(o *options) { o.repos = repos }
}

func WithProfileClient(profiles service.ProfileClient) Option {
	return func(o *options) { o.profiles = profiles }
}

func WithMailer(mailer service.Mailer) Option {
	return func(o *options) { o.mailer = mailer }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func NewApp(infra Infrastructure, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	logger := infra.Logger()

	if err := handler.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	if o.repos == nil {
		o.repos = repository.NewRepositories(infra.Postgres())
	}

	httpClient := client.NewHTTPClient(cfg.Services.Timeout.Duration)
	if o.profiles == nil {
		o.profiles = client.NewProfileClient(cfg.Services.UserServiceURL, cfg.Services.InternalToken, httpClient)
	}
	if o.mailer == nil {
		if cfg.Services.NotificationServiceURL != "" {
			o.mailer = client.NewNotificationMailer(cfg.Services.NotificationServiceURL, cfg.Services.InternalToken, httpClient)
		} else {
			logger.Warn("notification service not configured, emails will only be logged")
			o.mailer = client.NewLogMailer(logger)
		}
	}

	metrics, err := service.NewAuthMetrics(infra.MeterProvider().Meter(serviceName))
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.ActivationTokenExpiry.Duration,
		utils.WithClock(o.now),
	)

	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	authManager := service.NewAuthManager(service.Dependencies{
		Repositories: o.repos,
		JWT:          jwtManager,
		Revocations:  service.NewSessionRevocationList(infra.Redis()),
		Profiles:     o.profiles,
		Mailer:       o.mailer,
		Metrics:      metrics,
		Logger:       logger,
	}, service.AuthConfig{
		BCryptCost:            cfg.Security.BCryptCost,
		RefreshHashCost:       cfg.Session.RefreshHashCost,
		RefreshTTL:            cfg.Session.RefreshTokenExpiry.Duration,
		RememberTTL:           cfg.Session.RememberMeExpiry.Duration,
		ResetTokenTTL:         cfg.Security.ResetTokenExpiry.Duration,
		RevokeSessionsOnReset: cfg.Security.RevokeSessionsOnReset,
		FrontendURL:           cfg.FrontendURL,
	}, service.WithClock(o.now))

	cookies := handler.NewCookieWriter(cfg.Cookie.Domain, cfg.IsProduction())
	authHandler := handler.NewAuthHandler(authManager, authManager, cookies, logger)

	var oauthHandler *handler.OAuthHandler
	if cfg.OAuth.GoogleEnabled() {
		oauthManager := service.NewGoogleOAuth(authManager, o.repos.Identity, service.GoogleConfig(
			cfg.OAuth.GoogleClientID,
			cfg.OAuth.GoogleClientSecret,
			cfg.OAuth.GoogleRedirectURL,
		))
		oauthHandler = handler.NewOAuthHandler(oauthManager, cookies, cfg.FrontendURL, logger)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, routes{
		auth:       authHandler,
		oauth:      oauthHandler,
		authorizer: authManager,
		limiter:    rateLimiter,
		health:     healthChecker,
		metrics:    infra.MetricsHandler(),
		logger:     logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

type routes struct {
	auth       *handler.AuthHandler
	oauth      *handler.OAuthHandler
	authorizer service.AuthService
	limiter    *service.RateLimiter
	health     *HealthChecker
	metrics    http.Handler
	logger     *zap.Logger
}

func setupRoutes(router *gin.Engine, cfg *config.Config, r routes) {
	router.GET("/metrics", observability.PrometheusHandler(r.metrics))
	router.GET("/health", r.health.Handler)

	limit := func(scope string) gin.HandlerFunc {
		return handler.RateLimitMiddleware(r.limiter, handler.RateLimitRule{
			Scope:  scope,
			Limit:  cfg.Security.RateLimitRequests,
			Window: cfg.Security.RateLimitWindow.Duration,
		}, handler.IPBasedKey, r.logger)
	}

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", limit("register"), r.auth.Register)
			auth.GET("/activate", r.auth.Activate)
			auth.POST("/activate/resend", limit("activate-resend"), r.auth.ResendActivation)
			auth.POST("/login", limit("login"), r.auth.Login)
			auth.POST("/refresh", r.auth.Refresh)
			auth.POST("/logout", r.auth.Logout)
			auth.POST("/forgot-password", limit("forgot-password"), r.auth.ForgotPassword)
			auth.POST("/reset-password", limit("reset-password"), r.auth.ResetPassword)
			auth.GET("/me", handler.AuthMiddleware(r.authorizer, r.logger), r.auth.GetMe)

			if r.oauth != nil {
				auth.GET("/oauth/google", r.oauth.Start)
				auth.GET("/oauth/google/callback", r.oauth.Callback)
			}
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("addr", a.server.Addr),
			zap.String("env", a.config.Env),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Drain requests before closing the pools they use
	serverErr := a.server.Shutdown(ctx)
	infraErr := a.infra.Shutdown(ctx)

	if err := errors.Join(serverErr, infraErr); err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
