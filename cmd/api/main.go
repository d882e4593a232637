// Package main is the entrypoint for the QuickAI API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quickai/quickai/internal/cache"
	"github.com/quickai/quickai/internal/config"
	"github.com/quickai/quickai/internal/document"
	"github.com/quickai/quickai/internal/handler"
	"github.com/quickai/quickai/internal/httpclient"
	"github.com/quickai/quickai/internal/identity"
	"github.com/quickai/quickai/internal/imaging"
	"github.com/quickai/quickai/internal/llm"
	"github.com/quickai/quickai/internal/metrics"
	"github.com/quickai/quickai/internal/middleware"
	"github.com/quickai/quickai/internal/repository"
	"github.com/quickai/quickai/internal/server"
	"github.com/quickai/quickai/internal/service"
	"github.com/quickai/quickai/internal/storage"
	"github.com/quickai/quickai/internal/usage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := server.SignalContext(context.Background())
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize creation store
	store, err := repository.Open(ctx, repository.StoreConfig{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		Pool: repository.PoolOptions{
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnIdleTime: cfg.DBMaxConnIdleTime,
			ConnectTimeout:  cfg.DBConnectTimeout,
		},
	})
	if err != nil {
		logger.Error(
			"failed to open creation store",
			slog.String("driver", cfg.StoreDriver),
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return errors.New("creation store unavailable")
	}
	logger.Info("connected to creation store", slog.String("driver", cfg.StoreDriver))

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		store.Close()
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return errors.New("redis unavailable")
	}
	logger.Info("connected to Redis")

	registry := prometheus.NewRegistry()
	metricsRecorder := metrics.NewPrometheus(registry)

	app, err := buildApp(ctx, cfg, logger, store, cacheClient, metricsRecorder)
	if err != nil {
		store.Close()
		_ = cacheClient.Close()
		return err
	}

	// Setup router
	r := setupRouter(app, cfg, logger)

	// Create and run server
	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("creation store", func(context.Context) error {
		store.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"usage_backend", cfg.UsageBackend,
		"storage_provider", cfg.StorageProvider,
		"free_usage_limit", cfg.FreeUsageLimit,
	)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// app holds the wired handlers and the middleware dependencies.
type app struct {
	root     *handler.Handler
	health   *handler.HealthHandler
	ai       *handler.AIHandler
	user     *handler.UserHandler
	verifier middleware.SessionVerifier
	resolver middleware.CallerResolver
	cache    *cache.Cache
	metrics  *metrics.PrometheusRecorder
}

// buildApp wires the identity provider, external capabilities and services.
func buildApp(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	store repository.CreationStore,
	cacheClient *cache.Cache,
	metricsRecorder *metrics.PrometheusRecorder,
) (*app, error) {
	httpClient := httpclient.New(cfg.ExternalCallTimeout)

	verifier, err := identity.NewClerkVerifier(cfg.ClerkIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create session verifier: %w", err)
	}

	identities, err := newIdentityStore(cfg, httpClient, cacheClient)
	if err != nil {
		return nil, err
	}

	premiumOnly, err := cfg.GetPremiumOnlyFeatures()
	if err != nil {
		return nil, err
	}

	text, err := llm.New(llm.Config{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.LLMModel,
	}, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create text generator: %w", err)
	}

	images, err := imaging.NewClipdrop(cfg.ClipdropAPIURL, cfg.ClipdropAPIKey, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create image generator: %w", err)
	}

	objects, err := storage.New(ctx, storage.Config{
		Provider: cfg.StorageProvider,
		Cloudinary: storage.CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
		},
		S3: storage.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			UsePathStyle:  cfg.S3UsePathStyle,
			PublicBaseURL: cfg.S3PublicBaseURL,
		},
	}, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage: %w", err)
	}

	generation := service.NewGenerationService(service.GenerationDeps{
		Gate:      usage.NewGate(cfg.FreeUsageLimit, premiumOnly...),
		Recorder:  usage.NewRecorder(identities, store),
		Text:      text,
		Images:    images,
		Storage:   objects,
		Extractor: document.NewPDFExtractor(),
		Logger:    logger,
		Metrics:   metricsRecorder,
	}, service.GenerationConfig{
		ExternalCallTimeout: cfg.ExternalCallTimeout,
		MaxResumeSize:       cfg.MaxResumeSize,
		MaxImageSize:        cfg.MaxImageSize,
	})

	return &app{
		root:     handler.New(),
		health:   handler.NewHealthHandler(store, cacheClient),
		ai:       handler.NewAIHandler(generation, logger, cfg.MaxImageSize, cfg.MaxResumeSize),
		user:     handler.NewUserHandler(service.NewCreationService(store, logger), logger),
		verifier: verifier,
		resolver: usage.NewResolver(identities, logger, metricsRecorder),
		cache:    cacheClient,
		metrics:  metricsRecorder,
	}, nil
}

// newIdentityStore selects where free usage counters live. Plans always come
// from Clerk; the redis backend only moves the counter.
func newIdentityStore(cfg *config.Config, client *http.Client, cacheClient *cache.Cache) (identity.Store, error) {
	clerk, err := identity.NewClerkStore(cfg.ClerkAPIURL, cfg.ClerkSecretKey, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity store: %w", err)
	}

	switch cfg.UsageBackend {
	case "redis":
		return identity.NewRedisStore(clerk, cacheClient), nil
	default:
		return clerk, nil
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(a *app, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.Recoverer(logger, cfg.IsDevelopment()))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))

	// Health and info endpoints (no auth required)
	r.Get("/healthz", a.health.Healthz)
	r.Get("/readyz", a.health.Readyz)
	r.Handle("/metrics", a.metrics.Handler())
	r.Get("/", a.root.Root)

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:      logger,
		Cache:       a.cache,
		UserEnabled: cfg.RateLimitEnabled,
		UserRPM:     cfg.RateLimitRPM,
		UserBurst:   cfg.RateLimitBurst,
		IPEnabled:   cfg.RateLimitEnabled,
		IPRPS:       cfg.RateLimitIPRPS,
		IPBurst:     cfg.RateLimitIPBurst,
	}

	authCfg := middleware.AuthConfig{
		Logger:   logger,
		Verifier: a.verifier,
		Resolver: a.resolver,
	}

	r.Route("/api", func(r chi.Router) {
		// IP limiting runs first so unauthenticated floods never reach token verification
		r.Use(middleware.RateLimitIP(rateLimitCfg))
		r.Use(middleware.Auth(authCfg))

		r.Route("/ai", func(r chi.Router) {
			r.Use(middleware.RateLimitUser(rateLimitCfg))

			r.With(middleware.MaxBodySize(cfg.MaxRequestBodySize)).Group(func(r chi.Router) {
				r.Post("/generate-article", a.ai.GenerateArticle)
				r.Post("/generate-blog-title", a.ai.GenerateBlogTitle)
				r.Post("/generate-image", a.ai.GenerateImage)
			})

			// Upload routes bound their own bodies from the file limits
			r.Post("/remove-image-background", a.ai.RemoveBackground)
			r.Post("/remove-image-object", a.ai.RemoveObject)
			r.Post("/resume-review", a.ai.ReviewResume)
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

			r.Get("/get-user-creations", a.user.GetUserCreations)
			r.Get("/get-published-creations", a.user.GetPublishedCreations)
			r.Post("/toggle-like-creation", a.user.ToggleLikeCreation)
		})
	})

	// 404 and 405 handlers
	r.NotFound(a.root.NotFound)
	r.MethodNotAllowed(a.root.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
