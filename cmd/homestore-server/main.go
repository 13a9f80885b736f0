// Package main is the entry point for the HOME store web server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/home-store/internal/auth"
	"github.com/prn-tf/home-store/internal/cache/memory"
	rediscache "github.com/prn-tf/home-store/internal/cache/redis"
	"github.com/prn-tf/home-store/internal/config"
	"github.com/prn-tf/home-store/internal/events"
	"github.com/prn-tf/home-store/internal/handler"
	"github.com/prn-tf/home-store/internal/lock"
	"github.com/prn-tf/home-store/internal/metrics"
	"github.com/prn-tf/home-store/internal/pkg/awsutil"
	"github.com/prn-tf/home-store/internal/repository"
	"github.com/prn-tf/home-store/internal/repository/dbfactory"
	"github.com/prn-tf/home-store/internal/service"
	"github.com/prn-tf/home-store/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log.Logger = logger

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Starting HOME store server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
	logger.Info().Msg("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	// Database
	factory := dbfactory.NewFactory(cfg.Database, logger)
	db, err := factory.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Database.Close()

	if err := db.Database.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Redis (optional)
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = rediscache.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		logger.Info().Str("addr", cfg.Redis.Addr()).Msg("Connected to Redis")
	}

	// Order cache
	var cache repository.Cache
	switch cfg.Cache.Backend {
	case "redis":
		cache = rediscache.NewCache(redisClient)
	default:
		memCache := memory.NewCache(time.Minute)
		defer memCache.Stop()
		cache = memCache
	}

	// Locks
	var locker lock.Locker
	if redisClient != nil {
		locker = lock.NewRedisLocker(redisClient)
	} else {
		memLocker := lock.NewMemoryLocker()
		defer memLocker.Stop()
		locker = memLocker
	}

	// Avatar storage
	media, err := newMediaBackend(ctx, cfg.Media, logger)
	if err != nil {
		return err
	}

	// Account events
	publisher, err := newPublisher(ctx, cfg.Events, logger)
	if err != nil {
		return err
	}

	// Metrics
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	// Services
	userCfg := service.UserServiceConfig{
		BcryptCost:        cfg.Auth.BcryptCost,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		MaxImageSize:      cfg.Media.MaxUploadSize,
	}
	userService := service.NewUserService(db.Repos.User, media, publisher, userCfg, logger)
	sessionService := service.NewSessionService(db.Repos.Session, cfg.Session.Lifetime, logger)
	cartService := service.NewCartService(db.Repos.Cart, db.Repos.Product, locker, m, publisher, logger)
	orderService := service.NewOrderService(db.Repos.Order, cache, cfg.Cache.OrdersTTL, m, logger)

	janitor := service.NewSessionJanitor(sessionService, locker, m, cfg.Session.PurgeInterval, logger)
	janitor.Start()
	defer janitor.Stop()

	// HTTP
	renderer, err := handler.NewRenderer(userService.AvatarURL, logger)
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	authCfg := auth.DefaultConfig()
	authCfg.CookieName = cfg.Session.CookieName
	authCfg.SecureCookie = cfg.Session.SecureCookie

	var limiter *handler.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = handler.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize, 10*time.Minute, renderer)
		defer limiter.Stop()
	}

	routerCfg := handler.RouterConfig{
		AccountHandler: handler.NewAccountHandler(handler.AccountConfig{
			UserService:    userService,
			SessionService: sessionService,
			CartService:    cartService,
			OrderService:   orderService,
			Publisher:      publisher,
			Metrics:        m,
			Renderer:       renderer,
			Limiter:        limiter,
			Auth:           authCfg,
			OrdersPerPage:  cfg.Pagination.OrdersPerPage,
			MaxUploadSize:  cfg.Media.MaxUploadSize,
			Logger:         logger,
		}),
		StoreHandler:   handler.NewStoreHandler(sessionService, cartService, renderer, authCfg, logger),
		AuthMiddleware: auth.Middleware(sessionService, userService, authCfg, logger),
		Health:         db.Database,
		Metrics:        m,
		Logger:         logger,
	}
	if fsMedia, ok := media.(*storage.FilesystemBackend); ok {
		routerCfg.MediaDir = fsMedia.Root()
		routerCfg.MediaPrefix = cfg.Media.URLPrefix
	}
	router := handler.NewRouter(routerCfg)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", metricsServer.Addr).Str("path", cfg.Metrics.Path).Msg("Metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("database", factory.Driver()).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func newMediaBackend(ctx context.Context, cfg config.MediaConfig, logger zerolog.Logger) (storage.Backend, error) {
	if cfg.Backend != "s3" {
		backend, err := storage.NewFilesystemBackend(cfg.Dir, cfg.URLPrefix, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize media directory: %w", err)
		}
		return backend, nil
	}

	awsCfg, err := awsutil.LoadConfig(ctx, awsutil.Options{
		Region:          cfg.S3.Region,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}

	s3Cfg := storage.S3Config{
		Bucket:       cfg.S3.Bucket,
		PublicURL:    cfg.S3.PublicURL,
		Endpoint:     cfg.S3.Endpoint,
		Region:       cfg.S3.Region,
		UsePathStyle: cfg.S3.UsePathStyle,
	}
	return storage.NewS3Backend(storage.NewS3Client(awsCfg, s3Cfg), s3Cfg, logger), nil
}

func newPublisher(ctx context.Context, cfg config.EventsConfig, logger zerolog.Logger) (events.Publisher, error) {
	if cfg.Backend != "sns" {
		return events.NewLogPublisher(logger), nil
	}

	awsCfg, err := awsutil.LoadConfig(ctx, awsutil.Options{Region: cfg.Region})
	if err != nil {
		return nil, err
	}
	return events.NewSNSPublisher(events.NewSNSClient(awsCfg, cfg.Endpoint), cfg.SNSTopicARN), nil
}

func newLogger(cfg config.LoggingConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Logger{}, err
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
	}

	if cfg.Format == "console" {
		timeFormat := cfg.TimeFormat
		if timeFormat == "" {
			timeFormat = time.RFC3339
		}
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}
