package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sciportfolio/internal/analytics"
	"sciportfolio/internal/caching"
	"sciportfolio/internal/config"
	"sciportfolio/internal/handlers"
	"sciportfolio/internal/jobs/background"
	"sciportfolio/internal/logging"
	"sciportfolio/internal/middleware"
	"sciportfolio/internal/repositories"
	"sciportfolio/internal/services"
	"sciportfolio/pkg/database"
)

const version = "1.0.0"

func main() {
	root := &cobra.Command{
		Use:           "sciportfolio",
		Short:         "Real-estate portfolio API",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(serveCommand(), migrateCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(component string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewLogger(logging.Config{Component: component, Level: cfg.LogLevel})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func openPool(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	return database.NewPool(ctx, database.PoolConfig{
		ConnString:      cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}, logger)
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup("migrate")
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer database.ClosePool(pool, logger)

			applied, err := database.Migrate(ctx, pool, logger)
			if err != nil {
				return err
			}
			logger.Info("migrations complete", zap.Int("applied", applied))
			return nil
		},
	}
}

func serveCommand() *cobra.Command {
	var migrateFirst bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup("api")
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger, migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrateFirst bool) error {
	pool, err := openPool(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer database.ClosePool(pool, logger)

	if migrateFirst {
		if _, err := database.Migrate(ctx, pool, logger); err != nil {
			return err
		}
	}

	store := repositories.NewStore(pool)

	cacheSvc := caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	defer cacheSvc.Close()

	storage, err := services.NewMinioStorage(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		// uploads fail until the bucket is reachable; metadata routes still work
		logger.Warn("object storage bucket unavailable", zap.String("bucket", storage.Bucket()), zap.Error(err))
	}

	// Services
	userSvc := services.NewUserService(store)
	api := &handlers.API{
		Users: handlers.NewUserHandlers(userSvc, logger),
		Structures: handlers.NewStructureHandlers(
			services.NewStructureService(store),
			services.NewMembershipService(store),
			logger,
		),
		Properties:  handlers.NewPropertyHandlers(services.NewPropertyService(store), logger),
		Tenants:     handlers.NewTenantHandlers(services.NewTenantService(store), logger),
		Documents:   handlers.NewDocumentHandlers(services.NewDocumentService(store, storage, logger), logger),
		Inspections: handlers.NewInspectionHandlers(services.NewInspectionService(store, cacheSvc, logger), logger),
		Dashboard:   handlers.NewDashboardHandlers(analytics.NewAnalyticsService(store, logger), logger),
	}

	scheduler, err := background.NewJobScheduler(store, background.Intervals{
		ExpiryScan: cfg.Jobs.ExpiryScanInterval,
		ShareSweep: cfg.Jobs.ShareSweepInterval,
	}, logger)
	if err != nil {
		return err
	}

	authMiddleware, release, err := authentication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer release()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(logging.RequestLogger(logger))

	versionMiddleware := middleware.NewVersionMiddleware(cfg.APIVersion)
	e.Use(versionMiddleware.APIVersionResolver())

	// Health endpoints (no auth required)
	health := handlers.NewHealthHandlers(pool, cacheSvc, handlers.PingFunc(storage.EnsureBucket), scheduler, version)
	e.GET("/health", health.HealthCheck)
	e.GET("/health/live", health.LivenessCheck)

	api.RegisterPublicRoutes(e.Group("/public"))

	protected := versionMiddleware.VersionRoute(e, versionMiddleware.GetCurrentVersion())
	protected.Use(
		authMiddleware,
		middleware.ProvisionUser(userSvc, logger),
		middleware.RateLimit(cacheSvc, cfg.RateLimitPerMinute, time.Minute, logger),
	)
	api.RegisterRoutes(protected)

	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			logger.Warn("scheduler shutdown", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.HTTPAddr), zap.String("version", version))
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func authentication(ctx context.Context, cfg *config.Config, logger *zap.Logger) (echo.MiddlewareFunc, func(), error) {
	if cfg.Auth.Mode == config.AuthModeFirebase {
		verifier, err := middleware.NewFirebaseVerifier(ctx, cfg.Auth.FirebaseProjectID, cfg.Auth.FirebaseCredentialsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("init firebase: %w", err)
		}
		return middleware.FirebaseAuth(verifier, logger), func() {}, nil
	}
	return middleware.JWTAuth(middleware.JWTConfig{
		Secret:  cfg.Auth.JWTSecret,
		JWKSURL: cfg.Auth.JWKSURL,
		Issuer:  cfg.Auth.Issuer,
		Logger:  logger,
	})
}
