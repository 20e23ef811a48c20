package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/trialdata/trialdata/internal/config"
	"github.com/trialdata/trialdata/internal/domain/cohort"
	"github.com/trialdata/trialdata/internal/domain/concept"
	"github.com/trialdata/trialdata/internal/domain/identity"
	"github.com/trialdata/trialdata/internal/domain/options"
	"github.com/trialdata/trialdata/internal/domain/person"
	"github.com/trialdata/trialdata/internal/domain/provider"
	"github.com/trialdata/trialdata/internal/domain/visit"
	"github.com/trialdata/trialdata/internal/platform/auth"
	"github.com/trialdata/trialdata/internal/platform/db"
	"github.com/trialdata/trialdata/internal/platform/domain"
	"github.com/trialdata/trialdata/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trialdata-server",
		Short: "Tiered clinical-research data API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations to every store",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			stores, cleanup, err := connectStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			for name, pool := range stores.Named() {
				migrator := db.NewMigrator(pool, dir, name)
				count, err := migrator.Up(ctx)
				if err != nil {
					return fmt.Errorf("migrate %s store: %w", name, err)
				}
				fmt.Printf("%s store: applied %d migration(s)\n", name, count)
			}
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status per store",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			stores, cleanup, err := connectStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			for name, pool := range stores.Named() {
				migrator := db.NewMigrator(pool, dir, name)
				statuses, err := migrator.Status(ctx)
				if err != nil {
					return fmt.Errorf("status %s store: %w", name, err)
				}
				fmt.Printf("\n%s store\n", name)
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					status := "pending"
					appliedAt := ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// connectStores opens one pool per store. When identity or clinical share the
// research URL the pools are still separate; routing stays uniform.
func connectStores(ctx context.Context, cfg *config.Config) (*domain.Stores, func(), error) {
	identityPool, err := db.NewPool(ctx, "identity", cfg.IdentityDBURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, fmt.Errorf("identity store: %w", err)
	}
	clinicalPool, err := db.NewPool(ctx, "clinical", cfg.ClinicalDBURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		identityPool.Close()
		return nil, nil, fmt.Errorf("clinical store: %w", err)
	}
	researchPool, err := db.NewPool(ctx, "research", cfg.ResearchDBURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		identityPool.Close()
		clinicalPool.Close()
		return nil, nil, fmt.Errorf("research store: %w", err)
	}

	stores := domain.NewStores(domain.NewRouter(), identityPool, clinicalPool, researchPool)
	cleanup := func() {
		identityPool.Close()
		clinicalPool.Close()
		researchPool.Close()
	}
	return stores, cleanup, nil
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	stores, cleanup, err := connectStores(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to stores")
	}
	defer cleanup()
	logger.Info().Msg("connected to identity, clinical and research stores")

	// Services per store, routed so cross-store joins cannot happen.
	identityRepo := identity.NewRepo(stores.Pool(domain.Identity))
	identitySvc := identity.NewService(identityRepo)

	personSvc := person.NewService(person.NewRepo(stores.Pool(domain.Research)))
	providerSvc := provider.NewService(provider.NewRepo(stores.Pool(domain.Research)))
	visitSvc := visit.NewService(visit.NewRepo(stores.Pool(domain.Research)))
	optionsSvc := options.NewService(
		options.NewRepo(stores.Pool(domain.Research)),
		identitySvc,
		time.Duration(cfg.OptionsCacheTTL)*time.Second,
	)
	cohortSvc := cohort.NewService(cohort.NewRepo(stores.Pool(domain.Identity)), visitSvc)
	conceptSvc := concept.NewService(concept.NewRepo(stores.Pool(domain.Clinical)))

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
		}, identitySvc))
	}

	// Health check pings every store
	e.GET("/health", db.HealthHandler(stores.Named()))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Domain routes
	identity.NewHandler(identitySvc, logger).RegisterRoutes(apiV1)
	person.NewHandler(personSvc, logger).RegisterRoutes(apiV1)
	provider.NewHandler(providerSvc, logger).RegisterRoutes(apiV1)
	visit.NewHandler(visitSvc, logger).RegisterRoutes(apiV1)
	options.NewHandler(optionsSvc, logger).RegisterRoutes(apiV1)
	cohort.NewHandler(cohortSvc, logger).RegisterRoutes(apiV1)
	concept.NewHandler(conceptSvc, logger).RegisterRoutes(apiV1)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
