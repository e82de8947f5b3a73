package main

import (
	"context"
	"encoding/json"
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

	"github.com/healthlens/healthlens/internal/config"
	"github.com/healthlens/healthlens/internal/domain/anomaly"
	"github.com/healthlens/healthlens/internal/domain/baseline"
	"github.com/healthlens/healthlens/internal/domain/circadian"
	"github.com/healthlens/healthlens/internal/domain/feature"
	"github.com/healthlens/healthlens/internal/domain/forecast"
	"github.com/healthlens/healthlens/internal/domain/insight"
	"github.com/healthlens/healthlens/internal/domain/job"
	"github.com/healthlens/healthlens/internal/platform/auth"
	"github.com/healthlens/healthlens/internal/platform/cache"
	"github.com/healthlens/healthlens/internal/platform/db"
	"github.com/healthlens/healthlens/internal/platform/middleware"
	"github.com/healthlens/healthlens/internal/platform/telemetry"
	"github.com/healthlens/healthlens/pkg/health"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "healthlens-server",
		Short: "Personalized health analytics engine",
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
		Short: "Start the analytics API server",
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
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Cache backend: Redis when configured, in-process otherwise.
	var store cache.Store
	if cfg.RedisURL != "" {
		redisStore, err := cache.NewRedisStore(ctx, cfg.RedisURL, "healthlens", 24*time.Hour)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		store = redisStore
		logger.Info().Msg("connected to redis cache")
	} else {
		store = cache.NewMemoryStore()
		logger.Info().Msg("using in-memory cache")
	}

	// Services
	forecastSvc := forecast.NewService(cfg, forecast.NewRepoPG(pool), store, logger)
	anomalySvc := anomaly.NewService(cfg, anomaly.NewRepoPG(pool), store, logger)
	circadianSvc := circadian.NewService(cfg, circadian.NewRepoPG(pool), logger)
	baselineSvc := baseline.NewService(cfg, baseline.NewRepoPG(pool), store, logger)
	insightSvc := insight.NewService(cfg, anomalySvc, circadianSvc, logger)
	jobSvc := job.NewService(cfg, job.NewRepoPG(pool), logger)
	registerJobRunners(jobSvc, forecastSvc, anomalySvc, insightSvc, cfg)

	featureRegistry := feature.NewRegistry()

	// Request tracker for operational telemetry.
	tracker := telemetry.NewTracker(0)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(middleware.BodyLimit("1M", "10M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevMiddleware())
	} else {
		e.Use(auth.Middleware(cfg.JWTSecret))
	}

	e.Use(telemetry.Middleware(tracker))
	e.Use(middleware.Audit(logger))

	// Rate limiting on the analytics surface.
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	apiV1 := e.Group("/api/v1/analytics")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health checks
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/healthz/db", db.HealthHandler(pool))

	// Domain handlers
	forecast.NewHandler(forecastSvc).RegisterRoutes(apiV1)
	anomaly.NewHandler(anomalySvc).RegisterRoutes(apiV1)
	circadian.NewHandler(circadianSvc).RegisterRoutes(apiV1)
	baseline.NewHandler(baselineSvc).RegisterRoutes(apiV1)
	insight.NewHandler(insightSvc).RegisterRoutes(apiV1)
	job.NewHandler(jobSvc).RegisterRoutes(apiV1)
	feature.NewHandler(featureRegistry).RegisterRoutes(apiV1)

	adminV1 := e.Group("/api/v1/admin")
	telemetry.NewHandler(tracker).RegisterRoutes(adminV1)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting analytics server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown: stop accepting requests, then drain in-flight jobs.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	jobSvc.Wait()
	logger.Info().Msg("all background jobs drained")
	return nil
}

// registerJobRunners binds the async job types to their backing services. A
// runner receives the job's parameters verbatim and returns the JSON result
// stored on completion.
func registerJobRunners(jobSvc *job.Service, forecastSvc *forecast.Service, anomalySvc *anomaly.Service, insightSvc *insight.Service, cfg *config.Config) {
	jobSvc.RegisterRunner("forecast", func(ctx context.Context, j *job.Job) (json.RawMessage, error) {
		var params struct {
			Metric  string             `json:"metric"`
			Horizon string             `json:"horizon"`
			Data    []health.DataPoint `json:"data"`
		}
		if err := json.Unmarshal(j.Parameters, &params); err != nil {
			return nil, fmt.Errorf("decode forecast parameters: %w", err)
		}
		res, err := forecastSvc.Generate(ctx, j.UserID, params.Metric, params.Horizon, params.Data)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	})

	jobSvc.RegisterRunner("anomaly_scan", func(ctx context.Context, j *job.Job) (json.RawMessage, error) {
		var params struct {
			Data        []health.DataPoint `json:"data"`
			Algorithms  []string           `json:"algorithms"`
			Sensitivity string             `json:"sensitivity"`
		}
		if err := json.Unmarshal(j.Parameters, &params); err != nil {
			return nil, fmt.Errorf("decode anomaly parameters: %w", err)
		}
		if len(params.Algorithms) == 0 {
			params.Algorithms = cfg.AnomalyDetectionAlgorithms
		}
		records, err := anomalySvc.Detect(ctx, j.UserID, params.Data, params.Algorithms, params.Sensitivity)
		if err != nil {
			return nil, err
		}
		return json.Marshal(records)
	})

	jobSvc.RegisterRunner("insights_report", func(ctx context.Context, j *job.Job) (json.RawMessage, error) {
		var params struct {
			Data []health.DataPoint `json:"data"`
		}
		if err := json.Unmarshal(j.Parameters, &params); err != nil {
			return nil, fmt.Errorf("decode insights parameters: %w", err)
		}
		report, err := insightSvc.Generate(ctx, j.UserID, params.Data)
		if err != nil {
			return nil, err
		}
		return json.Marshal(report)
	})
}
