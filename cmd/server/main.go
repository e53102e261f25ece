package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"babyzen/internal/ai"
	"babyzen/internal/api"
	"babyzen/internal/audit"
	"babyzen/internal/auth"
	"babyzen/internal/config"
	"babyzen/internal/logging"
	"babyzen/internal/mentor"
	"babyzen/internal/metrics"
	"babyzen/internal/pipeline"
	"babyzen/internal/ratelimit"
	"babyzen/internal/repository"
	"babyzen/internal/storage"
	"babyzen/internal/stt"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "babyzen",
		Short:         "Baby Zen cry analysis backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if it exists (ignore error if file doesn't exist)
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required for migrate")
			}

			ctx := context.Background()
			for _, dsn := range lo.Uniq(lo.Compact([]string{cfg.DatabaseURL, cfg.ServiceDatabaseURL})) {
				db, err := repository.Open(dsn)
				if err != nil {
					return err
				}
				err = repository.Migrate(ctx, db)
				_ = db.Close()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrated", dsn)
			}
			return nil
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogPretty)

	// Set Gin mode (default to release mode)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	users, service, closeDB, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	limiter, closeLimiter, err := newLimiter(ctx, cfg, users, log)
	if err != nil {
		return err
	}
	defer closeLimiter()

	provider, err := stt.CreateProvider(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create STT provider: %w", err)
	}
	log.Info().Str("provider", provider.Name()).Msg("STT provider initialized")

	llm := ai.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIChatModel, log)
	recorder := audit.NewRecorder(service, cfg.AuditTimeout, log)

	analyzer := pipeline.NewAnalyzer(pipeline.Deps{
		Limiter:    limiter,
		STT:        provider,
		Classifier: llm,
		Cries:      users,
		Audit:      recorder,
		Log:        log,
	}, pipeline.Options{
		DailyQuota:      cfg.DailyScanQuota,
		ProviderTimeout: cfg.ProviderTimeout,
	})

	mentorSvc := mentor.NewService(mentor.Deps{
		LLM:      llm,
		Profiles: users,
		Events:   users,
		Cries:    users,
		Chats:    users,
		Audit:    recorder,
		Log:      log,
	}, mentor.Options{
		HistoryLimit:    cfg.MentorHistoryLimit,
		MaxReplyChars:   cfg.MentorMaxReplyChars,
		ProviderTimeout: cfg.ProviderTimeout,
	})

	r := gin.New()
	r.Use(gin.Recovery(), logging.Gin(log), metrics.Gin())
	api.RegisterRoutes(r, api.NewHandler(api.Deps{
		Analyzer:   analyzer,
		Mentor:     mentorSvc,
		Limiter:    limiter,
		Cries:      users,
		Profiles:   users,
		Events:     users,
		Verifier:   auth.NewVerifier(cfg.JWTSecret),
		Log:        log,
		DailyQuota: cfg.DailyScanQuota,
	}))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Baby Zen backend running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	recorder.Wait()
	return nil
}

// openStores returns the user-scoped and the audit repositories.
// User scoping is enforced by the queries; sqlite has no roles or row security.
// Without DATABASE_URL both are served from memory.
func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.UserRepository, repository.AuditRepository, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, running with in-memory storage only")
		mem := storage.NewMemoryStore()
		return mem, mem, func() {}, nil
	}

	var opened []*sql.DB
	closeAll := func() {
		for _, db := range opened {
			_ = db.Close()
		}
	}

	open := func(dsn string) (*sql.DB, error) {
		db, err := repository.Open(dsn)
		if err != nil {
			return nil, err
		}
		opened = append(opened, db)
		if err := repository.Migrate(ctx, db); err != nil {
			return nil, err
		}
		return db, nil
	}

	userDB, err := open(cfg.DatabaseURL)
	if err != nil {
		closeAll()
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	serviceDB := userDB
	if cfg.ServiceDatabaseURL != cfg.DatabaseURL {
		if serviceDB, err = open(cfg.ServiceDatabaseURL); err != nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("failed to initialize service database: %w", err)
		}
	}

	log.Info().Msg("Database and repositories initialized")
	return repository.NewSQLRepository(userDB), repository.NewServiceRepository(serviceDB), closeAll, nil
}

func newLimiter(ctx context.Context, cfg *config.Config, users repository.UsageRepository, log zerolog.Logger) (ratelimit.Limiter, func(), error) {
	if cfg.RateLimitBackend != "redis" {
		return ratelimit.NewSQLLimiter(users), func() {}, nil
	}

	rl, err := ratelimit.NewRedisLimiter(ctx, ratelimit.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("Redis rate limiter initialized")
	return rl, func() { _ = rl.Close() }, nil
}
