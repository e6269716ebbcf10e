package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/yakoovad/babylog/internal/api"
	"github.com/yakoovad/babylog/internal/auth"
	"github.com/yakoovad/babylog/internal/cache"
	"github.com/yakoovad/babylog/internal/chat"
	"github.com/yakoovad/babylog/internal/config"
	"github.com/yakoovad/babylog/internal/db"
	"github.com/yakoovad/babylog/internal/mail"
	"github.com/yakoovad/babylog/internal/ratelimit"
	"github.com/yakoovad/babylog/internal/repository"
	"github.com/yakoovad/babylog/internal/service"
	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
)

var version = "dev"

const shutdownTimeout = 10 * time.Second

var (
	configPath string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "babylog",
	Short:         "babylog - baby care tracking backend with an AI parenting assistant",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return errors.Wrap(err, "load config")
		}
		if log, err = logger.NewLogger(cfg.Log.Level, cfg.Log.Format); err != nil {
			return errors.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := connectPostgres(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		applied, err := db.Migrate(cmd.Context(), pool)
		if err != nil {
			return err
		}
		log.Info("migrations applied", zap.Strings("files", applied))
		return nil
	},
}

var (
	tokenUser  string
	tokenEmail string
	tokenName  string
	tokenAdmin bool
	tokenTTL   time.Duration
)

// tokenCmd issues session tokens for local testing and admin access.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a session token signed with the configured secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		typ := auth.TokenTypeUser
		if tokenAdmin {
			typ = auth.TokenTypeAdmin
		}

		claims := auth.SessionClaims{Type: typ, Email: tokenEmail, Name: tokenName}
		claims.Subject = tokenUser

		token, err := auth.NewVerifier(cfg.Auth.Secret).Issue(claims, tokenTTL)
		if err != nil {
			return errors.Wrap(err, "issue token")
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")

	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id (token subject)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "user email")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "user display name")
	tokenCmd.Flags().BoolVar(&tokenAdmin, "admin", false, "issue an admin token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func connectPostgres(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return pool, nil
}

func serve(ctx context.Context) error {
	log.Info("starting application", zap.String("version", version))

	pool, err := connectPostgres(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	log.Info("database connection established")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	model, err := chat.NewGenAIModel(ctx, cfg.AI.APIKey)
	if err != nil {
		return errors.Wrap(err, "init genai client")
	}

	transactor := db.NewPgxTransactor(pool)
	loc := cfg.Location()

	userRepo := repository.NewPgxUserRepository(pool)
	familyRepo := repository.NewPgxFamilyRepository(pool)
	babyRepo := repository.NewPgxBabyRepository(pool)
	activityRepo := repository.NewPgxActivityRepository(pool)
	noteRepo := repository.NewPgxNoteRepository(pool)
	growthRepo := repository.NewPgxGrowthRepository(pool)
	chatRepo := repository.NewPgxChatRepository(pool)

	statsCache := cache.NewStatsCache(rdb, cfg.Redis.StatsTTL)
	mailer := mail.New(mail.Config{
		Host:      cfg.Mail.Host,
		Port:      cfg.Mail.Port,
		User:      cfg.Mail.User,
		Password:  cfg.Mail.Password,
		From:      cfg.Mail.From,
		ClientURL: cfg.Mail.ClientURL,
	})

	user := service.NewUserService(transactor).WithUserRepo(userRepo).WithFamilyRepo(familyRepo).WithDefaultTimezone(cfg.Timezone)
	family := service.NewFamilyService(transactor).WithFamilyRepo(familyRepo).WithUserRepo(userRepo).WithMailer(mailer)
	baby := service.NewBabyService(transactor).WithFamilyRepo(familyRepo).WithBabyRepo(babyRepo)
	activity := service.NewActivityService(transactor).
		WithFamilyRepo(familyRepo).
		WithBabyRepo(babyRepo).
		WithActivityRepo(activityRepo).
		WithStatsCache(statsCache).
		WithLocation(loc)
	note := service.NewNoteService().WithFamilyRepo(familyRepo).WithBabyRepo(babyRepo).WithNoteRepo(noteRepo)
	growth := service.NewGrowthService().WithFamilyRepo(familyRepo).WithBabyRepo(babyRepo).WithGrowthRepo(growthRepo)
	metrics := service.NewMetricsService().WithChatRepo(chatRepo)

	orchestrator := chat.NewOrchestrator(model,
		service.NewChatStore(chatRepo),
		service.NewChatDataSource(activity, growth),
		chat.Options{
			SimpleModel:   cfg.AI.SimpleModel,
			ComplexModel:  cfg.AI.ComplexModel,
			MaxToolSteps:  cfg.AI.MaxToolSteps,
			SummarizeOver: cfg.AI.SummarizeOver,
			Backoff:       chat.Backoff{MaxRetries: cfg.AI.MaxRetries, BaseDelay: cfg.AI.RetryBaseDelay},
			Location:      loc,
		})
	chatService := service.NewChatService(cfg.AI.MaxMessageLen).
		WithFamilyRepo(familyRepo).
		WithBabyRepo(babyRepo).
		WithChatRepo(chatRepo).
		WithAnswerer(orchestrator)

	health := api.MustNewHealthChecker(version,
		api.PingCheck("postgres", pool, false),
		api.PingCheck("redis", statsCache, true),
	)

	e := echo.New()
	e.HideBanner = true

	handler := api.NewHandler(log).
		WithHealthChecker(health).
		WithAuth(auth.NewVerifier(cfg.Auth.Secret), cfg.Auth.CookieName).
		WithRateLimits(
			ratelimit.New(rdb, "api", cfg.RateLimit.API.Limit, cfg.RateLimit.API.Period),
			ratelimit.New(rdb, "chat", cfg.RateLimit.Chat.Limit, cfg.RateLimit.Chat.Period)).
		WithUserService(user).
		WithFamilyService(family).
		WithBabyService(baby).
		WithActivityService(activity).
		WithNoteService(note).
		WithGrowthService(growth).
		WithChatService(chatService).
		WithMetricsService(metrics)

	handler.RegisterRoutes(e)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", cfg.Server.Addr))
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err = <-errCh:
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
