package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"feedgate/internal/config"
	"feedgate/internal/domain"
	"feedgate/internal/http/handler"
	"feedgate/internal/http/middleware"
	"feedgate/internal/http/router"
	"feedgate/internal/observability"
	"feedgate/internal/realtime"
	"feedgate/internal/repository"
	"feedgate/internal/security"
	"feedgate/internal/service"
)

func main() {
	root := &cobra.Command{Use: "feedgate", Short: "Session/token gated feeds web gateway"}
	root.AddCommand(newServeCommand())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

// serve assembles every component explicitly at startup and injects it
// where needed; there are no process-global service singletons.
func serve(ctx context.Context) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runtime, err := observability.InitRuntime(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Feed{}); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	redisClient, err := openRedis(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	users := repository.NewUserRepository(db)
	feeds := repository.NewFeedRepository(db)
	entries := repository.NewRedisEntryStore(redisClient, "feedgate")
	tokens := service.NewRedisTokenCache(redisClient, "feedgate")
	sessions := service.NewRedisSessionStore(redisClient, "feedgate")

	broker := realtime.NewBroker()
	acl := realtime.NewFeedOwnerACL(feeds)

	authService := service.NewAuthService(users, tokens, sessions, cfg.TokenTTL, cfg.SessionTTL, cfg.StoreTimeout)
	feedService := service.NewFeedService(feeds, entries, broker, cfg.StoreTimeout)

	cookies := security.NewSessionCookies([]byte(cfg.SessionKey), cfg.SessionCookieName, int(cfg.SessionTTL.Seconds()), cfg.CookieSecure)
	mediator := &middleware.Mediator{
		Sessions:     sessions,
		Tokens:       tokens,
		Cookies:      cookies,
		StoreTimeout: cfg.StoreTimeout,
	}

	readyCheck := func(ctx context.Context) error {
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}

	h := router.NewRouter(router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(authService, cookies),
		FeedHandler:      handler.NewFeedHandler(feedService),
		Pages:            handler.NewPagesHandler(handler.NewHTMLRenderer(cfg.TemplateDir)),
		EventBus:         handler.NewEventBusHandler(broker, acl),
		Mediator:         mediator,
		ReadyCheck:       readyCheck,
		CORSOrigins:      cfg.AllowedOrigins,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		APIRateLimitRPM:  cfg.APIRateLimitRPM,
		AssetDir:         cfg.AssetDir,
		LoginPage:        cfg.LoginPage,
		EnableOTelHTTP:   cfg.OTelEnabled,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := runtime.Shutdown(shutdownCtx); err != nil {
		logger.Error("observability shutdown", "error", err)
	}
	return nil
}

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{TranslateError: true}
	switch cfg.DBDriver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
	default:
		return gorm.Open(sqlite.Open(cfg.DatabaseURL), gormCfg)
	}
}

func openRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}
