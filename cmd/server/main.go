package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	specpkg "github.com/daap14/teamup/api"
	"github.com/daap14/teamup/internal/api"
	"github.com/daap14/teamup/internal/api/handler"
	"github.com/daap14/teamup/internal/auth"
	"github.com/daap14/teamup/internal/config"
	"github.com/daap14/teamup/internal/coordinator"
	"github.com/daap14/teamup/internal/database"
	"github.com/daap14/teamup/internal/metrics"
	"github.com/daap14/teamup/internal/migrations"
	"github.com/daap14/teamup/internal/notification"
	"github.com/daap14/teamup/internal/team"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrationsAuto {
		runner, err := migrations.New(cfg.DatabaseURL, slog.Default())
		if err != nil {
			slog.Error("failed to create migration runner", "error", err)
			os.Exit(1)
		}
		if err := runner.Up(ctx); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	userRepo := auth.NewRepository(db.Pool())
	authService := auth.NewService(userRepo, cfg.BcryptCost)
	if _, err := authService.BootstrapSuperuser(ctx); err != nil {
		slog.Error("failed to bootstrap superuser", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	coord := coordinator.New(coordinator.NewPostgresStore(db, cfg.TeamLockTimeout), m)

	publisher, broker := newPublisher(cfg)
	if closer, ok := publisher.(interface{ Close() }); ok {
		defer closer.Close()
	}

	dispatcher := notification.NewDispatcher(notification.NewStore(db), publisher, m, cfg.DispatchInterval, cfg.DispatchBatchSize)
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Start(ctx)
	}()

	router := api.NewRouter(api.RouterDeps{
		DBPinger:      db,
		BrokerPinger:  broker,
		Version:       cfg.Version,
		OpenAPISpec:   specpkg.OpenAPISpec,
		Authenticator: authService,
		KeyGenerator:  authService,
		UserRepo:      userRepo,
		TeamRepo:      team.NewRepository(db.Pool()),
		Notifications: notification.NewRepository(db.Pool()),
		Coordinator:   coord,
		Metrics:       m,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting TeamUp server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		stop()
		<-dispatchDone
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	<-dispatchDone

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// newPublisher connects to Redis when configured. Without Redis, or when it
// cannot be reached at startup, notifications are only logged.
func newPublisher(cfg *config.Config) (notification.Publisher, handler.Pinger) {
	if cfg.RedisAddr == "" {
		slog.Info("REDIS_ADDR not set; notifications will be logged")
		return notification.LogPublisher{}, nil
	}

	pub, err := notification.NewRedisPublisher(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.NotificationChannel)
	if err != nil {
		slog.Warn("redis unavailable; notifications will be logged", "error", err, "addr", cfg.RedisAddr)
		return notification.LogPublisher{}, nil
	}
	return pub, pub
}
