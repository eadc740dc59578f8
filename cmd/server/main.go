package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"bookline/internal/api"
	"bookline/internal/cache"
	"bookline/internal/config"
	"bookline/internal/events"
	"bookline/internal/metrics"
	"bookline/internal/notify"
	"bookline/internal/report"
	"bookline/internal/schedule"
	"bookline/internal/service"
	"bookline/internal/store"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("BOOKLINE_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := store.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	bus := events.NewBus()

	var rdb *redis.Client
	var dayCache service.DayCache
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		availability := cache.NewAvailability(rdb, cfg.CacheTTL(), &logger)
		availability.SubscribeInvalidation(bus)
		dayCache = availability
	}

	if cfg.Telegram.BotToken != "" && cfg.Telegram.AdminChatID != 0 {
		notifier, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("telegram notifier disabled")
		} else {
			notifier.Subscribe(bus)
		}
	}

	resolver := schedule.NewResolver(db)
	scheduling := service.NewScheduling(db, resolver, bus, dayCache, cfg.BookingDefaultStatus(), &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Provision.AutoEnabled {
		go startProvisionLoop(ctx, scheduling, cfg, &logger)
	}

	if cfg.Backup.Enabled {
		go startBackupLoop(ctx, db, cfg, &logger)
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	srv := api.NewHTTPServer(
		scheduling,
		report.NewExporter(db),
		strconv.Itoa(cfg.Server.Port),
		cfg.Server.APIKey,
		cfg.RateLimit.RequestsPerSecond,
		cfg.RateLimit.Burst,
		&logger,
	)

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Msg("bookline server started")
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("HTTP server error")
	}
}

// startProvisionLoop keeps the slot grid materialized out to the configured
// horizon for every configured location.
func startProvisionLoop(ctx context.Context, scheduling *service.Scheduling, cfg *config.Config, logger *zerolog.Logger) {
	if len(cfg.Provision.LocationIDs) == 0 {
		logger.Warn().Msg("auto provisioning enabled but no location_ids configured")
		return
	}

	runProvisionTask(ctx, scheduling, cfg, logger)

	ticker := time.NewTicker(cfg.ProvisionInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runProvisionTask(ctx, scheduling, cfg, logger)
		case <-ctx.Done():
			return
		}
	}
}

func runProvisionTask(ctx context.Context, scheduling *service.Scheduling, cfg *config.Config, logger *zerolog.Logger) {
	from := time.Now().Format("2006-01-02")
	to := time.Now().AddDate(0, 0, cfg.ProvisionHorizon()).Format("2006-01-02")

	for _, locationID := range cfg.Provision.LocationIDs {
		inserted, err := scheduling.Provision(ctx, locationID, from, to, nil)
		if err != nil {
			logger.Error().Err(err).
				Int64("location_id", locationID).
				Msg("auto provisioning failed")
			continue
		}
		if inserted > 0 {
			logger.Info().
				Int64("location_id", locationID).
				Int64("inserted", inserted).
				Str("to", to).
				Msg("auto provisioned slots")
		}
	}
}

func startBackupLoop(ctx context.Context, db *store.DB, cfg *config.Config, logger *zerolog.Logger) {
	if cfg.Backup.Path == "" {
		cfg.Backup.Path = "backups"
	}
	if cfg.Backup.IntervalHours <= 0 {
		cfg.Backup.IntervalHours = 24
	}
	if cfg.Backup.RetentionDays <= 0 {
		cfg.Backup.RetentionDays = 14
	}

	if err := os.MkdirAll(cfg.Backup.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create backup directory")
		return
	}

	interval := time.Duration(cfg.Backup.IntervalHours) * time.Hour
	retention := time.Duration(cfg.Backup.RetentionDays) * 24 * time.Hour

	// First backup after a short delay so startup stays fast.
	select {
	case <-time.After(1 * time.Minute):
		runBackupTask(ctx, db, cfg, retention, logger)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runBackupTask(ctx, db, cfg, retention, logger)
		case <-ctx.Done():
			return
		}
	}
}

func runBackupTask(ctx context.Context, db *store.DB, cfg *config.Config, retention time.Duration, logger *zerolog.Logger) {
	timestamp := time.Now().Format("20060102_150405")
	dest := filepath.Join(cfg.Backup.Path, fmt.Sprintf("bookline_%s.db", timestamp))

	logger.Info().Str("path", dest).Msg("starting database backup")
	if err := db.Backup(ctx, dest); err != nil {
		logger.Error().Err(err).Msg("backup failed")
	} else {
		logger.Info().Msg("backup completed successfully")
	}

	deleted, err := db.CleanupBackups(cfg.Backup.Path, retention)
	if err != nil {
		logger.Error().Err(err).Msg("backup cleanup failed")
	} else if deleted > 0 {
		logger.Info().Int("deleted", deleted).Msg("cleaned up old backups")
	}
}

func startHealthServer(ctx context.Context, port int, db *store.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
