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

	"github.com/screwyprof/stakecheck/checker"
	"github.com/screwyprof/stakecheck/checker/config"
	"github.com/screwyprof/stakecheck/checker/handler"
	"github.com/screwyprof/stakecheck/checker/metrics"
	"github.com/screwyprof/stakecheck/checker/notify"
	"github.com/screwyprof/stakecheck/checker/store/pgxstore"
	"github.com/screwyprof/stakecheck/checker/store/redisstore"
	"github.com/screwyprof/stakecheck/pkg/logger"
	"github.com/screwyprof/stakecheck/pkg/pgxdb"
	"github.com/screwyprof/stakecheck/pkg/stargate"
)

// These values are overridden at build time using -ldflags
var (
	version = "dev"
	date    = "unknown"
)

// snapshotStore is what both store backends provide
type snapshotStore interface {
	checker.SnapshotStore
	handler.SnapshotFinder
}

func main() {
	// Load configuration
	cfg := config.New()

	// Initialize logger and set as default
	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
	})
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Prepare context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.InfoContext(ctx, "Stake checker starting",
		slog.String("version", version),
		slog.String("date", date),
		slog.String("store", cfg.StoreBackend),
	)

	// Redis is shared by the redis store and the stream notifier
	var rdb *redis.Client
	if cfg.RedisNeeded() {
		var err error
		rdb, err = connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.ErrorContext(ctx, "Failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer rdb.Close()
	}

	// Initialize store
	store, storeCloser, err := openStore(ctx, cfg, rdb)
	if err != nil {
		log.ErrorContext(ctx, "Failed to open snapshot store", slog.Any("error", err))
		os.Exit(1)
	}
	defer storeCloser()

	// HTTP client & staking client
	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	stargateClient := stargate.NewClient(httpClient, cfg.StargateURL)

	// Notifiers
	notifiers, notifiersCloser, err := setupNotifiers(cfg, httpClient, rdb, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to set up notifiers", slog.Any("error", err))
		os.Exit(1)
	}
	defer notifiersCloser()

	exporter := metrics.NewExporter(cfg.MetricsPrefix)

	// Create checker service
	opts := []checker.Option{checker.WithInterval(cfg.Interval)}
	if cfg.RunOnce {
		opts = append(opts, checker.WithRunOnce())
	}
	checkerService := checker.NewService(stargateClient, store, notifiers, opts...)

	// The read API is for long-running deployments only
	var server *http.Server
	if !cfg.RunOnce && cfg.HTTPAddr != "" {
		server = startServer(ctx, cfg.HTTPAddr, store, exporter, log)
	}

	// Start service
	events, done := checkerService.Start(ctx)

	// Subscribe to events for logging and metrics
	var failed bool
	subCloser := setupEventHandling(ctx, events, log, exporter, &failed)

	// Wait for shutdown
	<-done
	subCloser()

	if server != nil {
		shutdownServer(server, cfg.ShutdownTimeout, log)
	}

	if cfg.RunOnce && failed {
		log.Error("Stake checker run failed")
		os.Exit(1)
	}
	log.Info("Stake checker stopped gracefully")
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

func openStore(ctx context.Context, cfg config.Config, rdb *redis.Client) (snapshotStore, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		return redisstore.New(rdb, cfg.RedisKeyPrefix), func() {}, nil
	case config.BackendPostgres:
		db, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store, storeCloser := pgxstore.New(db)
		return store, storeCloser, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.StoreBackend)
}

// setupNotifiers always logs; chat and stream notifiers are enabled by configuration
func setupNotifiers(cfg config.Config, httpClient *http.Client, rdb *redis.Client, log *slog.Logger) (*notify.MultiNotifier, func(), error) {
	notifiers := notify.NewMultiNotifier(notify.NewLogNotifier(log))
	closer := func() {}

	if cfg.SlackWebhookURL != "" {
		notifiers.Add(notify.NewSlackNotifier(httpClient, cfg.SlackWebhookURL, cfg.SlackChannel))
	}
	if cfg.DiscordWebhookURL != "" {
		notifiers.Add(notify.NewDiscordNotifier(httpClient, cfg.DiscordWebhookURL))
	}
	if cfg.StreamTopic != "" {
		pub, err := notify.NewRedisStreamPublisher(rdb, log)
		if err != nil {
			return nil, nil, fmt.Errorf("creating stream publisher: %w", err)
		}
		stream := notify.NewStreamNotifier(pub, cfg.StreamTopic)
		notifiers.Add(stream)
		closer = func() {
			if err := stream.Close(); err != nil {
				log.Error("Failed to close stream publisher", slog.Any("error", err))
			}
		}
	}

	return notifiers, closer, nil
}

func startServer(ctx context.Context, addr string, store handler.SnapshotFinder, exporter *metrics.Exporter, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	handler.NewSnapshots(store).AddRoutes(mux)
	mux.Handle("GET /metrics", exporter.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           logger.NewMiddleware(log)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.InfoContext(ctx, "Server started", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "Server failed to start", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	return server
}

func shutdownServer(server *http.Server, timeout time.Duration, log *slog.Logger) {
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", slog.Any("error", err))
	}
}

// setupEventHandling logs scheduler events and feeds them to the metrics exporter.
// failed is set when any run fails and is safe to read once the returned closer returns.
func setupEventHandling(ctx context.Context, events <-chan checker.Event, log *slog.Logger, exporter *metrics.Exporter, failed *bool) func() {
	return checker.NewSubscriber(events,
		checker.OnSchedulerStarted(func(event checker.SchedulerStarted) {
			log.InfoContext(ctx, "Scheduler started",
				slog.Duration("interval", event.Interval),
				slog.Bool("runOnce", event.RunOnce),
			)
		}),
		checker.OnRunStarted(func(event checker.RunStarted) {
			log.InfoContext(ctx, "Run started",
				slog.String("runID", event.RunID.String()),
				slog.String("startedAt", event.StartedAt.Format(logger.BritishTimeFormat)),
			)
		}),
		checker.OnRunCompleted(func(event checker.RunCompleted) {
			exporter.Observe(event.Snapshot)
			log.InfoContext(ctx, "Run completed",
				slog.String("runID", event.RunID.String()),
				slog.Int("validators", len(event.Snapshot.Data)),
				slog.Int("bonded", event.Snapshot.Bonded()),
				slog.Bool("firstRun", event.Snapshot.FirstRun()),
				slog.Duration("duration", event.Duration),
			)
		}),
		checker.OnRunFailed(func(event checker.RunFailed) {
			*failed = true
			exporter.Failed()
			log.ErrorContext(ctx, "Run failed",
				slog.String("runID", event.RunID.String()),
				slog.Any("error", event.Err),
			)
		}),
		checker.OnSchedulerShutdown(func(event checker.SchedulerShutdown) {
			reason := "run once"
			if event.Reason != nil {
				reason = event.Reason.Error()
			}
			log.InfoContext(ctx, "Scheduler stopped", slog.String("reason", reason))
		}),
	)
}
