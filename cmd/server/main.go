package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oddsline/scorefeed/internal/alert"
	"github.com/oddsline/scorefeed/internal/config"
	"github.com/oddsline/scorefeed/internal/feed"
	"github.com/oddsline/scorefeed/internal/server"
	"github.com/oddsline/scorefeed/internal/stream"
	"github.com/oddsline/scorefeed/internal/ws"
)

var (
	cfgFile string
	verbose bool
	logger  *zap.Logger
	cfg     *config.Config
)

func setupLogger(verbose bool, level string) (*zap.Logger, error) {
	var zapConfig zap.Config
	if verbose {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.DisableStacktrace = true
	}

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err == nil {
			zapConfig.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	return zapConfig.Build()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "scorefeed",
		Short: "Real-time score change distribution server",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip config loading for help commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				var err error
				logger, err = setupLogger(verbose, "")
				return err
			}

			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return err
			}

			logger, err = setupLogger(verbose, cfg.Logging.Level)
			return err
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("SCOREFEED_CONFIG"), "config file path (or set SCOREFEED_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd())

	// Setup signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the score distribution server",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer logger.Sync()
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	logger.Info("configuration loaded",
		zap.String("port", cfg.Server.Port),
		zap.String("feedBaseURL", cfg.Feed.BaseURL),
		zap.Duration("pollInterval", cfg.Stream.PollInterval),
		zap.Duration("broadcastInterval", cfg.Stream.BroadcastInterval),
		zap.Duration("evictionWindow", cfg.Stream.EvictionWindow),
		zap.Bool("alerting", cfg.Alert.Enabled),
	)

	clock := clockwork.NewRealClock()

	client := feed.NewClient(
		cfg.Feed.BaseURL,
		cfg.Feed.FallbackURL,
		cfg.Feed.APIKey,
		cfg.Feed.RatePerSecond,
		time.Duration(cfg.Feed.TimeoutSec)*time.Second,
		time.Duration(cfg.Feed.RetryDelaySec)*time.Second,
		cfg.Feed.RetryCount,
		logger,
	)
	tracker := feed.NewTracker(client, cfg.Stream.TrackerTTL, clock, logger)

	// Cancelling this context stops the poller and closes every connection.
	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := ws.NewRegistry(tracker, logger)
	go registry.Run(serviceCtx)

	dispatcher := stream.NewDispatcher(registry, cfg.Stream.BroadcastInterval, clock, logger)
	cache := stream.NewCache(clock)
	notifier := alert.New(&cfg.Alert, logger)

	poller := stream.NewPoller(client, cache, dispatcher, notifier, cfg.Stream.PollInterval, cfg.Stream.EvictionWindow, clock, logger)
	go poller.Run(serviceCtx)

	srv := server.NewServer(tracker, registry, logger)
	router := server.NewRouter(srv, registry, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	// Stop the poller and close all websocket connections
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}
