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

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/thurmanmarka/suntrack/internal/api"
	"github.com/thurmanmarka/suntrack/internal/config"
	"github.com/thurmanmarka/suntrack/internal/eventbus"
	"github.com/thurmanmarka/suntrack/internal/host"
	"github.com/thurmanmarka/suntrack/internal/logging"
	"github.com/thurmanmarka/suntrack/internal/service"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "suntrack",
	Short: "suntrack - sun position sensors",
	Long: `suntrack tracks the solar elevation curve for one or more locations and
reports elevation, twilight phase, above-threshold and daily sun sensors,
recomputing each one only at the instant its state changes.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sensor engine and HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	logger.Info().Msg("suntrack starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := host.NewLoop()
	svc, err := service.New(cfg, loop, nil, logger)
	if err != nil {
		return fmt.Errorf("initialize service: %w", err)
	}

	// Start publishes a state and a schedule per sensor in one burst.
	forwarder := eventbus.NewForwarder(svc.Bus(), cfg.EventsPrefix, "", 2*svc.SensorCount(), logger, publishers(ctx)...)
	go func() {
		if err := forwarder.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("event forwarder stopped")
		}
	}()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = loop.Run(ctx)
	}()
	svc.Start()

	httpServer := &http.Server{
		Addr:              cfg.HTTPBind,
		Handler:           api.New(svc, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", cfg.HTTPBind).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down gracefully...")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	<-loopDone
	svc.Stop()

	logger.Info().Msg("suntrack stopped")
	return nil
}

// publishers connects the configured brokers. A broker that can not be
// reached is logged and skipped; sensors keep running without it.
func publishers(ctx context.Context) []eventbus.Publisher {
	var pubs []eventbus.Publisher
	if cfg.RedisAddr != "" {
		rc := eventbus.DefaultRedisConfig()
		rc.Addr, rc.Password, rc.DB = cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB
		p, err := eventbus.NewRedisPublisher(ctx, rc, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, not forwarding events there")
		} else {
			pubs = append(pubs, p)
		}
	}
	if cfg.NATSURL != "" {
		nc := eventbus.DefaultNATSConfig()
		nc.URL = cfg.NATSURL
		p, err := eventbus.NewNATSPublisher(nc, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, not forwarding events there")
		} else {
			pubs = append(pubs, p)
		}
	}
	return pubs
}
