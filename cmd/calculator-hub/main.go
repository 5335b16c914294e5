package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/iwvelando/calculator-hub/internal/analytics"
	"github.com/iwvelando/calculator-hub/internal/cache"
	"github.com/iwvelando/calculator-hub/internal/config"
	"github.com/iwvelando/calculator-hub/internal/exchange"
	"github.com/iwvelando/calculator-hub/internal/logging"
	"github.com/iwvelando/calculator-hub/internal/metrics"
	"github.com/iwvelando/calculator-hub/internal/ratelimit"
	"github.com/iwvelando/calculator-hub/internal/server"
	"github.com/iwvelando/calculator-hub/internal/webhook"
	"github.com/iwvelando/calculator-hub/pkg/constants"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

// run serves until a shutdown signal and returns the process exit code.
func run() int {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	address := flag.String("address", "", "listen address override, e.g. :8080")
	flag.Parse()

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		return 1
	}
	if *address != "" {
		conf.Server.Address = *address
	}

	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	responses := cache.Open(ctx, conf.Cache, logger)
	if closer, ok := responses.(io.Closer); ok {
		defer func() {
			_ = closer.Close()
		}()
	}

	limiter := ratelimit.New(logger, ratelimit.RulesFromConfig(conf)...)
	defer limiter.Stop()

	sink, err := analytics.NewSink(conf.Analytics, logger)
	if err != nil {
		logger.Fatal("failed to create analytics sink",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	events := analytics.NewService(conf.Analytics, sink, logger)
	defer func() {
		if err := events.Close(); err != nil {
			logger.Warn("failed to close analytics sink",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}()

	m := metrics.New()
	rates := server.NewExchangeService(conf.Exchange, m, logger)

	handler, err := server.NewHandler(server.Dependencies{
		Config:     conf,
		Logger:     logger,
		Limiter:    limiter,
		Cache:      responses,
		Exchange:   rates,
		Pair:       exchange.NewPairConverter(conf.Exchange.PairBaseURL, conf.Exchange.APIKey, conf.Exchange.Timeout),
		Analytics:  events,
		Dispatcher: server.NewDispatcher(rates, responses, logger),
		Verifier:   webhook.NewVerifier(conf.Webhook.Secret, conf.Webhook.MaxSkew),
		Metrics:    m,
		Version:    version,
	})
	if err != nil {
		logger.Fatal("failed to build HTTP handler",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	srv := &http.Server{
		Addr:         conf.Server.Address,
		Handler:      handler,
		ReadTimeout:  conf.Server.ReadTimeout,
		WriteTimeout: conf.Server.WriteTimeout,
		IdleTimeout:  conf.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("calculator hub listening",
			zap.String("op", "main"),
			zap.String("address", conf.Server.Address),
			zap.String("version", version),
			zap.String("cache", responses.Name()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("HTTP server failed",
				zap.String("op", "main"),
				zap.Error(err),
			)
			return 1
		}
	case <-ctx.Done():
		logger.Info("shutting down",
			zap.String("op", "main"),
		)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return 1
	}
	return 0
}
