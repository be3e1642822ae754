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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"solanaetl/internal/chain"
	"solanaetl/internal/config"
	"solanaetl/internal/decoder"
	"solanaetl/internal/executor"
	"solanaetl/internal/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "solanaetl",
		Short:        "Export Solana blocks, transactions, instructions, accounts and tokens",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(
		newExportBlocksCmd(),
		newExportInstructionsCmd(),
		newExtractAccountsCmd(),
		newExtractTokenTransfersCmd(),
		newExtractTokensCmd(),
		newExportAllCmd(),
		newStreamCmd(),
		newExtractFieldCmd(),
	)
	return root
}

// addCommonFlags registers the provider, executor and logging flags shared
// by every RPC-backed command.
func addCommonFlags(cmd *cobra.Command, batchSize, maxWorkers int) {
	cmd.Flags().StringP("provider-uri", "p", config.DefaultProviderURI, "JSON-RPC provider URIs, comma-separated in fallback order")
	cmd.Flags().IntP("batch-size", "b", batchSize, "requests per JSON-RPC batch")
	cmd.Flags().IntP("max-workers", "w", maxWorkers, "maximum number of workers")
	cmd.Flags().Int("max-retries", 5, "retries per failed batch, 0 retries until success")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().Duration("max-backoff", 30*time.Second, "maximum retry backoff")
	cmd.Flags().Float64("rpc-rate-limit", 0, "maximum JSON-RPC batches per second per worker, 0 disables")
	cmd.Flags().Duration("rpc-timeout", 30*time.Second, "timeout of one JSON-RPC batch")
	cmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")
	cmd.Flags().String("serum-dex-v3-program-id", decoder.SerumDexV3ProgramID, "program id decoded as serum dex v3")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

// runtime bundles what every RPC-backed command builds from config.Common.
type runtime struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
	exec    *executor.Executor
	clients []*chain.Client
	parser  *decoder.Parser
	server  *http.Server
}

func newRuntime(ctx context.Context, common config.Common) (*runtime, error) {
	logger, err := newLogger(common.LogLevel)
	if err != nil {
		return nil, err
	}
	rt := &runtime{logger: logger}

	if common.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		rt.metrics = metrics.NewMetrics(registry)
		rt.server = &http.Server{
			Addr:    common.MetricsAddr,
			Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}
		go func() {
			logger.Info("metrics server start", zap.String("addr", common.MetricsAddr))
			if err := rt.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	registry, err := decoder.NewDefaultRegistry(common.SerumDexV3ProgramID)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.parser = decoder.NewParser(registry, logger)

	rt.exec, err = executor.New(executor.Config{
		BatchSize:    common.BatchSize,
		MaxWorkers:   common.MaxWorkers,
		MaxRetries:   common.MaxRetries,
		RetryBackoff: common.RetryBackoff,
		MaxBackoff:   common.MaxBackoff,
		Logger:       logger,
		Metrics:      rt.metrics,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.clients, err = chain.NewClients(ctx, chain.Config{
		URIs:      common.ProviderURIs,
		Timeout:   common.RPCTimeout,
		RateLimit: common.RPCRateLimit,
		Metrics:   rt.metrics,
		Logger:    logger,
	}, common.MaxWorkers)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	return rt, nil
}

// Close releases the RPC clients, stops the metrics server and flushes the logger.
func (rt *runtime) Close() {
	chain.CloseAll(rt.clients)
	if rt.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.server.Shutdown(shutdownCtx); err != nil {
			rt.logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}
	_ = rt.logger.Sync()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
