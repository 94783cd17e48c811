package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-enrich-products/config"
	"github.com/aluiziolira/go-enrich-products/enhancer"
	"github.com/aluiziolira/go-enrich-products/metrics"
	"github.com/aluiziolira/go-enrich-products/normalizer"
	"github.com/aluiziolira/go-enrich-products/pipeline"
	"github.com/aluiziolira/go-enrich-products/processor"
	"github.com/aluiziolira/go-enrich-products/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	flag.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Products per batch")
	flag.DurationVar(&cfg.ItemDelay, "delay", cfg.ItemDelay, "Pause after each product")
	flag.DurationVar(&cfg.BatchPause, "batch-pause", cfg.BatchPause, "Pause between batches")
	flag.IntVar(&cfg.MaxProducts, "max-products", cfg.MaxProducts, "Process at most this many products (0 = all)")
	flag.BoolVar(&cfg.SaveBatches, "save-batches", cfg.SaveBatches, "Write a checkpoint file after each batch")
	flag.StringVar(&cfg.CheckpointDir, "checkpoint-dir", cfg.CheckpointDir, "Directory for batch checkpoints")
	flag.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for the final report")
	flag.StringVar(&cfg.ExportFile, "export", cfg.ExportFile, "Optional export file path")
	flag.StringVar(&cfg.ExportFormat, "format", cfg.ExportFormat, "Export format: csv, json, dual, or parquet")
	flag.StringVar(&cfg.Sink, "sink", cfg.Sink, "Persistence sink: none, sqlite, pebble, or kafka")
	flag.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite database path")
	flag.StringVar(&cfg.PebbleDir, "pebble-dir", cfg.PebbleDir, "Pebble database directory")
	brokers := flag.String("kafka-brokers", strings.Join(cfg.KafkaBrokers, ","), "Comma-separated Kafka brokers")
	flag.StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "Kafka topic")
	flag.StringVar(&cfg.AIBaseURL, "base-url", cfg.AIBaseURL, "OpenAI-compatible API base URL")
	flag.StringVar(&cfg.AIModel, "model", cfg.AIModel, "Model name")
	flag.Float64Var(&cfg.AITemperature, "temperature", cfg.AITemperature, "Sampling temperature")
	flag.DurationVar(&cfg.AITimeout, "timeout", cfg.AITimeout, "Per-call generation timeout")
	flag.IntVar(&cfg.AIMaxRetries, "max-retries", cfg.AIMaxRetries, "Retries per product for transient generation errors")
	flag.DurationVar(&cfg.AIRetryBackoff, "retry-backoff", cfg.AIRetryBackoff, "Initial retry backoff")
	flag.DurationVar(&cfg.AIRetryBackoffMax, "retry-backoff-max", cfg.AIRetryBackoffMax, "Maximum retry backoff")
	flag.IntVar(&cfg.AIRequestsPerMinute, "rpm", cfg.AIRequestsPerMinute, "Generation requests per minute (0 = unlimited)")
	flag.BoolVar(&cfg.StructuredOutput, "structured", cfg.StructuredOutput, "Request JSON-schema structured output")
	flag.IntVar(&cfg.CacheSize, "cache-size", cfg.CacheSize, "Response cache entries (0 = disabled)")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Also write logs to this file (empty = stdout only)")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Enable verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: enhance [flags] <input.json> <store>\n\nstores: %s\n\n",
			strings.Join(normalizer.DefaultRegistry().Stores(), ", "))
		flag.PrintDefaults()
	}
	args, err := parseInterspersed(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg.KafkaBrokers = splitBrokers(*brokers)
	cfg.ExportFormat = strings.ToLower(cfg.ExportFormat)
	cfg.Sink = strings.ToLower(cfg.Sink)

	if len(args) != 2 {
		flag.Usage()
		os.Exit(2)
	}
	inputFile, storeName := args[0], strings.ToLower(args[1])

	logger, level, closeLog, err := newLogger(cfg.Verbose, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.AIAPIKey == "" {
		slog.Error("missing API key", slog.String("env", config.EnvAPIKey))
		os.Exit(1)
	}

	m := metrics.New()
	gen := enhancer.NewOpenAIGenerator(enhancer.OpenAIConfig{
		BaseURL:           cfg.AIBaseURL,
		APIKey:            cfg.AIAPIKey,
		Model:             cfg.AIModel,
		Temperature:       cfg.AITemperature,
		RequestsPerMinute: cfg.AIRequestsPerMinute,
		StructuredOutput:  cfg.StructuredOutput,
	})
	client, err := enhancer.NewClient(gen, enhancer.Options{
		Timeout:         cfg.AITimeout,
		MaxRetries:      cfg.AIMaxRetries,
		RetryBackoff:    cfg.AIRetryBackoff,
		RetryBackoffMax: cfg.AIRetryBackoffMax,
		CacheSize:       cfg.CacheSize,
		Metrics:         m,
		Logger:          logger,
	})
	if err != nil {
		slog.Error("initialising enhancer", slog.Any("error", err))
		os.Exit(1)
	}

	proc := processor.New(nil, client, logger)
	if !proc.Supports(storeName) {
		slog.Error("unsupported store",
			slog.String("store", storeName),
			slog.String("supported", strings.Join(proc.Stores(), ", ")),
		)
		os.Exit(1)
	}

	sink, closeSink, err := createSink(cfg)
	if err != nil {
		slog.Error("creating sink", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := closeSink(); err != nil {
			slog.Error("close sink", slog.Any("error", err))
		}
	}()

	var writer pipeline.OutputWriter
	if cfg.ExportFormat != "" {
		writer, err = pipeline.NewOutputWriter(cfg.ExportFormat, cfg.ExportFile)
		if err != nil {
			slog.Error("creating writer", slog.Any("error", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing the current product")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting enhancement",
		slog.String("file", inputFile),
		slog.String("store", storeName),
		slog.String("model", cfg.AIModel),
		slog.Int("batch_size", cfg.BatchSize),
		slog.String("sink", cfg.Sink),
	)

	orch := pipeline.NewOrchestrator(proc, pipeline.Options{
		BatchPause:    cfg.BatchPause,
		MaxProducts:   cfg.MaxProducts,
		SaveBatches:   cfg.SaveBatches,
		CheckpointDir: cfg.CheckpointDir,
		OutputDir:     cfg.OutputDir,
		Sink:          sink,
		Writer:        writer,
		Metrics:       m,
		Logger:        logger,
	})
	result, runErr := orch.ProcessFile(ctx, inputFile, storeName, cfg.BatchSize, cfg.ItemDelay)

	if writer != nil {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		} else if runErr == nil && result.Stats.Successful > 0 {
			if err := writer.Validate(); err != nil {
				slog.Error("output validation failed", slog.Any("error", err))
			}
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if runErr != nil {
		slog.Error("enhancement failed", slog.Any("error", runErr))
		if result == nil {
			os.Exit(1)
		}
	}
	if err := pipeline.WriteSummary(os.Stdout, result); err != nil {
		slog.Error("write summary", slog.Any("error", err))
	}
	if runErr != nil {
		os.Exit(1)
	}
}

func createSink(cfg *config.Config) (pipeline.Sink, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Sink {
	case "", "none":
		return nil, noop, nil
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case "pebble":
		s, err := store.NewPebbleStore(cfg.PebbleDir)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case "kafka":
		s := store.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported sink: %s", cfg.Sink)
	}
}

// parseInterspersed parses flags that may appear before, between or after
// positional arguments and returns the positionals in order.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func splitBrokers(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newLogger(verbose bool, logFile string) (*slog.Logger, *slog.LevelVar, func(), error) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	var out io.Writer = os.Stdout
	closeFn := func() {}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, nil, err
		}
		out = io.MultiWriter(os.Stdout, f)
		closeFn = func() { f.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler), level, closeFn, nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
