// Package main wires the isokernel CLI entrypoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"isokernel/internal/buildinfo"
	metricshttp "isokernel/pkg/http/metrics"
	statushttp "isokernel/pkg/http/status"
	"isokernel/pkg/kernel"
	"isokernel/pkg/klog"
)

const (
	defaultConfigPath = "/etc/isokernel/config.yaml"
	defaultLogLevel   = "info"

	exitCodeSuccess      = 0
	exitCodeRuntimeError = 1
	exitCodeParseError   = 2
)

func main() {
	code := run(context.Background(), os.Args[1:], defaultRunDeps(), os.Stderr)
	if code != 0 {
		os.Exit(code)
	}
}

type runDeps struct {
	newLogger  func(level string) (*zap.Logger, error)
	loadConfig func(path string) (runtimeConfig, error)
	newLock    func(path string) *flock.Flock
}

func defaultRunDeps() runDeps {
	return runDeps{
		newLogger:  newLogger,
		loadConfig: loadConfig,
		newLock:    flock.New,
	}
}

func run(ctx context.Context, args []string, deps runDeps, stderr io.Writer) int {
	opts, err := parseArgs(args)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)

		return exitCodeParseError
	}

	logger, err := deps.newLogger(opts.logLevel)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "failed to configure logger: %v\n", err)

		return exitCodeRuntimeError
	}

	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := deps.loadConfig(opts.configPath)
	if err != nil {
		logger.Error("failed to load configuration", zap.Error(err))

		return exitCodeRuntimeError
	}

	if opts.bind != "" {
		cfg.HTTP.Bind = opts.bind
	}

	info := buildinfo.Current()
	logger.Info(
		"starting isokernel",
		zap.String("version", info.Version),
		zap.String("commit", info.GitCommit),
		zap.String("buildDate", info.BuildDate),
		zap.String("configPath", opts.configPath),
		zap.Int("maxTasks", cfg.Kernel.MaxTasks),
		zap.Duration("schedulerPeriod", cfg.Kernel.SchedulerPeriod),
	)

	lock := deps.newLock(cfg.HTTP.LockFile)

	locked, err := lock.TryLock()
	if err != nil {
		logger.Error("failed to acquire single-instance lock", zap.Error(err))

		return exitCodeRuntimeError
	}

	if !locked {
		logger.Error("another isokernel instance already holds the lock", zap.String("lockFile", cfg.HTTP.LockFile))

		return exitCodeRuntimeError
	}

	// Shutdown touches two independent fallible resources — the status/metrics
	// HTTP server (closed inside runKernel) and this single-instance lock —
	// so their failures are combined rather than the second silently
	// shadowing the first.
	var cleanupErr error

	defer func() {
		cleanupErr = multierr.Append(cleanupErr, lock.Unlock())
		if cleanupErr != nil {
			logger.Error("shutdown cleanup failed", zap.Error(cleanupErr))
		}
	}()

	runCtx := ctx
	if opts.runFor > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, opts.runFor)
		defer cancel()
	}

	exitCode, runErr := runKernel(runCtx, cfg, logger, &cleanupErr)
	if runErr != nil {
		logger.Error("kernel run failed", zap.Error(runErr))

		return exitCodeRuntimeError
	}

	return exitCode
}

func runKernel(ctx context.Context, cfg runtimeConfig, logger *zap.Logger, cleanupErr *error) (int, error) {
	observer := klog.New(logger)

	k := kernel.New(kernel.Config{
		MaxTasks:      cfg.Kernel.MaxTasks,
		ResourceSize:  cfg.Kernel.ResourceSize,
		TaskFlagsSize: cfg.Kernel.TaskFlagsSize,
	}, observer)

	if err := registerDemoTasks(k, logger); err != nil {
		return exitCodeRuntimeError, fmt.Errorf("register demo tasks: %w", err)
	}

	exporter := metricshttp.NewExporter()
	statusHandler := statushttp.NewHandler(k)

	mux := http.NewServeMux()
	mux.Handle("/status", statusHandler)
	mux.Handle("/metrics", exporter)

	server := &http.Server{ //nolint:exhaustruct // zero-value fields are intentional
		Addr:              cfg.HTTP.Bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrs := make(chan error, 1)

	go func() {
		serverErrs <- server.ListenAndServe()
	}()

	runner := NewCooperativeRunner(k, cfg.Kernel.SchedulerPeriod)
	runErr := runner.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	*cleanupErr = multierr.Append(*cleanupErr, server.Shutdown(shutdownCtx))

	select {
	case err := <-serverErrs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitCodeRuntimeError, fmt.Errorf("status/metrics server: %w", err)
		}
	default:
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return exitCodeRuntimeError, fmt.Errorf("kernel run: %w", runErr)
	}

	return exitCodeSuccess, nil
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = defaultLogLevel
	}

	cfg := zap.NewProductionConfig()

	err := cfg.Level.UnmarshalText([]byte(level))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.CallerKey = "caller"

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	return logger, nil
}

type options struct {
	configPath string
	logLevel   string
	bind       string
	runFor     time.Duration
}

func parseArgs(args []string) (options, error) {
	var opts options

	flagSet := flag.NewFlagSet("isokernel", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to the kernel configuration file")
	flagSet.StringVar(&opts.logLevel, "log-level", defaultLogLevel, "Structured log level (debug, info, warn, error)")
	flagSet.StringVar(&opts.bind, "bind", "", "HTTP bind address for /status and /metrics, overriding config")

	var runFor time.Duration

	flagSet.DurationVar(&runFor, "run-for", 0, "Stop the kernel after this duration (0 runs until canceled)")

	err := flagSet.Parse(args)
	if err != nil {
		return options{}, fmt.Errorf("parse CLI arguments: %w", err)
	}

	if runFor < 0 {
		return options{}, fmt.Errorf("%w: %s", errInvalidRunFor, runFor)
	}

	opts.runFor = runFor

	opts.logLevel = strings.TrimSpace(opts.logLevel)
	if opts.logLevel == "" {
		opts.logLevel = defaultLogLevel
	}

	opts.configPath = strings.TrimSpace(opts.configPath)
	if opts.configPath == "" {
		opts.configPath = defaultConfigPath
	}

	opts.bind = strings.TrimSpace(opts.bind)

	return opts, nil
}

var (
	errInvalidLogLevel = errors.New("invalid log level")
	errInvalidRunFor   = errors.New("run-for must not be negative")
)
