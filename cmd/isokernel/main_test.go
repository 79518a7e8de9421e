package main

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"isokernel/internal/buildinfo"
)

func TestParseArgsDefaults(t *testing.T) {
	t.Parallel()

	opts, err := parseArgs(nil)
	if err != nil {
		t.Fatalf("parseArgs returned error: %v", err)
	}

	if opts.configPath != defaultConfigPath {
		t.Fatalf("expected default config path, got %q", opts.configPath)
	}

	if opts.logLevel != defaultLogLevel {
		t.Fatalf("expected default log level, got %q", opts.logLevel)
	}

	if opts.runFor != 0 {
		t.Fatalf("expected runFor default to be 0, got %v", opts.runFor)
	}
}

func TestParseArgsValidCustomizations(t *testing.T) {
	t.Parallel()

	args := []string{
		"--config", "./testdata/config.yaml",
		"--log-level", "debug",
		"--bind", ":9500",
		"--run-for", "200ms",
	}

	opts, err := parseArgs(args)
	if err != nil {
		t.Fatalf("parseArgs returned error: %v", err)
	}

	if opts.configPath != "./testdata/config.yaml" {
		t.Fatalf("unexpected config path: %q", opts.configPath)
	}

	if opts.logLevel != "debug" {
		t.Fatalf("unexpected log level: %q", opts.logLevel)
	}

	if opts.bind != ":9500" {
		t.Fatalf("unexpected bind: %q", opts.bind)
	}

	if opts.runFor != 200*time.Millisecond {
		t.Fatalf("unexpected runFor: %v", opts.runFor)
	}
}

func TestParseArgsRejectsNegativeRunFor(t *testing.T) {
	t.Parallel()

	_, err := parseArgs([]string{"--run-for", "-5s"})
	if err == nil {
		t.Fatal("expected error for negative run-for duration")
	}

	if !errors.Is(err, errInvalidRunFor) {
		t.Fatalf("expected errInvalidRunFor, got %v", err)
	}
}

func TestParseArgsReturnsFlagError(t *testing.T) {
	t.Parallel()

	_, err := parseArgs([]string{"--unknown-flag"})
	if err == nil {
		t.Fatal("expected flag parsing error")
	}
}

func TestNewLoggerRejectsInvalidLevel(t *testing.T) {
	t.Parallel()

	_, err := newLogger("not-a-level")
	if err == nil {
		t.Fatal("expected error when creating logger with invalid level")
	}
}

func TestNewLoggerAppliesLevel(t *testing.T) {
	t.Parallel()

	logger, err := newLogger("debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defer func() {
		_ = logger.Sync()
	}()

	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected logger to enable debug level")
	}
}

func TestRunSuccessfulPath(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	lockPath := filepath.Join(t.TempDir(), "isokernel.lock")

	deps := runDeps{
		newLogger: func(level string) (*zap.Logger, error) {
			if level != "debug" {
				t.Fatalf("expected log level \"debug\", got %q", level)
			}

			return logger, nil
		},
		loadConfig: func(string) (runtimeConfig, error) {
			cfg := defaultRuntimeConfig()
			cfg.HTTP.Bind = "127.0.0.1:0"
			cfg.Kernel.SchedulerPeriod = 2 * time.Millisecond

			return cfg, nil
		},
		newLock: flock.New,
	}

	exitCode := run(
		t.Context(),
		[]string{"--log-level", "debug", "--run-for", "20ms"},
		deps,
		io.Discard,
	)
	if exitCode != exitCodeSuccess {
		t.Fatalf("expected zero exit code, got %d", exitCode)
	}

	entries := observed.FilterMessage("starting isokernel").All()
	if len(entries) != 1 {
		t.Fatalf("expected one startup log entry, got %+v", observed.All())
	}

	_ = lockPath
	_ = buildinfo.Current
}

func TestRunFailsWhenLockHeld(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "isokernel.lock")

	holder := flock.New(lockPath)

	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("failed to pre-acquire lock: locked=%v err=%v", locked, err)
	}

	defer func() {
		_ = holder.Unlock()
	}()

	deps := runDeps{
		newLogger: func(string) (*zap.Logger, error) { return zap.NewNop(), nil },
		loadConfig: func(string) (runtimeConfig, error) {
			cfg := defaultRuntimeConfig()
			cfg.HTTP.LockFile = lockPath
			cfg.HTTP.Bind = "127.0.0.1:0"

			return cfg, nil
		},
		newLock: flock.New,
	}

	exitCode := run(t.Context(), nil, deps, io.Discard)
	if exitCode != exitCodeRuntimeError {
		t.Fatalf("expected runtime error exit code when lock is held, got %d", exitCode)
	}
}

func TestRunReturnsParseErrorExitCode(t *testing.T) {
	t.Parallel()

	var stderr errorCollector

	exitCode := run(t.Context(), []string{"--run-for", "-1s"}, defaultRunDeps(), &stderr)
	if exitCode != exitCodeParseError {
		t.Fatalf("expected exit code 2 for parse errors, got %d", exitCode)
	}
}

func TestRunReturnsLoggerConfigurationError(t *testing.T) {
	t.Parallel()

	deps := defaultRunDeps()
	deps.newLogger = func(string) (*zap.Logger, error) {
		return nil, errors.New("logger failure")
	}

	exitCode := run(t.Context(), nil, deps, io.Discard)
	if exitCode != exitCodeRuntimeError {
		t.Fatalf("expected exit code 1 when logger configuration fails, got %d", exitCode)
	}
}

type errorCollector struct{}

func (errorCollector) Write(p []byte) (int, error) { return len(p), nil }
