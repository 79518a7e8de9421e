package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"isokernel/pkg/kernel"
)

const (
	envMaxTasks        = "ISOKERNEL_MAX_TASKS"
	envResourceSize    = "ISOKERNEL_RESOURCE_SIZE"
	envTaskFlagsSize   = "ISOKERNEL_TASK_FLAGS_SIZE"
	envSchedulerPeriod = "ISOKERNEL_SCHEDULER_PERIOD"
	envHTTPBind        = "ISOKERNEL_HTTP_BIND"
	envLockFile        = "ISOKERNEL_LOCK_FILE"
)

type runtimeConfig struct {
	Kernel kernelConfig
	HTTP   httpConfig
}

type kernelConfig struct {
	MaxTasks        int
	ResourceSize    int
	TaskFlagsSize   int
	SchedulerPeriod time.Duration
}

type httpConfig struct {
	Bind     string
	LockFile string
}

type fileConfig struct {
	Kernel kernelFileConfig `yaml:"kernel"`
	HTTP   httpFileConfig   `yaml:"http"`
}

type kernelFileConfig struct {
	MaxTasks        *int           `yaml:"maxTasks"`
	ResourceSize    *int           `yaml:"resourceSize"`
	TaskFlagsSize   *int           `yaml:"taskFlagsSize"`
	SchedulerPeriod *time.Duration `yaml:"schedulerPeriod"`
}

type httpFileConfig struct {
	Bind     *string `yaml:"bind"`
	LockFile *string `yaml:"lockFile"`
}

func defaultRuntimeConfig() runtimeConfig {
	defaults := kernel.DefaultConfig()

	var cfg runtimeConfig

	cfg.Kernel.MaxTasks = defaults.MaxTasks
	cfg.Kernel.ResourceSize = defaults.ResourceSize
	cfg.Kernel.TaskFlagsSize = defaults.TaskFlagsSize
	cfg.Kernel.SchedulerPeriod = time.Millisecond * time.Duration(defaults.SchedulerPeriod.Ms)

	cfg.HTTP.Bind = ":9108"
	cfg.HTTP.LockFile = "/var/run/isokernel.lock"

	return cfg
}

func loadConfig(path string) (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()

	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		applyEnvOverrides(&cfg)

		return cfg, nil
	}

	data, err := os.ReadFile(trimmed)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return runtimeConfig{}, fmt.Errorf("read config file %q: %w", trimmed, err)
		}
	} else {
		var fileCfg fileConfig

		err := yaml.Unmarshal(data, &fileCfg)
		if err != nil {
			return runtimeConfig{}, fmt.Errorf("decode config file %q: %w", trimmed, err)
		}

		mergeKernelConfig(&cfg.Kernel, fileCfg.Kernel)
		mergeHTTPConfig(&cfg.HTTP, fileCfg.HTTP)
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func mergeKernelConfig(dst *kernelConfig, src kernelFileConfig) {
	assignInt(&dst.MaxTasks, src.MaxTasks)
	assignInt(&dst.ResourceSize, src.ResourceSize)
	assignInt(&dst.TaskFlagsSize, src.TaskFlagsSize)
	assignDuration(&dst.SchedulerPeriod, src.SchedulerPeriod)
}

func mergeHTTPConfig(dst *httpConfig, src httpFileConfig) {
	assignString(&dst.Bind, src.Bind)
	assignString(&dst.LockFile, src.LockFile)
}

func applyEnvOverrides(cfg *runtimeConfig) {
	cfg.Kernel.MaxTasks = envInt(envMaxTasks, cfg.Kernel.MaxTasks)
	cfg.Kernel.ResourceSize = envInt(envResourceSize, cfg.Kernel.ResourceSize)
	cfg.Kernel.TaskFlagsSize = envInt(envTaskFlagsSize, cfg.Kernel.TaskFlagsSize)
	cfg.Kernel.SchedulerPeriod = envDuration(envSchedulerPeriod, cfg.Kernel.SchedulerPeriod)
	cfg.HTTP.Bind = envString(envHTTPBind, cfg.HTTP.Bind)
	cfg.HTTP.LockFile = envString(envLockFile, cfg.HTTP.LockFile)

	defaults := defaultRuntimeConfig()

	if cfg.Kernel.MaxTasks <= 0 {
		cfg.Kernel.MaxTasks = defaults.Kernel.MaxTasks
	}

	if cfg.Kernel.SchedulerPeriod <= 0 {
		cfg.Kernel.SchedulerPeriod = defaults.Kernel.SchedulerPeriod
	}
}

func assignInt(target *int, value *int) {
	if value != nil {
		*target = *value
	}
}

func assignDuration(target *time.Duration, value *time.Duration) {
	if value != nil {
		*target = *value
	}
}

func assignString(target *string, value *string) {
	if value != nil {
		*target = strings.TrimSpace(*value)
	}
}

var lookupEnv = os.LookupEnv //nolint:gochecknoglobals // overridden in tests

func envInt(key string, fallback int) int {
	value, ok := lookupEnv(key)
	if !ok {
		return fallback
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value, ok := lookupEnv(key)
	if !ok {
		return fallback
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}

	duration, err := time.ParseDuration(trimmed)
	if err != nil {
		return fallback
	}

	return duration
}

func envString(key, fallback string) string {
	value, ok := lookupEnv(key)
	if !ok {
		return fallback
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}

	return trimmed
}
