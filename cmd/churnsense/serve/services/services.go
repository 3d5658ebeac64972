// Package services builds the long-lived components shared by the serve
// commands: loggers, the prediction store, the event publisher and the
// publishing worker pool.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/papercomputeco/churnsense/pkg/config"
	"github.com/papercomputeco/churnsense/pkg/eventstream"
	"github.com/papercomputeco/churnsense/pkg/eventstream/kafka"
	"github.com/papercomputeco/churnsense/pkg/eventstream/nop"
	"github.com/papercomputeco/churnsense/pkg/logger"
	"github.com/papercomputeco/churnsense/pkg/metrics"
	"github.com/papercomputeco/churnsense/pkg/storage"
	"github.com/papercomputeco/churnsense/pkg/storage/cache"
	"github.com/papercomputeco/churnsense/pkg/storage/inmemory"
	"github.com/papercomputeco/churnsense/pkg/storage/postgres"
	"github.com/papercomputeco/churnsense/pkg/storage/sqlite"
	"github.com/papercomputeco/churnsense/pkg/worker"
)

// NewLogger returns the pretty console logger for component, fanned out to a
// JSON log at logFile when set. The returned func closes the log file.
func NewLogger(component string, debug bool, logFile string) (*slog.Logger, func() error, error) {
	console := logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(true),
		logger.WithComponent(component),
		logger.WithWriter(os.Stderr),
	)
	if logFile == "" {
		return console, func() error { return nil }, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(true),
		logger.WithComponent(component),
		logger.WithWriter(f),
	)
	return logger.Multi(console, file), f.Close, nil
}

// NewStorageDriver opens the prediction store selected by cfg: PostgreSQL,
// then SQLite, then in-memory. A positive CacheSize wraps it in an LRU cache.
func NewStorageDriver(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (storage.Driver, error) {
	var (
		driver storage.Driver
		err    error
	)

	switch {
	case cfg.PostgresDSN != "":
		driver, err = postgres.NewDriver(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		log.Info("using PostgreSQL storage")

	case cfg.SQLitePath != "":
		driver, err = sqlite.NewDriver(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		log.Info("using SQLite storage", "path", cfg.SQLitePath)

	default:
		driver = inmemory.NewDriver()
		log.Info("using in-memory storage")
	}

	if cfg.CacheSize == 0 {
		return driver, nil
	}

	cached, err := cache.New(driver, int(cfg.CacheSize))
	if err != nil {
		driver.Close()
		return nil, err
	}
	log.Debug("prediction cache enabled", "size", cfg.CacheSize)
	return cached, nil
}

// NewPublisher returns a Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func NewPublisher(cfg config.EventStreamConfig, log *slog.Logger) (eventstream.Publisher, error) {
	brokers := SplitList(cfg.KafkaBrokers)
	if len(brokers) == 0 {
		log.Info("prediction events disabled")
		return nop.NewPublisher(), nil
	}

	p, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   cfg.KafkaTopic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	log.Info("publishing prediction events to kafka",
		"brokers", brokers,
		"topic", cfg.KafkaTopic,
	)
	return p, nil
}

// NewPool starts the worker pool publishing saved predictions.
func NewPool(publisher eventstream.Publisher, m *metrics.Metrics, log *slog.Logger) (*worker.Pool, error) {
	return worker.NewPool(&worker.Config{
		Publisher: publisher,
		Service:   "churnsense-api",
		Metrics:   m,
		Logger:    log,
	})
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// RestartNotice returns a config watch callback that warns about settings
// changed on disk since running was loaded. Running servers don't reload.
func RestartNotice(running *config.Config, log *slog.Logger) func(*config.Config) {
	return func(next *config.Config) {
		if changed := config.Diff(running, next); len(changed) > 0 {
			log.Warn("config file changed, restart to apply", "keys", changed)
		}
	}
}
