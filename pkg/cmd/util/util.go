// Package util contains the setup shared by the commands.
package util

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/sessionreplay/log"
	"github.com/mpapenbr/sessionreplay/pkg/config"
	"github.com/mpapenbr/sessionreplay/pkg/db/postgres"
	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/source"
	"github.com/mpapenbr/sessionreplay/pkg/source/cache"
	"github.com/mpapenbr/sessionreplay/pkg/source/file"
	pgsource "github.com/mpapenbr/sessionreplay/pkg/source/postgres"
	"github.com/mpapenbr/sessionreplay/pkg/utils"
)

const (
	SourceFile  = "file"
	SourceDB    = "db"
	SourceCache = "cache"
)

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger installs the default logger according to the log flags.
// The second logger is used for sql tracing.
func SetupLogger() (logger, sqlLogger *log.Logger, err error) {
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	if config.LogFilter != "" {
		filter, filterErr := log.WithFilter(config.LogFilter)
		if filterErr != nil {
			return nil, nil, fmt.Errorf("invalid log filter: %w", filterErr)
		}
		opts = append(opts, filter)
	}
	switch config.LogFormat {
	case "json":
		logger = log.New(os.Stderr,
			ParseLogLevel(config.LogLevel, log.InfoLevel), opts...)
		sqlLogger = log.New(os.Stderr,
			ParseLogLevel(config.SQLLogLevel, log.InfoLevel), opts...)
	default:
		logger = log.DevLogger(os.Stderr,
			ParseLogLevel(config.LogLevel, log.InfoLevel), opts...)
		sqlLogger = log.DevLogger(os.Stderr,
			ParseLogLevel(config.SQLLogLevel, log.InfoLevel), opts...)
	}
	log.ResetDefault(logger)
	return logger, sqlLogger.Named("sql"), nil
}

// SetupTelemetry starts telemetry if enabled. The returned function
// shuts it down and is never nil.
func SetupTelemetry(ctx context.Context) func() {
	if !config.EnableTelemetry {
		return func() {}
	}
	log.Info("Enabling telemetry", log.String("endpoint", config.TelemetryEndpoint))
	telemetry, err := config.SetupTelemetry(ctx)
	if err != nil {
		log.Warn("Could not setup telemetry", log.ErrorField(err))
		return func() {}
	}
	err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
	if err != nil {
		log.Warn("Could not start runtime metrics", log.ErrorField(err))
	}
	return telemetry.Shutdown
}

// WaitForServices waits for the database and NATS server if they are used
func WaitForServices(ctx context.Context, useDB, useNats bool) error {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	addrs := make([]string, 0, 2)
	if useDB {
		addrs = append(addrs, utils.ExtractFromDBURL(config.DB))
	}
	if useNats && config.NatsURL != "" {
		addrs = append(addrs, utils.ExtractFromNatsURL(config.NatsURL))
	}
	log.Debug("Waiting for connection checks to return", log.Strings("addrs", addrs))
	if err := utils.WaitForServices(ctx, timeout, addrs...); err != nil {
		return fmt.Errorf("required services not ready: %w", err)
	}
	return nil
}

// NewPool connects to the capture database
func NewPool(ctx context.Context, sqlLogger *log.Logger) (*pgxpool.Pool, error) {
	tracers := []postgres.PoolConfigOption{}
	if config.EnableTelemetry {
		tracers = append(tracers, postgres.WithTracer(
			postgres.NewMyTracer(sqlLogger, sqlLogger.Level()),
			postgres.NewOtlpTracer()))
	} else {
		tracers = append(tracers, postgres.WithTracer(
			postgres.NewMyTracer(sqlLogger, sqlLogger.Level())))
	}
	return postgres.InitWithUrl(ctx, config.DB, tracers...)
}

// Selection builds the session selection from the command flags.
// A zero selection is returned if no flag was given.
func Selection(cfg *config.Config) (model.SessionSelection, error) {
	sel := model.SessionSelection{
		Year:    cfg.Year,
		Event:   cfg.Event,
		Session: model.SessionIdentifier(strings.ToUpper(cfg.Session)),
	}
	if sel == (model.SessionSelection{}) {
		return sel, nil
	}
	if err := sel.Validate(""); err != nil {
		return sel, err
	}
	if sel.Session == "" {
		return sel, fmt.Errorf("session must not be empty")
	}
	return sel, nil
}

// SourceHandle is an opened session source.
// Close releases database connections.
type SourceHandle struct {
	Source source.Source
	Store  source.Store
	Close  func()
}

// OpenSource opens the source named by kind (file, db or cache).
// With cfg.ReadThrough a db source is read through the local cache.
func OpenSource(
	ctx context.Context,
	kind string,
	cfg *config.Config,
	sqlLogger *log.Logger,
) (*SourceHandle, error) {
	switch kind {
	case SourceFile:
		if cfg.File == "" {
			return nil, fmt.Errorf("--file is required for source %s", kind)
		}
		return &SourceHandle{Source: file.New(cfg.File), Close: func() {}}, nil
	case SourceDB:
		if err := WaitForServices(ctx, true, false); err != nil {
			return nil, err
		}
		pool, err := NewPool(ctx, sqlLogger)
		if err != nil {
			return nil, err
		}
		src := pgsource.New(pool)
		if !cfg.ReadThrough {
			return &SourceHandle{Source: src, Store: src, Close: pool.Close}, nil
		}
		c, err := cache.Open(config.CacheDir)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return &SourceHandle{
			Source: cache.NewReadThrough(c, src),
			Store:  src,
			Close: func() {
				c.Close()
				pool.Close()
			},
		}, nil
	case SourceCache:
		c, err := cache.Open(config.CacheDir)
		if err != nil {
			return nil, err
		}
		return &SourceHandle{
			Source: c,
			Store:  c,
			Close:  func() { c.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unknown source %q (file, db, cache)", kind)
	}
}

// Lister is implemented by sources which can enumerate their sessions
type Lister interface {
	List(ctx context.Context) ([]model.SessionSelection, error)
}

// DefaultCacheDir returns the cache location below the user's cache dir
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".srp-cache"
	}
	return filepath.Join(dir, "srp")
}

func AddSelectionFlags(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().IntVar(&cfg.Year, "year", 0, "year of the event")
	cmd.Flags().StringVar(&cfg.Event, "event", "", "name of the event")
	cmd.Flags().StringVar(&cfg.Session, "session", "",
		"session identifier (FP1, FP2, FP3, Q, S, SQ, R)")
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// OpenOutput returns stdout for "" and "-", otherwise the created file
func OpenOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
