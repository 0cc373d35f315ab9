// Package app provides the application context and dependency management
// for the annotload CLI. It centralizes configuration, logging and the
// annotation store handle so commands stay thin.
package app

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/annotbase/annotload/internal/store"
	"github.com/annotbase/annotload/internal/store/postgres"
	"github.com/annotbase/annotload/internal/store/sqlite"
	"github.com/annotbase/annotload/pkg/errors"
)

// App represents the annotload application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Store handle (lazy-initialized, singleton)
	mu    sync.Mutex
	store store.Store
}

// New creates a new App instance with the given version information.
func New(version, commit, date string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.NewConfigError("app", "cannot load configuration", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version string.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// Store returns the annotation store, opening it lazily from the
// configured DSN. A postgres:// or postgresql:// DSN selects the
// Postgres store; anything else is treated as a SQLite path, with the
// empty string meaning an in-memory database.
func (a *App) Store(ctx context.Context) (store.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store != nil {
		return a.store, nil
	}

	dsn := a.config.StoreDSN
	var (
		st  store.Store
		err error
	)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		st, err = postgres.Open(ctx, dsn)
	} else {
		st, err = sqlite.Open(dsn)
	}
	if err != nil {
		return nil, err
	}

	a.store = st
	return st, nil
}

// Shutdown closes the store handle if one was opened.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithStore sets a custom store instance (useful for testing).
func WithStore(st store.Store) Option {
	return func(a *App) error {
		a.store = st
		return nil
	}
}
