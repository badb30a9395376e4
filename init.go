package dbfixture

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	chlog "github.com/charmbracelet/log"

	"github.com/nu0ma/dbfixture/internal/config"
	"github.com/nu0ma/dbfixture/internal/database"
	"github.com/nu0ma/dbfixture/internal/logging"
	"github.com/nu0ma/dbfixture/internal/spanner"
)

const (
	DefaultConfigFile = config.DefaultConfigFile
	DriverSpanner     = "spanner"
)

type (
	Settings = config.Settings
	Keys     = config.Keys
)

var ErrMissingKey = config.ErrMissingKey

func DefaultKeys() Keys {
	return config.DefaultKeys()
}

type initOptions struct {
	keys         Keys
	emulatorHost string
	logger       *chlog.Logger
}

type InitOption func(*initOptions)

// WithKeys overrides the property names read from the config file.
func WithKeys(keys Keys) InitOption {
	return func(o *initOptions) { o.keys = keys }
}

// WithEmulatorHost connects Spanner backends to an emulator.
func WithEmulatorHost(host string) InitOption {
	return func(o *initOptions) { o.emulatorHost = host }
}

func WithInitLogger(l *chlog.Logger) InitOption {
	return func(o *initOptions) { o.logger = l }
}

func newInitOptions(opts []InitOption) *initOptions {
	o := &initOptions{keys: DefaultKeys()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.L()
	}
	return o
}

// LoadSettings reads connection settings from a properties file. An empty
// path means DefaultConfigFile.
func LoadSettings(path string, keys Keys) (*Settings, error) {
	if path == "" {
		path = DefaultConfigFile
	}
	return config.LoadSettings(path, keys)
}

// InitDatabase loads configFile, opens the database it names and runs its
// init script once.
func InitDatabase(ctx context.Context, configFile string, opts ...InitOption) (Backend, error) {
	o := newInitOptions(opts)
	settings, err := LoadSettings(configFile, o.keys)
	if err != nil {
		o.logger.Error("Failed to load config", "file", configFile, "error", err)
		return nil, err
	}
	return openDatabase(ctx, settings, o)
}

// OpenDatabase opens the database described by settings and runs the init
// script. A script that is a directory is applied as goose migrations.
func OpenDatabase(ctx context.Context, settings *Settings, opts ...InitOption) (Backend, error) {
	return openDatabase(ctx, settings, newInitOptions(opts))
}

func openDatabase(ctx context.Context, settings *Settings, o *initOptions) (Backend, error) {
	if settings == nil {
		return nil, errors.New("nil settings")
	}

	var (
		b   Backend
		err error
	)
	if strings.EqualFold(settings.Driver, DriverSpanner) {
		b, err = openSpanner(ctx, settings, o)
	} else {
		b, err = openSQL(ctx, settings)
	}
	if err != nil {
		o.logger.Error("Database initialization failed", "driver", settings.Driver, "error", err)
		return nil, err
	}

	o.logger.Info("Database initialized", "driver", settings.Driver, "script", settings.Script)
	return b, nil
}

func openSQL(ctx context.Context, settings *Settings) (Backend, error) {
	dsn := database.DataSourceName(settings.Driver, settings.URL, settings.User, settings.Password)
	db, err := database.Open(ctx, settings.Driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := runSQLScript(ctx, db, settings); err != nil {
		db.Close()
		return nil, err
	}
	return NewSQLBackend(db, settings.Driver), nil
}

func runSQLScript(ctx context.Context, db *sql.DB, settings *Settings) error {
	if settings.Script == "" {
		return nil
	}
	info, err := os.Stat(settings.Script)
	if err != nil {
		return fmt.Errorf("init script: %w", err)
	}
	if info.IsDir() {
		return database.RunMigrations(ctx, db, settings.Driver, settings.Script)
	}
	return database.RunScriptFile(ctx, db, settings.Script)
}

func openSpanner(ctx context.Context, settings *Settings, o *initOptions) (Backend, error) {
	client, err := spanner.NewClient(ctx, settings.URL, spanner.Options{EmulatorHost: o.emulatorHost})
	if err != nil {
		return nil, err
	}

	if err := runSpannerScript(ctx, client, settings.Script); err != nil {
		client.Close()
		return nil, err
	}
	return &SpannerBackend{client: client}, nil
}

func runSpannerScript(ctx context.Context, client *spanner.Client, script string) error {
	if script == "" {
		return nil
	}
	info, err := os.Stat(script)
	if err != nil {
		return fmt.Errorf("init script: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("init script %s: migration directories are not supported for spanner", script)
	}

	b, err := os.ReadFile(script)
	if err != nil {
		return fmt.Errorf("reading init script: %w", err)
	}
	return client.RunStatements(ctx, database.SplitStatements(string(b)))
}
