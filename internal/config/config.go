package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/magiconair/properties"
)

const (
	DefaultConfigFile = "server.properties"
	DefaultDriver     = "sqlite"
	DefaultURL        = ":memory:"
)

var ErrMissingKey = errors.New("missing configuration key")

// Keys names the properties holding each connection setting.
type Keys struct {
	URL      string
	User     string
	Password string
	Script   string
	Driver   string
}

func DefaultKeys() Keys {
	return Keys{
		URL:      "dataSource.url",
		User:     "dataSource.user",
		Password: "dataSource.password",
		Script:   "initTableSql",
		Driver:   "dataSourceClassName",
	}
}

// Settings are the connection parameters read from a properties file.
type Settings struct {
	Driver   string
	URL      string
	User     string
	Password string
	// Script is the init script or migrations directory, resolved against
	// the directory holding the properties file. Empty means none.
	Script string
}

func LoadSettings(path string, keys Keys) (*Settings, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	s := &Settings{
		Driver:   p.GetString(keys.Driver, DefaultDriver),
		URL:      p.GetString(keys.URL, DefaultURL),
		User:     p.GetString(keys.User, ""),
		Password: p.GetString(keys.Password, ""),
	}
	if script := p.GetString(keys.Script, ""); script != "" {
		s.Script = resolve(filepath.Dir(path), script)
	}

	if err := validateSettings(s); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

func resolve(base, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(base, name)
}

func validateSettings(s *Settings) error {
	if s.Driver == "" {
		return fmt.Errorf("%w: driver", ErrMissingKey)
	}
	if s.URL == "" {
		return fmt.Errorf("%w: url", ErrMissingKey)
	}
	return nil
}
