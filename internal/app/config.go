package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	coreconfig "github.com/m3rciful/tripbot/core/config"
	coredatabase "github.com/m3rciful/tripbot/core/database"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const defaultHTTPListen = ":8080"

// StorageConfig selects where trip logs and the fleet table live.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	// Dir holds the transport_data_<trip>.csv files.
	Dir        string              `yaml:"dir" envconfig:"STORAGE_DIR"`
	LastKMFile string              `yaml:"last_km_file" envconfig:"STORAGE_LAST_KM_FILE"`
	SQLitePath string              `yaml:"sqlite_path" envconfig:"STORAGE_SQLITE_PATH"`
	Postgres   coredatabase.Config `yaml:"postgres"`
}

// HTTPConfig configures the liveness and metrics listener. Listen "off" disables it.
type HTTPConfig struct {
	Listen string `yaml:"listen" envconfig:"HTTP_LISTEN"`
}

// Config is the complete tripbot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Storage StorageConfig `yaml:"storage"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// HTTPEnabled reports whether the health listener should run.
func (c *Config) HTTPEnabled() bool {
	return !strings.EqualFold(c.HTTP.Listen, "off")
}

// Load reads path (optional) and the environment, then validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the core and storage sections and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	st := &cfg.Storage
	st.Driver = strings.ToLower(strings.TrimSpace(st.Driver))
	if st.Driver == "" {
		st.Driver = DriverFile
	}
	if strings.TrimSpace(st.Dir) == "" {
		st.Dir = "."
	}
	if strings.TrimSpace(st.LastKMFile) == "" {
		st.LastKMFile = filepath.Join(st.Dir, "last_km.csv")
	}
	if strings.TrimSpace(st.SQLitePath) == "" {
		st.SQLitePath = filepath.Join(st.Dir, "tripbot.db")
	}

	switch st.Driver {
	case DriverFile, DriverSQLite, DriverMemory:
	case DriverPostgres:
		if st.Postgres.Host == "" || st.Postgres.Name == "" {
			return errors.New("storage.postgres.host and storage.postgres.name are required for the postgres driver")
		}
		if st.Postgres.Port == "" {
			st.Postgres.Port = "5432"
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: file, sqlite, postgres, memory", cfg.Storage.Driver)
	}

	cfg.HTTP.Listen = strings.TrimSpace(cfg.HTTP.Listen)
	if cfg.HTTP.Listen == "" {
		cfg.HTTP.Listen = defaultHTTPListen
	}
	return nil
}
