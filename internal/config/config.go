// Package config loads the engine's YAML configuration and builds the
// storage backend it describes.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vaultworks/playervaults/pkg/vault"
)

// Backend identifiers accepted in storage.backend.
const (
	BackendFile = "file"
	BackendSQL  = "sql"
)

// Defaults applied by Load.
const (
	DefaultRoot   = "data/vaults"
	DefaultDriver = vault.DriverSQLite
	DefaultDSN    = "data/vaults.db"
)

// ErrInvalid reports a configuration file the engine cannot start
// with.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the engine configuration surface.
type Config struct {
	// Debug enables verbose operation logging.
	Debug bool `yaml:"debug"`

	// DefaultRows is the container height (1-6) used when a vault has
	// no usable size. Out-of-range values are replaced with 6.
	DefaultRows int `yaml:"default_rows"`

	Storage StorageConfig `yaml:"storage"`
}

// StorageConfig selects and parameterizes the backend.
type StorageConfig struct {
	// Backend is "file" or "sql".
	Backend string `yaml:"backend"`

	File FileConfig `yaml:"file"`
	SQL  SQLConfig  `yaml:"sql"`
}

// FileConfig parameterizes the flat-file backend.
type FileConfig struct {
	// Root is the directory of per-owner vault files.
	Root string `yaml:"root"`

	// Backups rotates the previous owner file into a backups
	// directory before every overwrite.
	Backups bool `yaml:"backups"`

	// BackupsDir overrides the backups directory. Empty means a
	// "backups" directory next to Root.
	BackupsDir string `yaml:"backups_dir"`

	// BackupPassphrase, when set, encrypts rotated copies.
	BackupPassphrase string `yaml:"backup_passphrase"`
}

// SQLConfig parameterizes the relational backend.
type SQLConfig struct {
	// Driver is "sqlite3" or "postgres".
	Driver string `yaml:"driver"`

	// DSN is the driver-specific connection string.
	DSN string `yaml:"dsn"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultRows: vault.DefaultRows,
		Storage: StorageConfig{
			Backend: BackendFile,
			File:    FileConfig{Root: DefaultRoot, Backups: true},
			SQL:     SQLConfig{Driver: DefaultDriver, DSN: DefaultDSN},
		},
	}
}

// Load reads the configuration file at path. A missing file yields the
// defaults; a malformed or invalid file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	if c.DefaultRows < 1 || c.DefaultRows > vault.MaxRows {
		c.DefaultRows = vault.DefaultRows
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFile
	}
	if c.Storage.File.Root == "" {
		c.Storage.File.Root = DefaultRoot
	}
	if c.Storage.SQL.Driver == "" {
		c.Storage.SQL.Driver = DefaultDriver
	}
	if c.Storage.SQL.DSN == "" && c.Storage.SQL.Driver == vault.DriverSQLite {
		c.Storage.SQL.DSN = DefaultDSN
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQL:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalid, c.Storage.Backend)
	}
	if c.Storage.Backend == BackendSQL {
		switch c.Storage.SQL.Driver {
		case vault.DriverSQLite, vault.DriverPostgres:
		default:
			return fmt.Errorf("%w: unknown sql driver %q", ErrInvalid, c.Storage.SQL.Driver)
		}
		if c.Storage.SQL.DSN == "" {
			return fmt.Errorf("%w: sql dsn is required", ErrInvalid)
		}
	}
	return nil
}

// NewStorage builds the backend the configuration selects.
func (c *Config) NewStorage(logger *log.Logger) (vault.Storage, error) {
	switch c.Storage.Backend {
	case BackendSQL:
		return vault.NewSQLStorage(vault.SQLOptions{
			Driver:      c.Storage.SQL.Driver,
			DSN:         c.Storage.SQL.DSN,
			DefaultRows: c.DefaultRows,
			Logger:      logger,
			Debug:       c.Debug,
		})
	default:
		var passphrase []byte
		if c.Storage.File.BackupPassphrase != "" {
			passphrase = []byte(c.Storage.File.BackupPassphrase)
		}
		return vault.NewFileStorage(vault.FileOptions{
			Root:             c.Storage.File.Root,
			Backups:          c.Storage.File.Backups,
			BackupsDir:       c.Storage.File.BackupsDir,
			BackupPassphrase: passphrase,
			DefaultRows:      c.DefaultRows,
			Logger:           logger,
			Debug:            c.Debug,
		})
	}
}

// NewManager builds a manager over the configured backend.
func (c *Config) NewManager(logger *log.Logger) (*vault.Manager, error) {
	st, err := c.NewStorage(logger)
	if err != nil {
		return nil, err
	}
	return vault.NewManager(vault.Options{
		Storage:     st,
		DefaultRows: c.DefaultRows,
		Logger:      logger,
		Debug:       c.Debug,
	})
}
