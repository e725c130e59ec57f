package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vaultworks/playervaults/pkg/vault"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Backend != BackendFile {
		t.Errorf("backend = %q, want %q", cfg.Storage.Backend, BackendFile)
	}
	if cfg.Storage.File.Root != DefaultRoot {
		t.Errorf("root = %q, want %q", cfg.Storage.File.Root, DefaultRoot)
	}
	if !cfg.Storage.File.Backups {
		t.Error("backups should default on")
	}
	if cfg.DefaultRows != vault.DefaultRows {
		t.Errorf("default rows = %d, want %d", cfg.DefaultRows, vault.DefaultRows)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := writeConfig(t, `
debug: true
default_rows: 3
storage:
  backend: sql
  sql:
    driver: postgres
    dsn: "host=db user=vaults dbname=vaults"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Debug {
		t.Error("debug not parsed")
	}
	if cfg.DefaultRows != 3 {
		t.Errorf("default rows = %d, want 3", cfg.DefaultRows)
	}
	if cfg.Storage.Backend != BackendSQL {
		t.Errorf("backend = %q, want %q", cfg.Storage.Backend, BackendSQL)
	}
	if cfg.Storage.SQL.Driver != vault.DriverPostgres {
		t.Errorf("driver = %q, want %q", cfg.Storage.SQL.Driver, vault.DriverPostgres)
	}
}

func TestLoadNormalizesRows(t *testing.T) {
	for _, rows := range []int{0, -1, 7, 100} {
		cfg := Default()
		cfg.DefaultRows = rows
		cfg.normalize()
		if cfg.DefaultRows != vault.DefaultRows {
			t.Errorf("rows %d normalized to %d, want %d", rows, cfg.DefaultRows, vault.DefaultRows)
		}
	}
	cfg := Default()
	cfg.DefaultRows = 3
	cfg.normalize()
	if cfg.DefaultRows != 3 {
		t.Errorf("valid rows rewritten to %d", cfg.DefaultRows)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "storage:\n  backend: redis\n"},
		{"unknown driver", "storage:\n  backend: sql\n  sql:\n    driver: oracle\n    dsn: x\n"},
		{"missing postgres dsn", "storage:\n  backend: sql\n  sql:\n    driver: postgres\n"},
		{"malformed yaml", "storage: [not a map\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoadDefaultsSQLiteDSN(t *testing.T) {
	path := writeConfig(t, "storage:\n  backend: sql\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.SQL.Driver != vault.DriverSQLite {
		t.Errorf("driver = %q, want sqlite default", cfg.Storage.SQL.Driver)
	}
	if cfg.Storage.SQL.DSN != DefaultDSN {
		t.Errorf("dsn = %q, want %q", cfg.Storage.SQL.DSN, DefaultDSN)
	}
}

func TestNewStorageBuildsConfiguredBackend(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.Storage.File.Root = filepath.Join(dir, "vaults")
	st, err := cfg.NewStorage(nil)
	if err != nil {
		t.Fatalf("file backend failed: %v", err)
	}
	if _, ok := st.(*vault.FileStorage); !ok {
		t.Errorf("backend = %T, want *vault.FileStorage", st)
	}

	cfg = Default()
	cfg.Storage.Backend = BackendSQL
	cfg.Storage.SQL.DSN = filepath.Join(dir, "vaults.db")
	st, err = cfg.NewStorage(nil)
	if err != nil {
		t.Fatalf("sql backend failed: %v", err)
	}
	if _, ok := st.(*vault.SQLStorage); !ok {
		t.Errorf("backend = %T, want *vault.SQLStorage", st)
	}
}

func TestNewManagerWiresBackend(t *testing.T) {
	cfg := Default()
	cfg.Storage.File.Root = filepath.Join(t.TempDir(), "vaults")
	m, err := cfg.NewManager(nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer m.Close()

	v, err := m.LoadOwn("069a79f4-44e9-4726-a5be-fca90e38aaf5", 1, 9)
	if err != nil {
		t.Fatalf("LoadOwn failed: %v", err)
	}
	if err := m.Save(v); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}
