package vault

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	// Database drivers for the supported dialects.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported relational drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const (
	sqlSchema = `CREATE TABLE IF NOT EXISTS playervaults (
		holder VARCHAR(64) NOT NULL,
		number INT NOT NULL,
		size INT NOT NULL,
		data TEXT,
		PRIMARY KEY (holder, number)
	)`

	sqlUpsert  = `INSERT INTO playervaults (holder, number, size, data) VALUES (?, ?, ?, ?) ON CONFLICT (holder, number) DO UPDATE SET size = EXCLUDED.size, data = EXCLUDED.data`
	sqlSelect  = `SELECT data, size FROM playervaults WHERE holder = ? AND number = ?`
	sqlExists  = `SELECT 1 FROM playervaults WHERE holder = ? AND number = ?`
	sqlNumbers = `SELECT number FROM playervaults WHERE holder = ?`
	sqlDelete  = `DELETE FROM playervaults WHERE holder = ? AND number = ?`
	sqlDropAll = `DELETE FROM playervaults WHERE holder = ?`
)

// SQLOptions configures the relational backend.
type SQLOptions struct {
	// Driver selects the SQL dialect: DriverSQLite or DriverPostgres.
	Driver string

	// DSN is the driver-specific connection string (a file path for
	// sqlite).
	DSN string

	// DefaultRows is the container height substituted for unusable
	// sizes. Out-of-range values fall back to DefaultRows (6).
	DefaultRows int

	// Logger receives operational logging. Nil disables it.
	Logger *log.Logger

	// Debug enables verbose logging of individual operations.
	Debug bool
}

// SQLStorage persists vaults in a single table keyed by
// (holder, number). Every operation opens a fresh connection, runs one
// statement and closes it again; concurrent saves to the same key are
// serialized only by the database's own upsert semantics. No shared
// connection state means no cross-call locking, at the cost of per-call
// connection overhead.
type SQLStorage struct {
	driver      string
	dsn         string
	defaultSize int
	logger      *log.Logger
	debug       bool
}

var _ Storage = (*SQLStorage)(nil)

// NewSQLStorage validates the connection parameters, verifies the
// database is reachable and creates the schema if it is missing.
// An unreachable database fails construction; a schema-creation
// failure is only logged, since the table may already exist or appear
// later.
func NewSQLStorage(opts SQLOptions) (*SQLStorage, error) {
	if opts.Driver != DriverSQLite && opts.Driver != DriverPostgres {
		return nil, fmt.Errorf("%w: unsupported sql driver %q", ErrBadConfig, opts.Driver)
	}
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, fmt.Errorf("%w: sql dsn is required", ErrBadConfig)
	}
	s := &SQLStorage{
		driver:      opts.Driver,
		dsn:         opts.DSN,
		defaultSize: defaultSizeForRows(opts.DefaultRows),
		logger:      opts.Logger,
		debug:       opts.Debug,
	}

	db, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%w: database unreachable: %v", ErrBadConfig, err)
	}
	if _, err := db.Exec(sqlSchema); err != nil {
		s.logf("create playervaults table: %v", err)
	}
	return s, nil
}

// Save upserts one vault row (last writer wins).
func (s *SQLStorage) Save(holder string, number int, rec *Record) error {
	blob, err := encodeItems(flatten(rec))
	if err != nil {
		return &StorageError{Op: "save", Holder: holder, Number: number, Err: err}
	}
	db, err := s.open()
	if err != nil {
		return &StorageError{Op: "save", Holder: holder, Number: number, Err: err}
	}
	defer db.Close()
	if _, err := db.Exec(s.rebind(sqlUpsert), holder, number, rec.Size, blob); err != nil {
		s.logf("save vault %d for %s: %v", number, holder, err)
		return &StorageError{Op: "save", Holder: holder, Number: number, Err: err}
	}
	s.debugf("saved vault %d for %s", number, holder)
	return nil
}

// Load fetches one vault repacked to the requested size. An unusable
// requested size falls back to the stored size, then to the default.
// Statement failures are logged and read as absence; only corrupt
// stored data is an error.
func (s *SQLStorage) Load(holder string, number, size int) (*Record, error) {
	db, err := s.open()
	if err != nil {
		s.logf("load vault %d for %s: %v", number, holder, err)
		return nil, nil
	}
	defer db.Close()

	var blob sql.NullString
	var stored int
	err = db.QueryRow(s.rebind(sqlSelect), holder, number).Scan(&blob, &stored)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		s.logf("load vault %d for %s: %v", number, holder, err)
		return nil, nil
	}

	size = normalizeSize(size, normalizeSize(stored, s.defaultSize))
	slots, err := decodeItems(blob.String, holder)
	if err != nil {
		return nil, &StorageError{Op: "load", Holder: holder, Number: number, Err: err}
	}
	return repack(slots, size), nil
}

// Exists reports whether the vault row is present. Failures are logged
// and read as absence.
func (s *SQLStorage) Exists(holder string, number int) bool {
	db, err := s.open()
	if err != nil {
		s.logf("check vault %d for %s: %v", number, holder, err)
		return false
	}
	defer db.Close()

	var one int
	err = db.QueryRow(s.rebind(sqlExists), holder, number).Scan(&one)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		s.logf("check vault %d for %s: %v", number, holder, err)
		return false
	}
	return true
}

// Numbers returns the holder's vault numbers. Failures are logged and
// yield an empty set.
func (s *SQLStorage) Numbers(holder string) map[int]struct{} {
	numbers := make(map[int]struct{})
	db, err := s.open()
	if err != nil {
		s.logf("list vaults for %s: %v", holder, err)
		return numbers
	}
	defer db.Close()

	rows, err := db.Query(s.rebind(sqlNumbers), holder)
	if err != nil {
		s.logf("list vaults for %s: %v", holder, err)
		return numbers
	}
	defer rows.Close()
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			s.logf("list vaults for %s: %v", holder, err)
			return numbers
		}
		numbers[n] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		s.logf("list vaults for %s: %v", holder, err)
	}
	return numbers
}

// Delete removes one vault row. Idempotent.
func (s *SQLStorage) Delete(holder string, number int) error {
	db, err := s.open()
	if err != nil {
		return &StorageError{Op: "delete", Holder: holder, Number: number, Err: err}
	}
	defer db.Close()
	if _, err := db.Exec(s.rebind(sqlDelete), holder, number); err != nil {
		s.logf("delete vault %d for %s: %v", number, holder, err)
		return &StorageError{Op: "delete", Holder: holder, Number: number, Err: err}
	}
	return nil
}

// DeleteAll removes every row the holder owns. Idempotent.
func (s *SQLStorage) DeleteAll(holder string) error {
	db, err := s.open()
	if err != nil {
		return &StorageError{Op: "delete-all", Holder: holder, Err: err}
	}
	defer db.Close()
	if _, err := db.Exec(s.rebind(sqlDropAll), holder); err != nil {
		s.logf("delete all vaults for %s: %v", holder, err)
		return &StorageError{Op: "delete-all", Holder: holder, Err: err}
	}
	return nil
}

// CacheOwner is a no-op; the database is its own cache.
func (s *SQLStorage) CacheOwner(string) {}

// UncacheOwner is a no-op.
func (s *SQLStorage) UncacheOwner(string) {}

func (s *SQLStorage) open() (*sql.DB, error) {
	dsn := s.dsn
	if s.driver == DriverSQLite && !strings.Contains(dsn, "?") {
		// Wait out writer contention instead of failing immediately.
		dsn += "?_busy_timeout=5000"
	}
	db, err := sql.Open(s.driver, dsn)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// rebind rewrites ?-style placeholders for drivers that number them.
func (s *SQLStorage) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStorage) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

func (s *SQLStorage) debugf(format string, args ...any) {
	if s.debug && s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
