package vault

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/vaultworks/playervaults/pkg/backup"
)

const (
	ownerFileExt = ".yml"

	fileMode = 0o600
	dirMode  = 0o700
)

// FileOptions configures the flat-file backend.
type FileOptions struct {
	// Root is the directory holding one YAML file per owner.
	Root string

	// Backups enables rotation of the previous owner file into
	// BackupsDir before every overwrite.
	Backups bool

	// BackupsDir is the backups directory. Empty means a "backups"
	// directory next to Root.
	BackupsDir string

	// BackupPassphrase, when non-empty, encrypts rotated copies.
	BackupPassphrase []byte

	// DefaultRows is the container height substituted for unusable
	// sizes. Out-of-range values fall back to DefaultRows (6).
	DefaultRows int

	// Logger receives operational logging. Nil disables it.
	Logger *log.Logger

	// Debug enables verbose logging of individual operations.
	Debug bool
}

// FileStorage persists vaults as one YAML document per owner, mapping
// "vault<N>" keys to codec blobs. An in-memory owner cache can hold
// decoded documents for connected players; the cache is write-through,
// so the file on disk stays the single source of truth.
//
// The root directory is created lazily on first write, not at
// construction, so a legacy-layout conversion gets to run first and
// decide where existing data lives.
type FileStorage struct {
	root        string
	defaultSize int
	rotator     *backup.Rotator // nil when backups are disabled
	logger      *log.Logger
	debug       bool

	mu    sync.Mutex
	cache map[string]map[string]string // holder -> vault key -> blob
}

var _ Storage = (*FileStorage)(nil)

// NewFileStorage validates the options and returns a flat-file backend.
// It performs no I/O.
func NewFileStorage(opts FileOptions) (*FileStorage, error) {
	if strings.TrimSpace(opts.Root) == "" {
		return nil, fmt.Errorf("%w: flat-file root is required", ErrBadConfig)
	}
	root := filepath.Clean(opts.Root)

	s := &FileStorage{
		root:        root,
		defaultSize: defaultSizeForRows(opts.DefaultRows),
		logger:      opts.Logger,
		debug:       opts.Debug,
		cache:       make(map[string]map[string]string),
	}
	if opts.Backups {
		dir := opts.BackupsDir
		if dir == "" {
			dir = filepath.Join(filepath.Dir(root), "backups")
		}
		s.rotator = &backup.Rotator{Dir: dir, Passphrase: opts.BackupPassphrase}
	}
	return s, nil
}

// Save persists one vault, writing through the owner cache.
func (s *FileStorage) Save(holder string, number int, rec *Record) error {
	if err := validateHolder(holder); err != nil {
		return &StorageError{Op: "save", Holder: holder, Number: number, Err: err}
	}
	blob, err := encodeItems(flatten(rec))
	if err != nil {
		return &StorageError{Op: "save", Holder: holder, Number: number, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.ownerDoc(holder)
	if err != nil {
		return &StorageError{Op: "save", Holder: holder, Number: number, Err: err}
	}
	doc[vaultKey(number)] = blob
	if _, ok := s.cache[holder]; ok {
		s.cache[holder] = doc
	}

	rotateErr := s.rotate(holder)
	if err := s.writeOwnerDoc(holder, doc); err != nil {
		return &StorageError{Op: "save", Holder: holder, Number: number, Err: err}
	}
	s.debugf("saved vault %d for %s", number, holder)

	if rotateErr != nil {
		// Soft failure: the save went through, but the previous
		// version was not retained.
		return &StorageError{Op: "backup", Holder: holder, Number: number, Err: rotateErr}
	}
	return nil
}

// Load fetches one vault repacked to the requested size, or (nil, nil)
// when the holder never saved it.
func (s *FileStorage) Load(holder string, number, size int) (*Record, error) {
	if err := validateHolder(holder); err != nil {
		return nil, &StorageError{Op: "load", Holder: holder, Number: number, Err: err}
	}
	size = normalizeSize(size, s.defaultSize)

	s.mu.Lock()
	doc, err := s.ownerDoc(holder)
	blob, ok := "", false
	if err == nil {
		blob, ok = doc[vaultKey(number)]
	}
	s.mu.Unlock()

	if err != nil {
		return nil, &StorageError{Op: "load", Holder: holder, Number: number, Err: err}
	}
	if !ok || strings.TrimSpace(blob) == "" {
		return nil, nil
	}
	slots, err := decodeItems(blob, holder)
	if err != nil {
		return nil, &StorageError{Op: "load", Holder: holder, Number: number, Err: err}
	}
	return repack(slots, size), nil
}

// Exists reports whether the vault has ever been saved.
func (s *FileStorage) Exists(holder string, number int) bool {
	if validateHolder(holder) != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.ownerDoc(holder)
	if err != nil {
		return false
	}
	_, ok := doc[vaultKey(number)]
	return ok
}

// Numbers returns the set of vault numbers present in the owner file.
func (s *FileStorage) Numbers(holder string) map[int]struct{} {
	numbers := make(map[int]struct{})
	if validateHolder(holder) != nil {
		return numbers
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.ownerDoc(holder)
	if err != nil {
		s.logf("list vaults for %s: %v", holder, err)
		return numbers
	}
	for key := range doc {
		if n, ok := parseVaultKey(key); ok {
			numbers[n] = struct{}{}
		}
	}
	return numbers
}

// Delete removes one vault from the owner file. Deleting a vault that
// does not exist is a no-op.
func (s *FileStorage) Delete(holder string, number int) error {
	if err := validateHolder(holder); err != nil {
		return &StorageError{Op: "delete", Holder: holder, Number: number, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readOwnerDoc(holder)
	if err != nil {
		return &StorageError{Op: "delete", Holder: holder, Number: number, Err: err}
	}
	if doc == nil {
		return nil
	}
	if _, ok := doc[vaultKey(number)]; !ok {
		return nil
	}
	delete(doc, vaultKey(number))
	if _, ok := s.cache[holder]; ok {
		s.cache[holder] = doc
	}
	if err := s.writeOwnerDoc(holder, doc); err != nil {
		return &StorageError{Op: "delete", Holder: holder, Number: number, Err: err}
	}
	s.debugf("deleted vault %d for %s", number, holder)
	return nil
}

// DeleteAll removes the owner file and any cached copy. Idempotent.
func (s *FileStorage) DeleteAll(holder string) error {
	if err := validateHolder(holder); err != nil {
		return &StorageError{Op: "delete-all", Holder: holder, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cache, holder)
	err := os.Remove(s.ownerPath(holder))
	if err != nil && !os.IsNotExist(err) {
		return &StorageError{Op: "delete-all", Holder: holder, Err: err}
	}
	s.debugf("deleted all vaults for %s", holder)
	return nil
}

// CacheOwner loads the holder's file into the cache so later loads and
// saves skip the disk read. Missing files are not created. Meant to run
// off the interactive path, typically when the player's session starts.
func (s *FileStorage) CacheOwner(holder string) {
	if validateHolder(holder) != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.readOwnerDoc(holder)
	if err != nil {
		s.logf("cache %s: %v", holder, err)
		return
	}
	if doc != nil {
		s.cache[holder] = doc
		s.debugf("cached owner file for %s", holder)
	}
}

// UncacheOwner drops the cached copy without flushing; every mutation
// already wrote through to disk.
func (s *FileStorage) UncacheOwner(holder string) {
	s.mu.Lock()
	delete(s.cache, holder)
	s.mu.Unlock()
}

// ownerDoc returns the cached document for the holder, reading it from
// disk on a miss. A missing file yields an empty document; the file
// itself is only created by the next save. Caller holds s.mu.
func (s *FileStorage) ownerDoc(holder string) (map[string]string, error) {
	if doc, ok := s.cache[holder]; ok {
		return doc, nil
	}
	doc, err := s.readOwnerDoc(holder)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = make(map[string]string)
	}
	return doc, nil
}

// readOwnerDoc reads the holder's file from disk, bypassing the cache.
// Returns (nil, nil) when the file does not exist.
func (s *FileStorage) readOwnerDoc(holder string) (map[string]string, error) {
	data, err := os.ReadFile(s.ownerPath(holder))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	doc := make(map[string]string)
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: owner file for %s: %v", ErrCorruptData, holder, err)
	}
	return doc, nil
}

func (s *FileStorage) writeOwnerDoc(holder string, doc map[string]string) error {
	if err := os.MkdirAll(s.root, dirMode); err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(s.ownerPath(holder), data, fileMode)
}

// rotate moves the current owner file into the backups directory.
// Caller holds s.mu.
func (s *FileStorage) rotate(holder string) error {
	if s.rotator == nil {
		return nil
	}
	if err := s.rotator.Rotate(s.ownerPath(holder)); err != nil {
		s.logf("backup rotation for %s: %v", holder, err)
		return err
	}
	return nil
}

func (s *FileStorage) ownerPath(holder string) string {
	return filepath.Join(s.root, holder+ownerFileExt)
}

func (s *FileStorage) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

func (s *FileStorage) debugf(format string, args ...any) {
	if s.debug && s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// validateHolder rejects holder ids that would escape the data root.
func validateHolder(holder string) error {
	if strings.TrimSpace(holder) == "" {
		return errors.New("empty holder id")
	}
	if strings.ContainsAny(holder, `/\`) || holder == "." || holder == ".." {
		return fmt.Errorf("invalid holder id %q", holder)
	}
	return nil
}

func vaultKey(number int) string {
	return fmt.Sprintf(vaultKeyFormat, number)
}

func parseVaultKey(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, "vault")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// normalizeSize replaces an unusable container size with the backend's
// configured default.
func normalizeSize(size, def int) int {
	if size <= 0 || size%RowSize != 0 || size > MaxRows*RowSize {
		return def
	}
	return size
}

// defaultSizeForRows maps the configured row count to a slot count,
// falling back to DefaultRows when out of range.
func defaultSizeForRows(rows int) int {
	if rows < 1 || rows > MaxRows {
		rows = DefaultRows
	}
	return rows * RowSize
}
