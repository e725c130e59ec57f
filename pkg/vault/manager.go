package vault

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Vault is the live in-memory instance of one vault while it is being
// displayed or edited. All concurrent viewers of the same (holder,
// number) share one instance; the Manager guarantees at most one per
// key within the process.
type Vault struct {
	Holder string
	Number int

	mu      sync.Mutex
	rec     *Record
	viewers int
}

// Record returns the instance's record. The caller mutates slots under
// its own display logic and hands the instance back to Manager.Save.
func (v *Vault) Record() *Record {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rec
}

// Options configures a Manager.
type Options struct {
	// Storage is the backend. Required.
	Storage Storage

	// DefaultRows is the container height used when a requested size
	// is unusable and storage has no better answer. Out-of-range
	// values fall back to DefaultRows (6).
	DefaultRows int

	// Workers and QueueSize bound the pool running asynchronous
	// storage work. Zero means defaults.
	Workers   int
	QueueSize int

	// Logger receives operational logging. Nil disables it.
	Logger *log.Logger

	// Debug enables verbose logging of individual operations.
	Debug bool
}

// Manager is the façade the rest of the server calls. It resolves
// already-open instances before touching the backend, keeps the
// open-instance table, and routes deletion and cache hints through a
// bounded worker pool so callers never block on storage I/O.
//
// Manager state is engine-owned, not global: multiple managers can
// coexist as long as they do not share a storage root.
type Manager struct {
	storage     Storage
	defaultSize int
	logger      *log.Logger
	debug       bool
	pool        *pool

	mu   sync.Mutex
	open map[string]*Vault
}

// NewManager returns a manager over the given storage backend.
func NewManager(opts Options) (*Manager, error) {
	if opts.Storage == nil {
		return nil, fmt.Errorf("%w: storage backend is required", ErrBadConfig)
	}
	return &Manager{
		storage:     opts.Storage,
		defaultSize: defaultSizeForRows(opts.DefaultRows),
		logger:      opts.Logger,
		debug:       opts.Debug,
		pool:        newPool(opts.Workers, opts.QueueSize),
		open:        make(map[string]*Vault),
	}, nil
}

// Close drains pending asynchronous storage work. Called on server
// shutdown so queued deletions and cache evictions complete before the
// process exits.
func (m *Manager) Close() {
	m.pool.close()
}

// LoadOwn opens a holder's own vault for display. If the vault is
// already open the same live instance is returned; if it was never
// saved an empty instance of the requested size is created.
func (m *Manager) LoadOwn(holder string, number, size int) (*Vault, error) {
	holder = NormalizeHolder(holder)
	size = normalizeSize(size, m.defaultSize)
	m.debugf("loading own vault %d for %s", number, holder)

	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.open[viewKey(holder, number)]; ok {
		m.debugf("vault %d for %s already open", number, holder)
		v.viewers++
		return v, nil
	}

	rec, err := m.storage.Load(holder, number, size)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		m.debugf("no vault %d for %s, creating empty", number, holder)
		rec = NewRecord(size)
	}
	return m.register(holder, number, rec), nil
}

// LoadOther opens another holder's vault on behalf of a viewer. Unlike
// LoadOwn it reports absence instead of creating an empty vault, so the
// caller can tell the viewer the vault does not exist.
func (m *Manager) LoadOther(viewer, holder string, number, size int) (*Vault, error) {
	holder = NormalizeHolder(holder)
	size = normalizeSize(size, m.defaultSize)
	m.debugf("loading vault %d of %s for viewer %s", number, holder, viewer)

	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.open[viewKey(holder, number)]; ok {
		v.viewers++
		return v, nil
	}

	rec, err := m.storage.Load(holder, number, size)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return m.register(holder, number, rec), nil
}

// GetRaw loads a vault record without any open-instance bookkeeping.
// Used for non-interactive extraction, e.g. when an account is removed.
func (m *Manager) GetRaw(holder string, number int) (*Record, error) {
	return m.storage.Load(NormalizeHolder(holder), number, -1)
}

// Save writes the instance's record through to storage: always a full
// overwrite of that key. The error, if any, must reach the end user —
// their items may not be durable.
func (m *Manager) Save(v *Vault) error {
	v.mu.Lock()
	rec := v.rec
	v.mu.Unlock()
	err := m.storage.Save(v.Holder, v.Number, rec)
	if err != nil {
		m.logf("save failed: %v", err)
	}
	return err
}

// CloseView records that one viewer closed the instance, dropping it
// from the open-instance table when the last viewer is gone. Callers
// save first, then close.
func (m *Manager) CloseView(v *Vault) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.viewers--
	if v.viewers <= 0 {
		delete(m.open, viewKey(v.Holder, v.Number))
		m.debugf("closed last view of vault %d for %s", v.Number, v.Holder)
	}
}

// Exists reports whether the vault has ever been saved.
func (m *Manager) Exists(holder string, number int) bool {
	return m.storage.Exists(NormalizeHolder(holder), number)
}

// Numbers returns the set of vault numbers the holder owns.
func (m *Manager) Numbers(holder string) map[int]struct{} {
	return m.storage.Numbers(NormalizeHolder(holder))
}

// Delete removes one vault asynchronously and forgets any open
// instance for it immediately. The caller does not wait for the
// storage round trip; failures are logged.
func (m *Manager) Delete(holder string, number int) {
	holder = NormalizeHolder(holder)
	m.mu.Lock()
	delete(m.open, viewKey(holder, number))
	m.mu.Unlock()

	m.pool.submit(func() {
		if err := m.storage.Delete(holder, number); err != nil {
			m.logf("delete failed: %v", err)
		}
	})
}

// DeleteAll removes every vault the holder owns, asynchronously, and
// forgets any open instances for the holder.
func (m *Manager) DeleteAll(holder string) {
	holder = NormalizeHolder(holder)
	m.mu.Lock()
	for key, v := range m.open {
		if v.Holder == holder {
			delete(m.open, key)
		}
	}
	m.mu.Unlock()

	m.pool.submit(func() {
		if err := m.storage.DeleteAll(holder); err != nil {
			m.logf("delete-all failed: %v", err)
		}
	})
}

// CacheOwner asks the backend to pre-load the holder's data, off the
// caller's path. Typically invoked when the holder's session starts.
func (m *Manager) CacheOwner(holder string) {
	holder = NormalizeHolder(holder)
	m.pool.submit(func() { m.storage.CacheOwner(holder) })
}

// UncacheOwner drops the backend's cached copy for the holder, off the
// caller's path. Typically invoked when the holder's session ends.
func (m *Manager) UncacheOwner(holder string) {
	holder = NormalizeHolder(holder)
	m.pool.submit(func() { m.storage.UncacheOwner(holder) })
}

// register adds a fresh live instance to the open-instance table.
// Caller holds m.mu.
func (m *Manager) register(holder string, number int, rec *Record) *Vault {
	v := &Vault{Holder: holder, Number: number, rec: rec, viewers: 1}
	m.open[viewKey(holder, number)] = v
	return v
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

func (m *Manager) debugf(format string, args ...any) {
	if m.debug && m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

// NormalizeHolder canonicalizes account-id holders to lowercase UUID
// form. Identifiers that are not UUIDs (virtual or system holders) pass
// through trimmed but otherwise verbatim.
func NormalizeHolder(holder string) string {
	holder = strings.TrimSpace(holder)
	if id, err := uuid.Parse(holder); err == nil {
		return id.String()
	}
	return holder
}

func viewKey(holder string, number int) string {
	return fmt.Sprintf("%s %d", holder, number)
}
