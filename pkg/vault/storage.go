// Package vault implements persistent, per-player vault storage for a
// multiplayer game server.
//
// A vault is a numbered, fixed-size container of item slots owned by a
// stable account id. The package provides:
//
//   - An opaque item codec with legacy-format fallback (codec.go)
//   - A Storage interface with flat-file and relational backends
//   - A write-through owner cache in front of the flat-file backend
//   - A Manager façade that tracks live in-memory vault instances so
//     that concurrent viewers share a single authoritative copy
//
// Storage is owned by a single server process; nothing here is a
// distributed lock. Two processes pointed at the same data root or
// database can race and must not be run concurrently.
package vault

import (
	"errors"
	"fmt"
)

const (
	// RowSize is the number of slots per container row.
	RowSize = 9

	// MaxRows is the largest supported container height.
	MaxRows = 6

	// DefaultRows is the fallback container height used when a
	// requested or stored size is unusable.
	DefaultRows = 6

	// vaultKeyFormat is the per-vault key inside an owner file.
	vaultKeyFormat = "vault%d"
)

// Sentinel errors.
var (
	// ErrCorruptData reports a stored blob that failed to decode under
	// every known format. Distinct from absence, which is not an error.
	ErrCorruptData = errors.New("vault: stored data is corrupt")

	// ErrBadConfig reports invalid backend parameters at construction.
	ErrBadConfig = errors.New("vault: invalid storage configuration")
)

// StorageError reports an I/O or backend-level failure for a specific
// operation on a specific vault.
type StorageError struct {
	Op     string // "save", "load", "delete", ...
	Holder string
	Number int // 0 when the operation covers all of a holder's vaults
	Err    error
}

func (e *StorageError) Error() string {
	if e.Number > 0 {
		return fmt.Sprintf("vault: %s %s #%d: %v", e.Op, e.Holder, e.Number, e.Err)
	}
	return fmt.Sprintf("vault: %s %s: %v", e.Op, e.Holder, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Record is the persisted unit: one vault's slot array.
type Record struct {
	// Size is the container size in slots, a positive multiple of
	// RowSize.
	Size int

	// Slots holds the container contents. A nil entry is an empty
	// slot. len(Slots) == Size after normalization.
	Slots []*ItemRecord

	// Overflow holds items that did not fit when a larger stored
	// record was repacked into a smaller container. They are never
	// discarded and are written back on the next save.
	Overflow []*ItemRecord
}

// NewRecord returns an empty record of the given size. Unusable sizes
// fall back to the default.
func NewRecord(size int) *Record {
	size = NormalizeSize(size)
	return &Record{Size: size, Slots: make([]*ItemRecord, size)}
}

// Items returns every non-empty item in the record, slots first, then
// overflow.
func (r *Record) Items() []*ItemRecord {
	var out []*ItemRecord
	for _, it := range r.Slots {
		if it != nil {
			out = append(out, it)
		}
	}
	out = append(out, r.Overflow...)
	return out
}

// NormalizeSize replaces an unusable container size with the default.
// A size is usable when it is a positive multiple of RowSize no larger
// than MaxRows rows.
func NormalizeSize(size int) int {
	if size <= 0 || size%RowSize != 0 || size > MaxRows*RowSize {
		return DefaultRows * RowSize
	}
	return size
}

// Storage is the persistence contract shared by all backends. Absence
// is never an error: Load returns (nil, nil) for a vault that was never
// saved, and deletes of missing vaults succeed.
//
// All methods may block on I/O and should be kept off latency-sensitive
// paths; CacheOwner and UncacheOwner in particular are meant to be
// scheduled asynchronously by the caller.
type Storage interface {
	// Save persists the record unconditionally (last writer wins).
	Save(holder string, number int, rec *Record) error

	// Load fetches one vault, repacked to the requested size. An
	// unusable size is replaced with the stored size or the default.
	Load(holder string, number, size int) (*Record, error)

	// Exists reports whether the vault has ever been saved.
	Exists(holder string, number int) bool

	// Numbers returns the set of vault numbers the holder has saved.
	Numbers(holder string) map[int]struct{}

	// Delete removes one vault. Idempotent.
	Delete(holder string, number int) error

	// DeleteAll removes every vault the holder owns. Idempotent.
	DeleteAll(holder string) error

	// CacheOwner hints that the holder's data should be held in
	// memory. Backends without a cache may ignore it.
	CacheOwner(holder string)

	// UncacheOwner drops any cached copy without flushing; every
	// mutation is expected to have written through already.
	UncacheOwner(holder string)
}
