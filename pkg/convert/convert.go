// Package convert migrates legacy on-disk vault layouts into the
// current storage backend.
//
// The legacy layout kept one YAML file per player under the player's
// display name ("Notch.yml"), with format-1 blobs inside. The current
// layout keys files by stable account id. Conversion therefore needs a
// name-to-id resolution step; ids are resolved through a caller-supplied
// Resolver, typically backed by the uuids.yml index the old layout
// maintained.
//
// Conversion is meant to run at startup before the flat-file backend
// bootstraps its directory, so migrated data lands where the backend
// will look for it.
package convert

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/vaultworks/playervaults/pkg/vault"
)

// IndexFileName is the name-to-id index the legacy layout kept next to
// its vault files.
const IndexFileName = "uuids.yml"

// Resolver maps a legacy display name to a stable account id.
type Resolver func(name string) (string, bool)

// Result summarizes a conversion run.
type Result struct {
	// Owners is the number of owner files migrated.
	Owners int

	// Vaults is the number of vaults migrated.
	Vaults int

	// Skipped counts files left in place because the owner could not
	// be resolved or the data was unreadable.
	Skipped int
}

// Converter migrates one legacy source directory.
type Converter struct {
	// Source is the legacy directory of per-name YAML files.
	Source string

	// Resolve maps display names to account ids. Nil falls back to
	// accepting names that already are canonical ids.
	Resolve Resolver

	// DryRun reports what would be migrated without writing.
	DryRun bool

	// Logger receives per-file progress and skip reasons. Nil
	// disables it.
	Logger *log.Logger
}

// Run migrates every legacy owner file in Source into dst. Files that
// cannot be resolved or decoded are skipped and logged, never deleted;
// successfully migrated data is re-encoded in the current blob format.
func (c *Converter) Run(dst vault.Storage) (*Result, error) {
	entries, err := os.ReadDir(c.Source)
	if err != nil {
		if os.IsNotExist(err) {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("convert: read source dir: %w", err)
	}
	resolve := c.Resolve
	if resolve == nil {
		resolve = identityResolver
	}

	res := &Result{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yml") || name == IndexFileName {
			continue
		}
		owner := norm.NFC.String(strings.TrimSuffix(name, ".yml"))
		holder, ok := resolve(owner)
		if !ok {
			c.logf("convert: no account id for %q, skipping", owner)
			res.Skipped++
			continue
		}
		migrated, err := c.convertOwner(dst, filepath.Join(c.Source, name), owner, vault.NormalizeHolder(holder))
		if err != nil {
			c.logf("convert: %s: %v", name, err)
			res.Skipped++
			continue
		}
		res.Owners++
		res.Vaults += migrated
	}
	return res, nil
}

// convertOwner migrates a single legacy owner file, returning the
// number of vaults written.
func (c *Converter) convertOwner(dst vault.Storage, path, owner, holder string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	doc := make(map[string]string)
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("unreadable owner file: %w", err)
	}

	migrated := 0
	for key, blob := range doc {
		number, ok := parseVaultKey(key)
		if !ok {
			continue
		}
		slots, err := vault.DecodeBlob(blob, holder)
		if err != nil {
			return migrated, fmt.Errorf("vault %d: %w", number, err)
		}
		if c.DryRun {
			migrated++
			continue
		}
		if err := dst.Save(holder, number, vault.RecordFromSlots(slots)); err != nil {
			return migrated, err
		}
		migrated++
	}
	c.logf("convert: migrated %d vault(s) for %s -> %s", migrated, owner, holder)
	return migrated, nil
}

func (c *Converter) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}

// ResolverFromIndex loads the legacy uuids.yml index (display name ->
// account id) from dir. Names are NFC-normalized on both sides of the
// lookup. A missing index yields the identity resolver.
func ResolverFromIndex(dir string) (Resolver, error) {
	data, err := os.ReadFile(filepath.Join(dir, IndexFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return identityResolver, nil
		}
		return nil, fmt.Errorf("convert: read %s: %w", IndexFileName, err)
	}
	raw := make(map[string]string)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("convert: unreadable %s: %w", IndexFileName, err)
	}
	index := make(map[string]string, len(raw))
	for name, id := range raw {
		index[norm.NFC.String(name)] = id
	}
	return func(name string) (string, bool) {
		id, ok := index[norm.NFC.String(name)]
		if !ok {
			return identityResolver(name)
		}
		return id, true
	}, nil
}

// identityResolver accepts names that already are canonical ids.
func identityResolver(name string) (string, bool) {
	if id, err := uuid.Parse(name); err == nil {
		return id.String(), true
	}
	return "", false
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
