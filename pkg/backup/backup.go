// Package backup implements the pre-overwrite backup policy for owner
// files.
//
// Before the flat-file backend overwrites an owner file, the previous
// version is rotated into a sibling backups directory under the same
// filename, so the last pre-overwrite copy is always recoverable. There
// is no versioning: a later rotation replaces the earlier copy.
//
// With a passphrase configured, rotated copies are encrypted with
// AES-256-GCM under an Argon2id-derived key; the salt and nonce travel
// in the file header. Plain rotations are a bare rename.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vaultworks/playervaults/pkg/crypto"
)

// Encrypted rotated copies start with this magic, then salt, nonce and
// ciphertext.
var encMagic = []byte("PVB1")

// Sentinel errors.
var (
	ErrNoBackup      = errors.New("backup: no backup for this file")
	ErrNotEncrypted  = errors.New("backup: file is not an encrypted backup")
	ErrBadPassphrase = errors.New("backup: wrong passphrase or corrupted backup")
)

// Rotator moves files into a backups directory before they are
// overwritten.
type Rotator struct {
	// Dir is the backups directory, created on first rotation.
	Dir string

	// Passphrase, when non-empty, enables encryption of rotated
	// copies.
	Passphrase []byte
}

// Rotate moves path into the backups directory under its base name,
// replacing any previous backup of the same file. Rotating a file that
// does not exist is a no-op.
func (r *Rotator) Rotate(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := os.MkdirAll(r.Dir, 0o700); err != nil {
		return fmt.Errorf("backup: create backups dir: %w", err)
	}
	dst := filepath.Join(r.Dir, filepath.Base(path))

	if len(r.Passphrase) == 0 {
		if err := os.Rename(path, dst); err != nil {
			return fmt.Errorf("backup: rotate %s: %w", filepath.Base(path), err)
		}
		return nil
	}

	plaintext, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("backup: read %s: %w", filepath.Base(path), err)
	}
	sealed, err := r.seal(plaintext)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, sealed, 0o600); err != nil {
		return fmt.Errorf("backup: write %s: %w", filepath.Base(path), err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("backup: remove %s after rotation: %w", filepath.Base(path), err)
	}
	return nil
}

// Restore copies the rotated backup of name back to dst, decrypting it
// when it is an encrypted copy.
func (r *Rotator) Restore(name, dst string) error {
	src := filepath.Join(r.Dir, name)
	data, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoBackup
		}
		return fmt.Errorf("backup: read backup %s: %w", name, err)
	}
	if isEncrypted(data) {
		if data, err = r.open(data); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return fmt.Errorf("backup: create target dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o600); err != nil {
		return fmt.Errorf("backup: restore %s: %w", name, err)
	}
	return nil
}

// List returns the base names of all rotated backups.
func (r *Rotator) List() ([]string, error) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("backup: list backups: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (r *Rotator) seal(plaintext []byte) ([]byte, error) {
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, err
	}
	key := crypto.DeriveKey(r.Passphrase, salt)
	defer crypto.SecureWipe(key)

	ciphertext, nonce, err := crypto.Encrypt(key, plaintext)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(encMagic)+len(salt)+len(nonce)+len(ciphertext))
	out = append(out, encMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

func (r *Rotator) open(data []byte) ([]byte, error) {
	if !isEncrypted(data) {
		return nil, ErrNotEncrypted
	}
	if len(r.Passphrase) == 0 {
		return nil, ErrBadPassphrase
	}
	rest := data[len(encMagic):]
	if len(rest) < crypto.SaltLength+crypto.NonceLength {
		return nil, ErrBadPassphrase
	}
	salt := rest[:crypto.SaltLength]
	nonce := rest[crypto.SaltLength : crypto.SaltLength+crypto.NonceLength]
	ciphertext := rest[crypto.SaltLength+crypto.NonceLength:]

	key := crypto.DeriveKey(r.Passphrase, salt)
	defer crypto.SecureWipe(key)

	plaintext, err := crypto.Decrypt(key, ciphertext, nonce)
	if err != nil {
		return nil, ErrBadPassphrase
	}
	return plaintext, nil
}

func isEncrypted(data []byte) bool {
	return len(data) >= len(encMagic) && string(data[:len(encMagic)]) == string(encMagic)
}
