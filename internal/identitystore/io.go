package identitystore

// This file's I/O is shared by both stores: the passphrase-encrypted
// identity blob and the plain-JSON favorites set both land on disk the
// same way, via a temp-file-then-rename so a crash mid-write never
// leaves a half-written bitchatFile behind.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// bitchatFile is one piece of the local node's persisted state, addressed
// by its path under the store's directory. Both IdentityFileStore and
// FavoritesFileStore go through this instead of calling os.ReadFile/
// os.WriteFile directly, so they get the same missing-file and
// atomic-replace handling.
type bitchatFile struct {
	path string
}

// readJSON best-effort reads f into out; a missing file is not an error.
func (f bitchatFile) readJSON(out any) error {
	b, err := f.read()
	if err != nil {
		return err
	}
	if b == nil { // file didn't exist
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("identitystore: decode %s: %w", filepath.Base(f.path), err)
	}
	return nil
}

// read reads f's contents; a missing file is not an error.
func (f bitchatFile) read() ([]byte, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// writeJSON marshals v and writes it to f via a temp file then rename.
func (f bitchatFile) writeJSON(v any, mode os.FileMode) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return f.write(b, mode)
}

// write stores b at f's path via a temp file, then atomically replaces
// the target so readers never observe a partial write.
func (f bitchatFile) write(b []byte, mode os.FileMode) error {
	dir := filepath.Dir(f.path)
	base := filepath.Base(f.path)

	tf, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmp := tf.Name()

	// Best-effort cleanup if anything fails before rename.
	defer func() { _ = os.Remove(tmp) }()

	if _, err := tf.Write(b); err != nil {
		_ = tf.Close()
		return err
	}
	if err := tf.Chmod(mode); err != nil {
		_ = tf.Close()
		return err
	}
	if err := tf.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, f.path)
}
