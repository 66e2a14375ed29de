package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureStateDirs creates the runtime folder layout under the DB path:
// store/ for the pebble database, state/audit for the audit sink,
// state/digest for digest job bookkeeping and state/tmp for scratch
// files. Symlinked or group/other-writable paths are rejected; clinical
// message data must not be silently redirected or exposed.
func EnsureStateDirs(dbPath string) error {
	statePath := filepath.Join(dbPath, "state")
	paths := []string{
		filepath.Join(dbPath, "store"),
		filepath.Join(statePath, "audit"),
		filepath.Join(statePath, "digest"),
		filepath.Join(statePath, "tmp"),
	}

	for _, p := range paths {
		if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
			return fmt.Errorf("cannot create parent for %s: %w", p, err)
		}

		if fi, err := os.Lstat(p); err == nil {
			if fi.Mode()&os.ModeSymlink != 0 {
				return fmt.Errorf("path is a symlink: %s", p)
			}
			if !fi.IsDir() {
				return fmt.Errorf("path exists and is not a directory: %s", p)
			}
			if fi.Mode().Perm()&0o022 != 0 {
				return fmt.Errorf("path has permissive mode (group/other write): %s", p)
			}
		}

		if err := os.MkdirAll(p, 0o700); err != nil {
			return fmt.Errorf("cannot create path %s: %w", p, err)
		}

		if fi, err := os.Lstat(p); err == nil {
			if fi.Mode()&os.ModeSymlink != 0 {
				return fmt.Errorf("path is a symlink after creation: %s", p)
			}
			if fi.Mode().Perm()&0o022 != 0 {
				return fmt.Errorf("path has permissive mode after creation: %s", p)
			}
		}

		// writability check: create and remove a temp file
		tmp, err := os.CreateTemp(p, ".validate-*")
		if err != nil {
			return fmt.Errorf("path not writable: %s: %w", p, err)
		}
		tmp.Close()
		_ = os.Remove(tmp.Name())
	}

	return nil
}

// StorePath returns where the pebble database lives under dbPath.
func StorePath(dbPath string) string { return filepath.Join(dbPath, "store") }

// AuditPath returns where the audit log sink lives under dbPath.
func AuditPath(dbPath string) string { return filepath.Join(dbPath, "state", "audit") }
