package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// remoteFilesystems break the file locking SQLite relies on for WAL mode and
// immediate write transactions.
var remoteFilesystems = []string{"afpfs", "cifs", "nfs", "smb2", "smbfs", "webdav"}

// fsTypeFunc reports the filesystem type name for an existing path.
type fsTypeFunc func(path string) (string, error)

// CheckLocalFilesystem rejects database paths that live on a network mount.
func CheckLocalFilesystem(path string) error {
	return checkLocalFilesystem(path, filesystemType)
}

func checkLocalFilesystem(path string, fsType fsTypeFunc) error {
	if path == "" {
		return fmt.Errorf("sqlite path is empty")
	}

	existing, err := closestExisting(path)
	if err != nil {
		return fmt.Errorf("resolve database path %q: %w", path, err)
	}

	kind, err := fsType(existing)
	if err != nil {
		return fmt.Errorf("detect filesystem for %q: %w", existing, err)
	}
	if isRemoteFilesystem(kind) {
		return fmt.Errorf("database path %q is on network filesystem %q; sqlite needs local disk for locking, set store.path to a local file or use store.driver: postgres", path, kind)
	}
	return nil
}

// closestExisting walks up from path until it finds something that exists,
// so a database that is about to be created can still be checked.
func closestExisting(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}

	for dir := abs; ; {
		_, err := os.Stat(dir)
		switch {
		case err == nil:
			return dir, nil
		case !errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("stat %q: %w", dir, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no existing parent for %q", abs)
		}
		dir = parent
	}
}

func isRemoteFilesystem(kind string) bool {
	kind = strings.ToLower(strings.TrimSpace(kind))
	for _, remote := range remoteFilesystems {
		if kind == remote {
			return true
		}
	}
	return false
}
