package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// VerifyIntegrity checks the config file against the manifest in its
// directory. A missing manifest passes; a manifest that does not list the
// file, or lists a different hash, fails.
func VerifyIntegrity(configPath string) error {
	dir, name := filepath.Split(configPath)

	manifest, err := LoadChecksums(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	expected, ok := manifest.Hashes[name]
	if !ok {
		return fmt.Errorf("config file %s has no hash in %s (run 'gatehouse config lock')", name, ChecksumFile)
	}
	if err := VerifyFileHash(configPath, expected); err != nil {
		return fmt.Errorf("config verification failed: %w\n"+
			"This indicates tampering or unauthorized modification.\n"+
			"If you edited this file intentionally, run: gatehouse config lock", err)
	}
	return nil
}
