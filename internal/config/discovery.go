package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvConfigDir overrides the discovered configuration directory.
const EnvConfigDir = "GATEHOUSE_CONFIG_DIR"

// Discover returns the config file to load.
// Priority order: explicit path, $GATEHOUSE_CONFIG_DIR, ~/.config/gatehouse,
// /etc/gatehouse, ./config.yaml.
func Discover(explicit string) (string, error) {
	if explicit != "" {
		return resolveConfigFile(explicit)
	}

	var candidates []string
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		candidates = append(candidates, filepath.Join(dir, "config.yaml"))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".config", "gatehouse", "config.yaml"))
	}
	candidates = append(candidates, "/etc/gatehouse/config.yaml", "./config.yaml")

	for _, path := range candidates {
		if fileExists(path) {
			return filepath.Abs(path)
		}
	}
	return "", fmt.Errorf("no config found (checked: $%s, ~/.config/gatehouse, /etc/gatehouse, ./config.yaml)", EnvConfigDir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
