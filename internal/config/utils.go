package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Paintersrp/portal/internal/constants"
)

func GetConfigPath(homeDir string) string {
	return filepath.Join(
		homeDir,
		constants.ConfigDir,
		constants.ConfigFile+"."+constants.ConfigFileType,
	)
}

// EnsureConfigExists creates an empty config file on first run.
func EnsureConfigExists(homeDir string) error {
	configPath := GetConfigPath(homeDir)
	configDir := filepath.Dir(configPath)

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		file, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		file.Close()
	} else if err != nil {
		return fmt.Errorf("failed to check config file existence: %w", err)
	}

	return nil
}

// CheckRequired verifies the settings the selected fetch backend depends on
// and reports a ConfigInitError naming the first one missing.
func (cfg *Config) CheckRequired() error {
	required := map[string]string{}
	switch cfg.Fetch.Backend {
	case BackendAFS:
		required["fetch.base_url"] = cfg.Fetch.BaseURL
	case BackendS3:
		required["fetch.bucket"] = cfg.Fetch.Bucket
	}

	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return &ConfigInitError{
				msg: fmt.Sprintf("required config variable %q is not set", name),
			}
		}
	}

	return nil
}
