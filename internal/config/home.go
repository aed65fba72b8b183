package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnvVar overrides the evalrun home directory
const HomeEnvVar = "EVALRUN_HOME"

// GetHome returns the evalrun home directory
// Priority order:
//  1. EVALRUN_HOME environment variable (if set)
//  2. .evalrun under the current working directory
//
// The directory is created if it doesn't exist
func GetHome() (string, error) {
	if home := os.Getenv(HomeEnvVar); home != "" {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create evalrun home directory: %w", err)
		}
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	home := filepath.Join(cwd, ".evalrun")
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create evalrun home directory: %w", err)
	}

	return home, nil
}

// ResolvePaths rewrites the default relative .evalrun paths under the home
// directory when EVALRUN_HOME is set. Explicitly configured paths are kept.
func (c *Config) ResolvePaths() error {
	if os.Getenv(HomeEnvVar) == "" {
		return nil
	}
	home, err := GetHome()
	if err != nil {
		return err
	}

	defaults := DefaultConfig()
	if c.LogDir == defaults.LogDir {
		c.LogDir = filepath.Join(home, "logs")
	}
	if c.StorePath == defaults.StorePath {
		c.StorePath = filepath.Join(home, "evals.db")
	}
	return nil
}
