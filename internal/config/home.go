package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// GetHome returns the megacoder home directory
// Priority order:
//  1. MEGACODER_HOME environment variable (if set)
//  2. .megacoder in the current working directory
//
// The directory is created if it doesn't exist
func GetHome() (string, error) {
	if home := os.Getenv("MEGACODER_HOME"); home != "" {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create megacoder home directory: %w", err)
		}
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	home := filepath.Join(cwd, ".megacoder")
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create megacoder home directory: %w", err)
	}

	return home, nil
}

// defaultCaptureCommand picks a screenshot tool for the current OS.
func defaultCaptureCommand() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"screencapture", "-x", "{file}"}
	case "windows":
		return []string{"nircmd", "savescreenshot", "{file}"}
	default:
		return []string{"scrot", "--overwrite", "{file}"}
	}
}
