package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultOutputDir returns the platform's conventional place for
// downloaded files.
func DefaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "Documents", "gopull")
	case "darwin":
		return filepath.Join(home, "Downloads", "gopull")
	default:
		return filepath.Join(home, "gopull")
	}
}

// DefaultMaxFilenameLength returns a per-platform cap on generated file
// names. The Linux value is conservative enough for ecryptfs, whose limit
// is well below the usual 255.
func DefaultMaxFilenameLength() int {
	switch runtime.GOOS {
	case "windows", "darwin":
		return 255
	default:
		return 143
	}
}
