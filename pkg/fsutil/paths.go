package fsutil

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/glorpus-work/deskshell/pkg/platform"
)

const (
	// AppName is the name of the application used in paths
	AppName = "deskshell"
)

// getAppDataDir returns the platform-specific base data directory
func getAppDataDir() (string, error) {
	switch platform.Current() {
	case platform.OSWindows:
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			return "", errors.New("LOCALAPPDATA environment variable not set")
		}
		return localAppData, nil

	case platform.OSDarwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support"), nil

	default: // Linux, BSD, etc.
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			return xdgDataHome, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share"), nil
	}
}

// GetDataDir returns the platform-specific user data directory for the application.
// The remote config cache and the device identity live here.
func GetDataDir() (string, error) {
	baseDir, err := getAppDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, AppName), nil
}

// GetDownloadsDir returns the user's downloads folder, falling back to
// <data_dir>/Downloads when the home directory is unknown.
func GetDownloadsDir() (string, error) {
	if xdg := os.Getenv("XDG_DOWNLOAD_DIR"); xdg != "" {
		return xdg, nil
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Downloads"), nil
	}
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "Downloads"), nil
}

// GetTempDir returns the directory used for internal download caching.
func GetTempDir() string {
	return filepath.Join(os.TempDir(), AppName)
}
