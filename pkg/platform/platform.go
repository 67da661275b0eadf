package platform

import (
	"runtime"
	"strings"
)

// Current returns the normalized name of the running operating system.
func Current() string {
	return NormalizeOS(runtime.GOOS)
}

// NormalizeOS normalizes OS names to the GOOS spelling.
func NormalizeOS(os string) string {
	os = strings.ToLower(os)
	switch os {
	case "darwin", "macos", "mac", "osx":
		return OSDarwin
	case "win", "windows", "win32":
		return OSWindows
	default:
		return os
	}
}

// PickFor returns the value matching os. Every OS that is neither Windows nor
// macOS gets the linux value.
func PickFor[T any](os string, windows, darwin, linux T) T {
	switch NormalizeOS(os) {
	case OSWindows:
		return windows
	case OSDarwin:
		return darwin
	default:
		return linux
	}
}
