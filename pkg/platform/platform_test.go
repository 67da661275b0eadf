package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrent(t *testing.T) {
	assert.Equal(t, NormalizeOS(runtime.GOOS), Current())
}

func TestNormalizeOS(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"darwin", OSDarwin},
		{"macOS", OSDarwin},
		{"Win32", OSWindows},
		{"windows", OSWindows},
		{"linux", OSLinux},
		{"FreeBSD", "freebsd"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeOS(tt.input))
		})
	}
}

func TestPickFor(t *testing.T) {
	tests := []struct {
		os       string
		expected string
	}{
		{OSWindows, "1433"},
		{OSDarwin, "1432"},
		{OSLinux, "1431"},
		{"freebsd", "1431"},
	}

	for _, tt := range tests {
		t.Run(tt.os, func(t *testing.T) {
			assert.Equal(t, tt.expected, PickFor(tt.os, "1433", "1432", "1431"))
		})
	}
}
