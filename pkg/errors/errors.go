// Package errors defines the sentinel errors shared by the deskshell core and
// small helpers for wrapping them with context. Callers classify failures with
// the standard errors.Is / errors.As functions.
package errors

import (
	"errors"
	"fmt"
)

// Failure taxonomy of the network and download layers.
var (
	// ErrTransport covers connection, DNS and TLS failures, and connections that
	// were closed before a transfer completed.
	ErrTransport = fmt.Errorf("transport error")

	// ErrTimeout is returned when a request or transfer did not make progress in time.
	ErrTimeout = fmt.Errorf("timeout")

	// ErrHTTPStatus is returned for responses with a status the caller cannot use.
	ErrHTTPStatus = fmt.Errorf("unexpected http status")

	// ErrIntegrity is returned when a download is incomplete or could not be flagged.
	ErrIntegrity = fmt.Errorf("integrity check failed")

	// ErrCacheCorrupt marks an unreadable or version-mismatched cache file. It is
	// only ever logged, a corrupt cache is treated as absent.
	ErrCacheCorrupt = fmt.Errorf("cache corrupt")

	// ErrFilesystem is returned when a target path cannot be created or written.
	ErrFilesystem = fmt.Errorf("filesystem error")

	// ErrAborted is returned for transfers cancelled through Abort.
	ErrAborted = fmt.Errorf("aborted")

	// ErrRemoteConfig is returned when a configuration service response cannot be parsed.
	ErrRemoteConfig = fmt.Errorf("invalid remote config")

	// ErrNotInitialized is returned when a collaborator is used before Init.
	ErrNotInitialized = fmt.Errorf("not initialized")
)

// Config errors.
var (
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")
	ErrUnknownConfigKey  = fmt.Errorf("unknown configuration key")
	ErrInvalidLogLevel   = fmt.Errorf("invalid log level")
	ErrInvalidFormat     = fmt.Errorf("invalid output format")
	ErrNoHosts           = fmt.Errorf("at least one ecs host is required")
	ErrNegativeDuration  = fmt.Errorf("duration cannot be negative")
	ErrInvalidRetryLimit = fmt.Errorf("retry limit must be at least 1")
)

// HTTPStatusError carries the status of a rejected response. It matches ErrHTTPStatus.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPStatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s: %s (%s)", ErrHTTPStatus, e.Status, e.URL)
	}
	return fmt.Sprintf("%s: %d (%s)", ErrHTTPStatus, e.StatusCode, e.URL)
}

// Is reports whether target is ErrHTTPStatus.
func (e *HTTPStatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// StatusCode extracts the status of an HTTPStatusError in err's chain, or 0.
func StatusCode(err error) int {
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Mark joins err under the sentinel kind, so both errors.Is(kind) and the
// original cause stay reachable.
func Mark(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// ErrUnknownConfigKeyWithName is a helper to create a wrapped error with the key name.
func ErrUnknownConfigKeyWithName(key string) error {
	return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
}

// ErrInvalidLogLevelWithDetails is a helper to create a wrapped error with the invalid level and valid options.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: error, warn, info, debug", ErrInvalidLogLevel, level)
}

// ErrInvalidFormatWithDetails is a helper to create a wrapped error with the invalid format.
func ErrInvalidFormatWithDetails(format string) error {
	return fmt.Errorf("%w: '%s', must be one of: text, json", ErrInvalidFormat, format)
}
