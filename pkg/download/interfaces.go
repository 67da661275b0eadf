//go:generate mockgen -destination=mocks/download.go . Quarantiner,Shell

package download

import "net/http"

// Quarantiner flags a downloaded file as originating from the internet.
type Quarantiner interface {
	Quarantine(path, sourceURL string) error
}

// Shell hands files and folders to the desktop environment.
type Shell interface {
	// Open opens path with its default application.
	Open(path string) error
	// Reveal shows path selected in the system file browser.
	Reveal(path string) error
}

// EventKind names a download notification.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventFinished EventKind = "finished"
	EventFailed   EventKind = "failed"
)

// Event is published by an Emitter. Percent is set for progress events; Path
// for finished events; Err for failed events. StatusCode is 0 when the failure
// happened before a response arrived.
type Event struct {
	Kind       EventKind
	Percent    int
	StatusCode int
	Headers    http.Header
	Path       string
	Err        error
}

// FileStats describes a file on disk.
type FileStats struct {
	SizeBytes   int64
	LastUpdated int64 // unix milliseconds
}
