// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

// ECSServer is a fake configuration service.
type ECSServer struct {
	*httptest.Server

	requests atomic.Int32

	mu       sync.Mutex
	status   int
	body     string
	lastPath string
}

// NewECSServer starts a server answering every request with status and body.
// It is closed when the test ends.
func NewECSServer(t *testing.T, status int, body string) *ECSServer {
	t.Helper()
	s := &ECSServer{status: status, body: body}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		s.mu.Lock()
		status, body := s.status, s.body
		s.lastPath = r.URL.RequestURI()
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

// Respond changes the reply for subsequent requests.
func (s *ECSServer) Respond(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status, s.body = status, body
}

// Requests returns how many requests were served.
func (s *ECSServer) Requests() int {
	return int(s.requests.Load())
}

// LastPath returns the path and query of the last request.
func (s *ECSServer) LastPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPath
}

// ECSBody renders a configuration service response.
func ECSBody(etag, lastVersion string, appDisabled bool) string {
	body := map[string]any{
		"Headers": map[string]string{
			"ETag":    etag,
			"Expires": "Wed, 21 Oct 2026 07:28:00 GMT",
		},
		"SkypeElectronWrapper": map[string]any{
			"appDisabled":          appDisabled,
			"lastVersionAvailable": lastVersion,
			"updateInterval":       "3600",
		},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

// Dirs are the directories a test config points at.
type Dirs struct {
	Data      string
	Downloads string
	Temp      string
}

// WriteTestConfig writes a config file whose ecs section targets ecsURL with
// millisecond retry delays. It returns the config path and the directories used.
func WriteTestConfig(t *testing.T, ecsURL string) (string, Dirs) {
	t.Helper()
	root := t.TempDir()
	dirs := Dirs{
		Data:      filepath.Join(root, "data"),
		Downloads: filepath.Join(root, "Downloads"),
		Temp:      filepath.Join(root, "temp"),
	}

	content := fmt.Sprintf(`client:
  app_version: "8.10"
  build: "76"
  cobrand: "1"
ecs:
  hosts:
    - %q
  retry_failed_in: 5ms
  retry_get_in: 1h
  retry_limit: 2
  request_timeout: 2s
download:
  downloads_dir: %q
  temp_dir: %q
settings:
  data_dir: %q
  log_level: error
`, ecsURL, dirs.Downloads, dirs.Temp, dirs.Data)

	path := filepath.Join(root, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path, dirs
}
