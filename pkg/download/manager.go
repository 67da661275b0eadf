package download

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/deskshell/internal/logger"
	pkgerrors "github.com/glorpus-work/deskshell/pkg/errors"
	"github.com/glorpus-work/deskshell/pkg/fsutil"
)

const cacheKey = "file_storage"

// Request describes a download handed to the Manager.
type Request struct {
	URL string
	// Public stores the file in the downloads folder under TargetFilename,
	// otherwise it goes to the temp cache.
	Public         bool
	TargetFilename string
	Headers        map[string]string
	Quarantine     bool
}

// Manager decides where downloads land and exposes file helpers.
type Manager struct {
	engine       *Engine
	shell        Shell
	downloadsDir string
	tempDir      string
	log          logger.Logger
}

// NewManager creates a manager storing public files in downloadsDir and cached
// files in tempDir.
func NewManager(engine *Engine, shell Shell, downloadsDir, tempDir string, log logger.Logger) *Manager {
	return &Manager{
		engine:       engine,
		shell:        shell,
		downloadsDir: downloadsDir,
		tempDir:      tempDir,
		log:          logger.OrNop(log),
	}
}

// GetFromURL resolves the target path for req and starts the download.
//
// Public downloads with an absolute TargetFilename write exactly there and always
// transfer. Other public downloads pick the first free "name (n).ext" in the
// downloads folder. Cached downloads use a path derived from the URL and reuse
// an existing file.
func (m *Manager) GetFromURL(ctx context.Context, req Request) (*Emitter, error) {
	target, skipIfExists, err := m.Resolve(req)
	if err != nil {
		return nil, err
	}
	return m.engine.GetFromURL(ctx, req.URL, target, req.Headers, skipIfExists, req.Quarantine), nil
}

// Resolve returns the target path for req and whether an existing file there
// satisfies the request.
func (m *Manager) Resolve(req Request) (target string, skipIfExists bool, err error) {
	if !req.Public {
		return m.CachePath(req.URL, req.TargetFilename), true, nil
	}
	if filepath.IsAbs(req.TargetFilename) {
		return req.TargetFilename, false, nil
	}
	target, err = m.UniqueFullPath(req.TargetFilename)
	return target, true, err
}

// UniqueFullPath returns the first path in the downloads folder that does not
// exist, probing name.ext, "name (1).ext", "name (2).ext" and so on.
func (m *Manager) UniqueFullPath(filename string) (string, error) {
	base, ext := splitName(filename)
	for n := 0; ; n++ {
		suffix := ""
		if n > 0 {
			suffix = fmt.Sprintf(" (%d)", n)
		}
		candidate := filepath.Join(m.downloadsDir, base+suffix+ext)
		exists, err := fsutil.Exists(candidate)
		if err != nil {
			return "", pkgerrors.Mark(pkgerrors.ErrFilesystem, err)
		}
		if !exists {
			return candidate, nil
		}
	}
}

// CachePath maps url to a stable file in the temp folder, keeping the
// extension of filename.
func (m *Manager) CachePath(url, filename string) string {
	mac := hmac.New(sha256.New, []byte(cacheKey))
	mac.Write([]byte(url))
	return filepath.Join(m.tempDir, hex.EncodeToString(mac.Sum(nil))+extName(filename))
}

// Abort cancels the download of url.
func (m *Manager) Abort(url string) bool {
	return m.engine.Abort(url)
}

// FileStats returns size and modification time of path.
func (m *Manager) FileStats(path string) (FileStats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileStats{}, pkgerrors.Mark(pkgerrors.ErrFilesystem, err)
	}
	return FileStats{SizeBytes: info.Size(), LastUpdated: info.ModTime().UnixMilli()}, nil
}

// FileExists reports whether path exists. Errors other than "not found" are returned.
func (m *Manager) FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, pkgerrors.Mark(pkgerrors.ErrFilesystem, err)
	}
}

// OpenFile opens path with its default application.
func (m *Manager) OpenFile(path string) error {
	return m.shell.Open(path)
}

// OpenFileLocation shows path in the file browser.
func (m *Manager) OpenFileLocation(path string) error {
	return m.shell.Reveal(filepath.Clean(path))
}

// OpenFolderLocation opens a folder.
func (m *Manager) OpenFolderLocation(path string) error {
	return m.OpenFile(path)
}

// DownloadsDir returns the public downloads folder.
func (m *Manager) DownloadsDir() string {
	return m.downloadsDir
}

// OpenDownloadsFolder shows the downloads folder in the file browser.
func (m *Manager) OpenDownloadsFolder() error {
	return m.OpenFileLocation(m.downloadsDir)
}

// splitName splits off the last extension. Names starting with a dot are
// never split.
func splitName(filename string) (base, ext string) {
	if strings.HasPrefix(filename, ".") {
		return filename, ""
	}
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return filename, ""
	}
	return filename[:i], filename[i:]
}

// extName is filepath.Ext, except a leading dot alone does not make an extension.
func extName(filename string) string {
	base := filepath.Base(filename)
	if strings.HasPrefix(base, ".") && strings.Count(base, ".") == 1 {
		return ""
	}
	return filepath.Ext(base)
}
