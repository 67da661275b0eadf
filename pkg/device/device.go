// Package device keeps the persistent identifier of this installation.
package device

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/glorpus-work/deskshell/internal/logger"
	pkgerrors "github.com/glorpus-work/deskshell/pkg/errors"
	"github.com/glorpus-work/deskshell/pkg/fsutil"
)

// FileName is the name of the identity file inside the data directory.
const FileName = "device-info.json"

var validID = regexp.MustCompile(`(?i)^[0-9A-Z-_]+$`)

type deviceInfo struct {
	DeviceID string `json:"deviceId"`
}

// Identity loads or creates the device id stored at path.
type Identity struct {
	path string
	log  logger.Logger

	mu sync.RWMutex
	id string
}

// New returns an Identity backed by <dataDir>/device-info.json.
func New(dataDir string, log logger.Logger) *Identity {
	return &Identity{path: filepath.Join(dataDir, FileName), log: logger.OrNop(log)}
}

// Path returns the identity file location.
func (d *Identity) Path() string { return d.path }

// Init reads the stored id. A missing file or an invalid id is replaced by a
// freshly generated one, which is written back.
func (d *Identity) Init() error {
	id, err := d.read()
	if err != nil {
		d.log.Warn("Device info unusable, generating new id", logger.Fields{"path": d.path, "error": err.Error()})
	}
	if id == "" {
		id = NewID()
		if err := d.write(id); err != nil {
			return err
		}
		d.log.Info("Created device id", logger.Fields{"path": d.path})
	}

	d.mu.Lock()
	d.id = id
	d.mu.Unlock()
	return nil
}

// DeviceID returns the id, or ErrNotInitialized before Init succeeded.
func (d *Identity) DeviceID() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.id == "" {
		return "", pkgerrors.Wrap(pkgerrors.ErrNotInitialized, "device id")
	}
	return d.id, nil
}

// ID returns the id or "" before Init.
func (d *Identity) ID() string {
	id, _ := d.DeviceID()
	return id
}

// read returns "" without error when the file does not exist.
func (d *Identity) read() (string, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", pkgerrors.Mark(pkgerrors.ErrFilesystem, err)
	}

	var info deviceInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.ErrCacheCorrupt, err.Error())
	}
	if !Valid(info.DeviceID) {
		return "", pkgerrors.Wrapf(pkgerrors.ErrCacheCorrupt, "invalid device id %q", info.DeviceID)
	}
	return info.DeviceID, nil
}

func (d *Identity) write(id string) error {
	data, err := json.Marshal(deviceInfo{DeviceID: id})
	if err != nil {
		return pkgerrors.Wrap(err, "failed to encode device info")
	}
	if err := fsutil.EnsureFileDir(d.path); err != nil {
		return pkgerrors.Mark(pkgerrors.ErrFilesystem, err)
	}
	if err := os.WriteFile(d.path, data, fsutil.FileModeDefault); err != nil {
		return pkgerrors.Mark(pkgerrors.ErrFilesystem, err)
	}
	return nil
}

// Valid reports whether id may be used as a device id.
func Valid(id string) bool {
	return validID.MatchString(id)
}

// NewID generates a 32 character uppercase hex id.
func NewID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
