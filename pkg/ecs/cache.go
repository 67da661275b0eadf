package ecs

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/glorpus-work/deskshell/internal/logger"
	pkgerrors "github.com/glorpus-work/deskshell/pkg/errors"
	"github.com/glorpus-work/deskshell/pkg/fsutil"
)

// CacheFileName is the cache file name inside the data directory.
const CacheFileName = "ecscache.json"

type cacheFile struct {
	Version string        `json:"version"`
	Data    *RemoteConfig `json:"data"`
}

// Cache persists the last fetched config. An entry is only valid for the exact
// client version that wrote it.
type Cache struct {
	path string
	log  logger.Logger
}

// NewCache creates a cache backed by the file at path.
func NewCache(path string, log logger.Logger) *Cache {
	return &Cache{path: path, log: logger.OrNop(log)}
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.path
}

// Save overwrites the cache file with cfg tagged by version.
func (c *Cache) Save(version string, cfg *RemoteConfig) error {
	data, err := json.Marshal(cacheFile{Version: version, Data: cfg})
	if err != nil {
		return pkgerrors.Wrap(err, "failed to encode ecs cache")
	}
	if err := fsutil.EnsureFileDir(c.path); err != nil {
		return pkgerrors.Mark(pkgerrors.ErrFilesystem, err)
	}
	if err := os.WriteFile(c.path, data, fsutil.FileModeDefault); err != nil {
		return pkgerrors.Mark(pkgerrors.ErrFilesystem, err)
	}
	return nil
}

// Load reads the cache for version. A missing file returns (nil, nil). An
// unreadable file or one written by another version returns an error matching
// ErrCacheCorrupt; a version mismatch also removes the file.
func (c *Cache) Load(version string) (*RemoteConfig, error) {
	if !fsutil.IsFile(c.path) {
		c.log.Info("Ecs cache does not exist", logger.Fields{"path": c.path})
		return nil, nil
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		return nil, pkgerrors.Mark(pkgerrors.ErrCacheCorrupt, err)
	}
	var entry cacheFile
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, pkgerrors.Mark(pkgerrors.ErrCacheCorrupt, err)
	}

	if entry.Version != version {
		if rmErr := os.Remove(c.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			c.log.Warn("Failed to delete stale ecs cache", logger.Fields{"path": c.path, "error": rmErr.Error()})
		}
		return nil, pkgerrors.Wrapf(pkgerrors.ErrCacheCorrupt, "cache written by version %q, running %q", entry.Version, version)
	}
	if entry.Data == nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCacheCorrupt, "cache has no data")
	}
	return entry.Data, nil
}

// Clear deletes the cache file. A missing file is not an error.
func (c *Cache) Clear() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return pkgerrors.Mark(pkgerrors.ErrFilesystem, err)
	}
	return nil
}
