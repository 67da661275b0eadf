// Package config provides configuration management for deskshell. It loads
// the YAML configuration file, fills in defaults that mirror the shipped client
// and validates the result before it is handed to the configuration fetcher,
// the download engine and the CLI.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/deskshell/pkg/clientversion"
	"github.com/glorpus-work/deskshell/pkg/download"
	"github.com/glorpus-work/deskshell/pkg/ecs"
	"github.com/glorpus-work/deskshell/pkg/errors"
	"github.com/glorpus-work/deskshell/pkg/fsutil"
)

// Config represents the application configuration.
type Config struct {
	Client   ClientConfig   `yaml:"client"`
	ECS      ECSConfig      `yaml:"ecs"`
	Download DownloadConfig `yaml:"download"`
	Settings Settings       `yaml:"settings"`
}

// ClientConfig describes the client build reported to the configuration service.
type ClientConfig struct {
	AppVersion   string `yaml:"app_version"`
	Build        string `yaml:"build"`
	Cobrand      string `yaml:"cobrand"`
	BuildChannel string `yaml:"build_channel"`
	MSIX         bool   `yaml:"msix"`

	// FallbackUpdaterFeedURL is used when the remote config has no updater feed.
	FallbackUpdaterFeedURL string `yaml:"fallback_updater_feed_url,omitempty"`
}

// ECSConfig configures the remote configuration fetcher.
type ECSConfig struct {
	Hosts           []string      `yaml:"hosts"`
	PathTemplate    string        `yaml:"path_template"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	RetryFailedIn   time.Duration `yaml:"retry_failed_in"`
	RetryGetIn      time.Duration `yaml:"retry_get_in"`
	RetryLimit      int           `yaml:"retry_limit"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

// DownloadConfig configures the download engine.
type DownloadConfig struct {
	DownloadsDir string        `yaml:"downloads_dir,omitempty"`
	TempDir      string        `yaml:"temp_dir,omitempty"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	UserAgent    string        `yaml:"user_agent"`
}

// Settings represents general application settings.
type Settings struct {
	// DataDir holds the config cache and the device identity.
	DataDir string `yaml:"data_dir,omitempty"`

	OutputFormat string `yaml:"output_format"` // text, json
	LogLevel     string `yaml:"log_level"`     // error, warn, info, debug
}

// Default configuration values.
const (
	DefaultAppVersion     = "8.10"
	DefaultBuild          = "0"
	DefaultCobrand        = "0"
	DefaultBuildChannel   = "production"
	DefaultRequestTimeout = 30 * time.Second
	DefaultUserAgent      = "deskshell/1.0"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dataDir, err := fsutil.GetDataDir()
	if err != nil {
		// Fallback to the current directory if we can't determine the data dir
		dataDir = "."
	}
	downloadsDir, err := fsutil.GetDownloadsDir()
	if err != nil {
		downloadsDir = filepath.Join(dataDir, "Downloads")
	}

	return &Config{
		Client: ClientConfig{
			AppVersion:   DefaultAppVersion,
			Build:        DefaultBuild,
			Cobrand:      DefaultCobrand,
			BuildChannel: DefaultBuildChannel,
		},
		ECS: ECSConfig{
			Hosts:           ecs.ParseHosts(ecs.DefaultHosts),
			PathTemplate:    ecs.DefaultPathTemplate,
			RefreshInterval: ecs.DefaultRefreshInterval,
			RetryFailedIn:   ecs.DefaultRetryFailedIn,
			RetryGetIn:      ecs.DefaultRetryGetIn,
			RetryLimit:      ecs.DefaultRetryLimit,
			RequestTimeout:  DefaultRequestTimeout,
		},
		Download: DownloadConfig{
			DownloadsDir: downloadsDir,
			TempDir:      fsutil.GetTempDir(),
			IdleTimeout:  download.DefaultIdleTimeout,
			UserAgent:    DefaultUserAgent,
		},
		Settings: Settings{
			DataDir:      dataDir,
			OutputFormat: "text",
			LogLevel:     "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}

	return &config, nil
}

// SaveConfig writes the configuration to path through a temporary file that
// replaces the target atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}

	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateECS(c.ECS); err != nil {
		return err
	}
	if c.Download.IdleTimeout < 0 {
		return fmt.Errorf("%w: download.idle_timeout", errors.ErrNegativeDuration)
	}
	return validateSettings(c.Settings)
}

func validateECS(e ECSConfig) error {
	if len(e.Hosts) == 0 {
		return errors.ErrNoHosts
	}
	durations := map[string]time.Duration{
		"ecs.refresh_interval": e.RefreshInterval,
		"ecs.retry_failed_in":  e.RetryFailedIn,
		"ecs.retry_get_in":     e.RetryGetIn,
		"ecs.request_timeout":  e.RequestTimeout,
	}
	for key, d := range durations {
		if d < 0 {
			return fmt.Errorf("%w: %s", errors.ErrNegativeDuration, key)
		}
	}
	if e.RetryLimit < 1 {
		return errors.ErrInvalidRetryLimit
	}
	return nil
}

func validateSettings(s Settings) error {
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[s.OutputFormat] {
		return errors.ErrInvalidFormatWithDetails(s.OutputFormat)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, fsutil.AppName, "config.yaml"), nil
}

// CacheFile returns where the fetched remote config is persisted.
func (c *Config) CacheFile() string {
	return filepath.Join(c.Settings.DataDir, ecs.CacheFileName)
}

// ECSOptions maps the ecs section onto fetcher options.
func (c *Config) ECSOptions() ecs.Options {
	return ecs.Options{
		Hosts:           c.ECS.Hosts,
		PathTemplate:    c.ECS.PathTemplate,
		BuildChannel:    c.Client.BuildChannel,
		CacheFile:       c.CacheFile(),
		RefreshInterval: c.ECS.RefreshInterval,
		RetryFailedIn:   c.ECS.RetryFailedIn,
		RetryGetIn:      c.ECS.RetryGetIn,
		RetryLimit:      c.ECS.RetryLimit,
		RequestTimeout:  c.ECS.RequestTimeout,
	}
}

// ClientInfo returns the build metadata for the version provider.
func (c *Config) ClientInfo() clientversion.Info {
	return clientversion.Info{
		AppVersion: c.Client.AppVersion,
		Build:      c.Client.Build,
		Cobrand:    c.Client.Cobrand,
		MSIX:       c.Client.MSIX,
	}
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Client.AppVersion == "" {
		c.Client.AppVersion = defaults.Client.AppVersion
	}
	if c.Client.Build == "" {
		c.Client.Build = defaults.Client.Build
	}
	if c.Client.Cobrand == "" {
		c.Client.Cobrand = defaults.Client.Cobrand
	}
	if c.Client.BuildChannel == "" {
		c.Client.BuildChannel = defaults.Client.BuildChannel
	}

	hosts := make([]string, 0, len(c.ECS.Hosts))
	for _, h := range c.ECS.Hosts {
		hosts = append(hosts, ecs.ParseHosts(h)...)
	}
	c.ECS.Hosts = hosts
	if len(c.ECS.Hosts) == 0 {
		c.ECS.Hosts = defaults.ECS.Hosts
	}
	if c.ECS.PathTemplate == "" {
		c.ECS.PathTemplate = defaults.ECS.PathTemplate
	}
	if c.ECS.RefreshInterval == 0 {
		c.ECS.RefreshInterval = defaults.ECS.RefreshInterval
	}
	if c.ECS.RetryFailedIn == 0 {
		c.ECS.RetryFailedIn = defaults.ECS.RetryFailedIn
	}
	if c.ECS.RetryGetIn == 0 {
		c.ECS.RetryGetIn = defaults.ECS.RetryGetIn
	}
	if c.ECS.RetryLimit == 0 {
		c.ECS.RetryLimit = defaults.ECS.RetryLimit
	}
	if c.ECS.RequestTimeout == 0 {
		c.ECS.RequestTimeout = defaults.ECS.RequestTimeout
	}

	if c.Download.DownloadsDir == "" {
		c.Download.DownloadsDir = defaults.Download.DownloadsDir
	}
	if c.Download.TempDir == "" {
		c.Download.TempDir = defaults.Download.TempDir
	}
	if c.Download.IdleTimeout == 0 {
		c.Download.IdleTimeout = defaults.Download.IdleTimeout
	}
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = defaults.Download.UserAgent
	}

	if c.Settings.DataDir == "" {
		c.Settings.DataDir = defaults.Settings.DataDir
	}
	if c.Settings.OutputFormat == "" {
		c.Settings.OutputFormat = defaults.Settings.OutputFormat
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
}
