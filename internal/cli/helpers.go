package cli

import (
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/glorpus-work/deskshell/internal/logger"
	"github.com/glorpus-work/deskshell/pkg/config"
	"github.com/glorpus-work/deskshell/pkg/ecs"
)

// These variables will be set by the main package
var (
	ConfigPath   *string
	Verbose      *bool
	NoColor      *bool
	OutputFormat *string
)

// loadConfig loads the configuration, applies the global flags and
// initializes logging accordingly.
func loadConfig() (*config.Config, error) {
	configPath := getConfigPath()
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if OutputFormat != nil && *OutputFormat != "" {
		cfg.Settings.OutputFormat = *OutputFormat
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}

	initLogging(cfg)
	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		// An empty path surfaces as ErrEmptyConfigPath when the file is used
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

// awaitConfig starts f and blocks until the first fetch settled, either with a
// usable config (fresh or cached) or with config-error.
func awaitConfig(ctx context.Context, f *ecs.Fetcher, onEvent func(ecs.Event)) (*ecs.RemoteConfig, error) {
	settled := make(chan ecs.Event, 1)
	unsubscribe := f.Subscribe(func(ev ecs.Event) {
		if onEvent != nil {
			onEvent(ev)
		}
		if ev.Type == ecs.EventReady || ev.Type == ecs.EventError {
			select {
			case settled <- ev:
			default:
			}
		}
	})
	defer unsubscribe()

	go f.Start(ctx)

	select {
	case ev := <-settled:
		if ev.Type == ecs.EventError {
			return nil, ev.Err
		}
		return ev.Config, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// filenameFromURL picks the last path segment of rawURL as a file name.
func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "download"
	}
	return name
}
