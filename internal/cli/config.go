package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/deskshell/internal/logger"
	"github.com/glorpus-work/deskshell/pkg/config"
	"github.com/glorpus-work/deskshell/pkg/ecs"
)

// NewConfigCmd creates the config command with subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "View and modify deskshell settings and the remote client configuration",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigSetCmd(),
		newConfigGetCmd(),
		newConfigInitCmd(),
		newConfigFetchCmd(),
		newConfigCacheCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current configuration settings",
		RunE:  runConfigShow,
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration key such as ecs.refresh_interval to a specific value",
		Args:  cobra.ExactArgs(keyValueArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Get a configuration value",
		Long:  "Get the value of a specific configuration key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd, args[0])
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long:  "Create a default configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration file")

	return cmd
}

func newConfigFetchCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the remote client configuration",
		Long: `Fetch the remote client configuration from the configured hosts.

Without --watch the command returns once a config is available (fetched or cached)
or all retries failed. With --watch it keeps refreshing on schedule until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigFetch(cmd, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep refreshing and print every event")

	return cmd
}

func newConfigCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the remote config cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the cached remote configuration",
		RunE:  runConfigCacheClear,
	})

	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := newPrinter(cmd.OutOrStdout(), cfg.Settings.OutputFormat)
	settings := cfg.ToMap()
	if out.json {
		return out.encode(settings)
	}

	tabWriter := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "SETTING\tVALUE")
	_, _ = fmt.Fprintln(tabWriter, "-------\t-----")
	for _, key := range cfg.Keys() {
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\n", key, settings[key])
	}
	return tabWriter.Flush()
}

func runConfigSet(cmd *cobra.Command, key, value string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := cfg.SetValue(key, value); err != nil {
		return fmt.Errorf("failed to set configuration value: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration value: %w", err)
	}

	configPath := getConfigPath()
	if err := cfg.SaveConfig(configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	logger.Debug("Configuration updated", logger.Fields{"key": key, "value": value, "path": configPath})
	newPrinter(cmd.OutOrStdout(), cfg.Settings.OutputFormat).success(key + " = " + value)
	return nil
}

func runConfigGet(cmd *cobra.Command, key string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	value, err := cfg.GetValue(key)
	if err != nil {
		return fmt.Errorf("failed to get configuration value: %w", err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", configPath)
	}

	if err := config.DefaultConfig().SaveConfig(configPath); err != nil {
		return fmt.Errorf("failed to save default configuration: %w", err)
	}

	logger.Success("Configuration initialized", logger.Fields{"path": configPath, "overwrite": force})
	newPrinter(cmd.OutOrStdout(), "text").success("Configuration file created at " + configPath)
	return nil
}

func runConfigFetch(cmd *cobra.Command, watch bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.fetcher.Stop()
	logger.Info("Fetching remote configuration", logger.Fields{"hosts": cfg.ECS.Hosts, "watch": watch})

	out := newPrinter(cmd.OutOrStdout(), cfg.Settings.OutputFormat)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if watch {
		a.fetcher.Subscribe(func(ev ecs.Event) {
			if out.json {
				_ = out.encode(configReport(ev.Config, []ecs.Event{ev}, ev.Err))
				return
			}
			printConfigEvent(out, ev)
		})
		return a.fetcher.Run(ctx)
	}

	var (
		mu     sync.Mutex
		events []ecs.Event
	)
	remote, err := awaitConfig(ctx, a.fetcher, func(ev ecs.Event) {
		mu.Lock()
		defer mu.Unlock()
		if !out.json {
			printConfigEvent(out, ev)
		}
		events = append(events, ev)
	})
	mu.Lock()
	defer mu.Unlock()
	if out.json {
		return out.encode(configReport(remote, events, err))
	}
	if err != nil {
		return fmt.Errorf("failed to fetch remote configuration: %w", err)
	}
	printRemoteConfig(out, remote)
	return nil
}

func runConfigCacheClear(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cache := ecs.NewCache(cfg.CacheFile(), logger.Default().Component("ecs"))
	if err := cache.Clear(); err != nil {
		return fmt.Errorf("failed to clear config cache: %w", err)
	}
	logger.Success("Remote config cache cleared", logger.Fields{"path": cache.Path()})

	newPrinter(cmd.OutOrStdout(), cfg.Settings.OutputFormat).success("Removed " + cache.Path())
	return nil
}

func printConfigEvent(out *printer, ev ecs.Event) {
	switch ev.Type {
	case ecs.EventChanged, ecs.EventReady:
		out.success(string(ev.Type))
	case ecs.EventUnchanged:
		out.info(string(ev.Type))
	case ecs.EventRefresh, ecs.EventRetry:
		out.pending(string(ev.Type))
	case ecs.EventFetchFailed:
		out.warning(fmt.Sprintf("%s: %v", ev.Type, ev.Err))
	case ecs.EventError:
		out.failure(fmt.Sprintf("%s: %v", ev.Type, ev.Err))
	}
}

func printRemoteConfig(out *printer, remote *ecs.RemoteConfig) {
	if remote == nil {
		return
	}
	out.header("Remote configuration")
	out.detail("etag", remote.ETag)
	if !remote.Expires.IsZero() {
		out.detail("expires", remote.Expires.String())
	}
	out.detail("app disabled", fmt.Sprint(remote.AppDisabled))
	out.detail("last version", remote.LastVersionAvailable)
	if remote.PlatformUpdaterFeedURL != "" {
		out.detail("updater feed", remote.PlatformUpdaterFeedURL)
	}
	if d := remote.UpdateIntervalDuration(); d > 0 {
		out.detail("update interval", d.String())
	}
}

type fetchReport struct {
	Events []string          `json:"events"`
	Config *ecs.RemoteConfig `json:"config,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func configReport(remote *ecs.RemoteConfig, events []ecs.Event, err error) fetchReport {
	report := fetchReport{Config: remote, Events: make([]string, 0, len(events))}
	for _, ev := range events {
		report.Events = append(report.Events, string(ev.Type))
	}
	if err != nil {
		report.Error = err.Error()
	}
	return report
}
