package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/deskshell/internal/logger"
	"github.com/glorpus-work/deskshell/pkg/update"
)

// NewUpdateCmd creates the update command.
func NewUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Inspect client updates",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Check whether a newer client is available",
		Long: `Fetch the remote configuration and compare its last advertised version
with the configured client version.

Exits with an error when the remote configuration disables this client.`,
		RunE: runUpdateCheck,
	})

	return cmd
}

func runUpdateCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.fetcher.Stop()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	remote, err := awaitConfig(ctx, a.fetcher, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch remote configuration: %w", err)
	}

	status := update.Check(remote, a.version.Version(), cfg.Client.FallbackUpdaterFeedURL)
	logger.Info("Update check complete", logger.Fields{
		"current":   status.CurrentVersion,
		"latest":    status.LatestVersion,
		"available": status.UpdateAvailable,
	})
	out := newPrinter(cmd.OutOrStdout(), cfg.Settings.OutputFormat)
	if out.json {
		if err := out.encode(status); err != nil {
			return err
		}
	} else {
		printUpdateStatus(out, status)
	}

	if status.AppDisabled {
		return fmt.Errorf("client version %s is disabled", status.CurrentVersion)
	}
	return nil
}

func printUpdateStatus(out *printer, st update.Status) {
	switch {
	case st.AppDisabled:
		out.failure("This client version is disabled")
	case st.UpdateAvailable:
		out.warning("Update available: " + st.LatestVersion)
	default:
		out.success("Client is up to date")
	}
	out.detail("current", st.CurrentVersion)
	if st.LatestVersion != "" {
		out.detail("latest", st.LatestVersion)
	}
	if st.FeedURL != "" {
		out.detail("feed", st.FeedURL)
	}
	if st.Interval > 0 {
		out.detail("check interval", st.Interval.String())
	}
}
