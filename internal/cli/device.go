package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/deskshell/internal/logger"
	"github.com/glorpus-work/deskshell/pkg/device"
)

// NewDeviceCmd creates the device command.
func NewDeviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Show device information",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "id",
		Short: "Print the device id, creating it on first use",
		RunE:  runDeviceID,
	})

	return cmd
}

func runDeviceID(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	identity := device.New(cfg.Settings.DataDir, logger.Default().Component("device"))
	if err := identity.Init(); err != nil {
		return err
	}
	id, err := identity.DeviceID()
	if err != nil {
		return err
	}

	out := newPrinter(cmd.OutOrStdout(), cfg.Settings.OutputFormat)
	if out.json {
		return out.encode(map[string]string{"deviceId": id, "path": identity.Path()})
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
