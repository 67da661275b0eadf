package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/deskshell/pkg/clientversion"
)

const (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version information for deskshell and the client version it reports",
		RunE:  runVersion,
	}
}

func runVersion(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "deskshell version %s\n", Version)
	_, _ = fmt.Fprintf(w, "Build date: %s\n", BuildDate)
	_, _ = fmt.Fprintf(w, "Git commit: %s\n", GitCommit)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := clientversion.New(cfg.ClientInfo())
	_, _ = fmt.Fprintf(w, "Client version: %s\n", client.FullVersion())
	return nil
}
