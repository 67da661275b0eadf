package cli

import (
	"github.com/glorpus-work/deskshell/internal/logger"
	"github.com/glorpus-work/deskshell/pkg/config"
)

// initLogging configures the global logger from the settings section. Logs
// always go to stderr so command output stays machine readable.
func initLogging(cfg *config.Config) {
	logger.InitLogger(cfg.Settings.LogLevel, logger.OutputFormat(cfg.Settings.OutputFormat))
}
