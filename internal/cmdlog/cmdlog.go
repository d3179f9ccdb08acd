package cmdlog

import (
	"log/slog"

	"socialrelay/internal/metrics"
)

// Run executes a CLI command, counting it and logging how it ended.
func Run(logger *slog.Logger, cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	err := f()
	if err != nil {
		metrics.IncCommandError(cmd)
		logger.Error(cmd+"_error", "error", err.Error())
	} else {
		logger.Info(cmd + "_ok")
	}
	return err
}
