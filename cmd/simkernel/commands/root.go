package commands

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog/v2"
	"github.com/roasbeef/simkernel/internal/build"
	"github.com/roasbeef/simkernel/internal/demo"
	"github.com/roasbeef/simkernel/internal/kernel"
	"github.com/roasbeef/simkernel/internal/mc"
	"github.com/roasbeef/simkernel/internal/scenario"
	"github.com/spf13/cobra"
)

var (
	logDir         string
	maxLogFiles    int
	maxLogFileSize int
	scenarioDBPath string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "simkernel",
	Short: "A deterministic, single-threaded discrete-event simulation kernel",
	Long: `simkernel runs and inspects scenarios against a cooperative,
single-threaded discrete-event simulation kernel: actors, rendezvous
mailboxes, a timer heap, and synchronization primitives, driven either to
quiescence or one visible transition at a time by an attached model
checker.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&logDir, "log-dir", "",
		"directory for log files (empty disables file logging)",
	)
	rootCmd.PersistentFlags().IntVar(
		&maxLogFiles, "max-log-files", build.DefaultMaxLogFiles,
		"maximum number of rotated log files to keep",
	)
	rootCmd.PersistentFlags().IntVar(
		&maxLogFileSize, "max-log-file-size", build.DefaultMaxLogFileSize,
		"maximum log file size in MB before rotation",
	)
	rootCmd.PersistentFlags().StringVar(
		&scenarioDBPath, "scenario-db", "~/.simkernel/scenarios.db",
		"path to the scenario catalog database",
	)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scenarioCmd)
	rootCmd.AddCommand(watchCmd)

	cobra.OnInitialize(initLogging)
}

// initLogging wires the kernel/mc/scenario package loggers to a console
// handler, plus a rotating file handler when --log-dir is set — the same
// dual-stream shape the teacher's daemon entry point uses.
func initLogging() {
	var handlers []btclog.Handler

	handlers = append(handlers, btclog.NewDefaultHandler(os.Stderr))

	if logDir != "" {
		rotator := build.NewRotatingLogWriter()

		cfg := build.DefaultLogRotatorConfig()
		cfg.LogDir = logDir
		cfg.MaxLogFiles = maxLogFiles
		cfg.MaxLogFileSize = maxLogFileSize

		if err := rotator.InitLogRotator(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "simkernel: log rotation disabled: %v\n", err)
		} else {
			handlers = append(handlers, btclog.NewDefaultHandler(rotator))
		}
	}

	combined := build.NewHandlerSet(handlers...)
	root := btclog.NewSLogger(combined)

	kernel.UseLogger(root.WithPrefix("KRNL"))
	mc.UseLogger(root.WithPrefix("MC"))
	scenario.UseLogger(root.WithPrefix("SCNR"))
	demo.UseLogger(root.WithPrefix("DEMO"))
}
