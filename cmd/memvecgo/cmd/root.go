// Package cmd provides the CLI commands for memvecgo.
package cmd

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/memvecgo/internal/logging"
	"github.com/Aman-CERP/memvecgo/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the memvecgo CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memvecgo",
		Short: "Two-tier ANN vector search engine",
		Long: `memvecgo ingests text into an HNSW index backed by a chunked
object store, and serves nearest-neighbor queries against it.

Run 'memvecgo ingest <path>' to index a file or directory, then
'memvecgo query "<text>"' to search it.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("memvecgo version {{.Version}}\n")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.memvecgo/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// defaultStateDir returns ~/.memvecgo, where the process config file and
// the document id registry live unless overridden by --dir, mirroring
// logging.DefaultLogDir's fallback to a temp directory.
func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".memvecgo")
	}
	return filepath.Join(home, ".memvecgo")
}

// startLogging initializes logging before any subcommand runs. `serve`
// always gets MCP-safe logging (stdout is reserved for JSON-RPC frames,
// so nothing may write there, and debug mode's stderr mirror must stay
// off even if --debug is set); every other subcommand only logs to file
// when --debug is passed, mirroring the teacher's opt-in debug logging.
func startLogging(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "serve" {
		level := "debug"
		if !debugMode {
			level = "info"
		}
		cleanup, err := logging.SetupMCPModeWithLevel(level)
		if err != nil {
			return err
		}
		loggingCleanup = cleanup
		return nil
	}

	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
