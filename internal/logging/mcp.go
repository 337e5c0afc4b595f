package logging

import (
	"log/slog"
)

// SetupMCPMode initializes logging for the `memvecgo serve` command,
// which runs internal/mcp.Server.Serve over &mcp.StdioTransport{}: the
// MCP protocol reserves stdout exclusively for its JSON-RPC frames, so a
// server that shares this process must never write anything else there.
// Regular Setup already keeps logging off stdout (it only ever writes to
// the rotating file and, optionally, stderr), but SetupMCPMode turns the
// stderr mirror off too and forces debug level, so a client that also
// captures this process's stderr (an editor embedding it as a subprocess,
// say) never sees log noise interleaved with tool output either.
func SetupMCPMode() (func(), error) {
	return SetupMCPModeWithLevel("debug")
}

// SetupMCPModeWithLevel initializes MCP-safe logging at a specific level.
func SetupMCPModeWithLevel(level string) (func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false, // never write outside the log file in MCP mode
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	logger = WithComponent(logger, ComponentMCP)
	slog.SetDefault(logger)

	logger.Info("mcp mode logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level),
		slog.Bool("stderr_disabled", true))

	return cleanup, nil
}
