package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/memvecgo/internal/embed"
	"github.com/Aman-CERP/memvecgo/internal/engine"
	"github.com/Aman-CERP/memvecgo/internal/mcp"
)

type serveOptions struct {
	dir           string
	embedProvider string
	embedModel    string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query and ingest tools over MCP on stdio",
		Long: `Serve starts an MCP server on stdio exposing the engine's query and
ingest operations as tools, for use by an MCP-speaking client such as
an editor or agent harness. It runs until the client disconnects or
the process receives an interrupt.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", defaultStateDir(), "directory holding the process config and document id registry")
	cmd.Flags().StringVar(&opts.embedProvider, "embed-provider", "ollama", "embedding provider: ollama or static")
	cmd.Flags().StringVar(&opts.embedModel, "embed-model", "", "embedding model override")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	if err := os.MkdirAll(opts.dir, 0o755); err != nil {
		return fmt.Errorf("serve: preparing state directory: %w", err)
	}

	eng, err := engine.Build(ctx, engine.Options{
		Dir:            opts.dir,
		EmbedProvider:  embed.ParseProvider(opts.embedProvider),
		EmbedModel:     opts.embedModel,
		EmbedCacheSize: 0,
	})
	if err != nil {
		return fmt.Errorf("serve: building engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	srv, err := mcp.NewServer(eng)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	return srv.Serve(ctx)
}
