package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/memvecgo/internal/embed"
	"github.com/Aman-CERP/memvecgo/internal/engine"
	"github.com/Aman-CERP/memvecgo/internal/ui"
)

type ingestOptions struct {
	dir           string
	embedProvider string
	embedModel    string
	plain         bool
}

func newIngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Chunk, embed, and index a file or directory",
		Long: `Ingest walks path (a single file or a directory tree), extracts text
passages, embeds them in batches, and hands the result to the writer:
one document id is minted per file, vectors are packed into fixed-size chunks,
added to the in-memory ANN index, and uploaded to the object store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIngest(ctx, cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", defaultStateDir(), "directory holding the process config and document id registry")
	cmd.Flags().StringVar(&opts.embedProvider, "embed-provider", "ollama", "embedding provider: ollama or static")
	cmd.Flags().StringVar(&opts.embedModel, "embed-model", "", "embedding model override")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "force line-oriented progress output instead of the TUI")

	return cmd
}

func runIngest(ctx context.Context, cmd *cobra.Command, path string, opts ingestOptions) error {
	if err := os.MkdirAll(opts.dir, 0o755); err != nil {
		return fmt.Errorf("ingest: preparing state directory: %w", err)
	}

	eng, err := engine.Build(ctx, engine.Options{
		Dir:            opts.dir,
		EmbedProvider:  embed.ParseProvider(opts.embedProvider),
		EmbedModel:     opts.embedModel,
		EmbedCacheSize: 0,
	})
	if err != nil {
		return fmt.Errorf("ingest: building engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	renderer := ui.NewRenderer(ui.Config{
		Output:     cmd.OutOrStdout(),
		ForcePlain: opts.plain,
		TargetDir:  path,
	})
	if err := renderer.Start(ctx); err != nil {
		return fmt.Errorf("ingest: starting progress renderer: %w", err)
	}
	defer func() { _ = renderer.Stop() }()

	start := time.Now()
	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageScanning, CurrentFile: path})

	result, err := eng.IngestPath(ctx, path, func(done, total int) {
		renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageIndexing,
			Current: done,
			Total:   total,
		})
	})
	if err != nil {
		renderer.AddError(ui.ErrorEvent{Err: err})
		return fmt.Errorf("ingest: %w", err)
	}

	failed := 0
	for _, u := range result.ChunkUploads {
		if u.Err != nil {
			failed++
			renderer.AddError(ui.ErrorEvent{
				File:   fmt.Sprintf("chunk %d", u.ChunkID),
				Err:    u.Err,
				IsWarn: true,
			})
		}
	}

	renderer.Complete(ui.CompletionStats{
		Files:    len(result.ChunkUploads),
		Vectors:  result.VectorCount,
		Duration: time.Since(start),
		Warnings: failed,
	})

	return nil
}
