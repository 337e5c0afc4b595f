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
	"github.com/Aman-CERP/memvecgo/internal/output"
	"github.com/Aman-CERP/memvecgo/internal/watcher"
)

type watchOptions struct {
	dir           string
	embedProvider string
	embedModel    string
	debounce      time.Duration
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch <path>",
		Short: "Watch a directory and ingest files as they are created or changed",
		Long: `Watch recursively watches path for file system events and, once a
burst of writes to a path settles for the debounce window, re-ingests
that file. Ctrl-C stops watching.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", defaultStateDir(), "directory holding the process config and document id registry")
	cmd.Flags().StringVar(&opts.embedProvider, "embed-provider", "ollama", "embedding provider: ollama or static")
	cmd.Flags().StringVar(&opts.embedModel, "embed-model", "", "embedding model override")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 300*time.Millisecond, "coalescing window for bursts of writes to the same path")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, path string, opts watchOptions) error {
	out := output.New(cmd.OutOrStdout())

	if err := os.MkdirAll(opts.dir, 0o755); err != nil {
		return fmt.Errorf("watch: preparing state directory: %w", err)
	}

	eng, err := engine.Build(ctx, engine.Options{
		Dir:            opts.dir,
		EmbedProvider:  embed.ParseProvider(opts.embedProvider),
		EmbedModel:     opts.embedModel,
		EmbedCacheSize: 0,
	})
	if err != nil {
		return fmt.Errorf("watch: building engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	w, err := watcher.New(watcher.Options{DebounceWindow: opts.debounce})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	out.Statusf("👀", "Watching %s (Ctrl-C to stop)...", path)

	go func() {
		for err := range w.Errors() {
			out.Warningf("watch error: %v", err)
		}
	}()

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, path) }()

	for {
		select {
		case <-ctx.Done():
			<-done
			out.Status("", "Stopped.")
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return <-done
			}
			if ev.Operation == watcher.OpDelete {
				continue
			}
			result, err := eng.IngestPath(ctx, ev.Path, nil)
			if err != nil {
				out.Warningf("ingesting %s: %v", ev.Path, err)
				continue
			}
			out.Successf("indexed %s: document %d, %d vectors", ev.Path, result.DocumentID, result.VectorCount)
		}
	}
}
