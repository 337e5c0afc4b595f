package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/memvecgo/internal/embed"
	"github.com/Aman-CERP/memvecgo/internal/engine"
	"github.com/Aman-CERP/memvecgo/internal/output"
	"github.com/Aman-CERP/memvecgo/internal/reader"
)

type queryOptions struct {
	dir           string
	embedProvider string
	embedModel    string
	k             int
	threshold     float32
	hasThreshold  bool
	format        string
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Embed a query and return the nearest indexed passages",
		Long: `Query embeds the given text, asks the in-memory ANN index for the
k nearest candidate ids, groups them by storage chunk, resolves each
chunk from the cache or the object store, and prints the matched
vectors in ascending distance order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runQuery(ctx, cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", defaultStateDir(), "directory holding the process config and document id registry")
	cmd.Flags().StringVar(&opts.embedProvider, "embed-provider", "ollama", "embedding provider: ollama or static")
	cmd.Flags().StringVar(&opts.embedModel, "embed-model", "", "embedding model override")
	cmd.Flags().IntVar(&opts.k, "k", 5, "maximum number of hits")
	cmd.Flags().Float32Var(&opts.threshold, "threshold", 0, "maximum squared-L2 distance to accept")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format: text, json")

	return cmd
}

func runQuery(ctx context.Context, cmd *cobra.Command, text string, opts queryOptions) error {
	eng, err := engine.Build(ctx, engine.Options{
		Dir:            opts.dir,
		EmbedProvider:  embed.ParseProvider(opts.embedProvider),
		EmbedModel:     opts.embedModel,
		EmbedCacheSize: 0,
	})
	if err != nil {
		return fmt.Errorf("query: building engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	var threshold *float32
	if cmd.Flags().Changed("threshold") {
		threshold = &opts.threshold
	}

	result, err := eng.Query(ctx, text, opts.k, threshold)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	if opts.format == "json" {
		return writeQueryJSON(cmd, result)
	}
	return writeQueryText(cmd, text, result)
}

func writeQueryText(cmd *cobra.Command, text string, result *reader.Result) error {
	out := output.New(cmd.OutOrStdout())

	out.QueryHeader(text, len(result.Hits))
	if len(result.Hits) > 0 {
		out.Newline()
		for i, h := range result.Hits {
			out.Hit(output.Hit{
				Rank:       i + 1,
				DocumentID: h.DocumentID,
				ChunkID:    h.ChunkID,
				Offset:     h.Offset,
				Distance:   h.Distance,
			})
		}
	}

	for _, w := range result.Warnings {
		out.Warningf("chunk %d failed to resolve: %v", w.ChunkID, w.Err)
	}
	return nil
}

type jsonHit struct {
	DocumentID uint32    `json:"document_id"`
	ChunkID    uint64    `json:"chunk_id"`
	Offset     uint32    `json:"offset"`
	Distance   float32   `json:"distance"`
	Values     []float32 `json:"values"`
}

type jsonResult struct {
	Success  bool      `json:"success"`
	Hits     []jsonHit `json:"results"`
	Warnings []string  `json:"warnings,omitempty"`
}

func writeQueryJSON(cmd *cobra.Command, result *reader.Result) error {
	out := jsonResult{Success: true, Hits: make([]jsonHit, 0, len(result.Hits))}
	for _, h := range result.Hits {
		out.Hits = append(out.Hits, jsonHit{
			DocumentID: h.DocumentID,
			ChunkID:    h.ChunkID,
			Offset:     h.Offset,
			Distance:   h.Distance,
			Values:     h.VectorValues,
		})
	}
	for _, w := range result.Warnings {
		out.Warnings = append(out.Warnings, fmt.Sprintf("chunk %d: %v", w.ChunkID, w.Err))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
