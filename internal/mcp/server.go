// Package mcp exposes the ingest and query pipelines as MCP tools, the
// same shape of bridge the teacher's internal/mcp package builds between
// AI clients and its search engine, retargeted at this system's two
// operations instead of its three search variants.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/memvecgo/internal/engine"
	"github.com/Aman-CERP/memvecgo/pkg/version"
)

// Server bridges an *engine.Engine to the MCP tool surface.
type Server struct {
	mcp    *mcp.Server
	engine *engine.Engine
	logger *slog.Logger
}

// QueryInput is the input schema for the query tool.
type QueryInput struct {
	Text      string   `json:"text" jsonschema:"the text to search for"`
	K         int      `json:"k,omitempty" jsonschema:"maximum number of hits, default 10"`
	Threshold *float32 `json:"threshold,omitempty" jsonschema:"maximum distance to accept, omit for no cutoff"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	Hits     []HitOutput `json:"hits" jsonschema:"matched passages ordered by distance"`
	Warnings []string    `json:"warnings,omitempty" jsonschema:"chunk ids that failed to resolve"`
}

// HitOutput is one materialized search hit.
type HitOutput struct {
	DocumentID uint32  `json:"document_id"`
	ChunkID    uint64  `json:"chunk_id"`
	Offset     uint32  `json:"offset"`
	Distance   float32 `json:"distance"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Path string `json:"path" jsonschema:"file or directory to ingest"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	DocumentID  uint32 `json:"document_id"`
	VectorCount int    `json:"vector_count"`
	FailedCount int    `json:"failed_chunk_count"`
}

// NewServer builds an MCP server around eng, registering the ingest and
// query tools.
func NewServer(eng *engine.Engine) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("mcp: engine is required")
	}

	s := &Server{engine: eng, logger: slog.Default()}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: "memvecgo", Version: version.Version}, nil)
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query",
		Description: "Embed a text query and return the nearest indexed passages by vector distance.",
	}, s.queryHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ingest",
		Description: "Chunk, embed, and index a file or directory.",
	}, s.ingestHandler)
}

func (s *Server) queryHandler(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
	if input.Text == "" {
		return nil, QueryOutput{}, fmt.Errorf("mcp: text is required")
	}
	k := input.K
	if k <= 0 {
		k = 10
	}

	result, err := s.engine.Query(ctx, input.Text, k, input.Threshold)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	out := QueryOutput{Hits: make([]HitOutput, 0, len(result.Hits))}
	for _, h := range result.Hits {
		out.Hits = append(out.Hits, HitOutput{
			DocumentID: h.DocumentID,
			ChunkID:    h.ChunkID,
			Offset:     h.Offset,
			Distance:   h.Distance,
		})
	}
	for _, w := range result.Warnings {
		out.Warnings = append(out.Warnings, fmt.Sprintf("chunk %d: %v", w.ChunkID, w.Err))
	}
	return nil, out, nil
}

func (s *Server) ingestHandler(ctx context.Context, _ *mcp.CallToolRequest, input IngestInput) (*mcp.CallToolResult, IngestOutput, error) {
	if input.Path == "" {
		return nil, IngestOutput{}, fmt.Errorf("mcp: path is required")
	}

	result, err := s.engine.IngestPath(ctx, input.Path, nil)
	if err != nil {
		return nil, IngestOutput{}, err
	}

	failed := 0
	for _, u := range result.ChunkUploads {
		if u.Err != nil {
			failed++
		}
	}
	return nil, IngestOutput{
		DocumentID:  result.DocumentID,
		VectorCount: result.VectorCount,
		FailedCount: failed,
	}, nil
}

// Serve runs the server over stdio until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting mcp server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp server stopped")
	return nil
}
