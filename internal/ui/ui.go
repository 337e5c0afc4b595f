// Package ui renders ingest progress to a terminal: a rich bubbletea view
// for interactive TTYs, and a line-oriented fallback everywhere else (CI,
// pipes, redirected output).
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage represents one phase of an ingest run.
type Stage int

const (
	// StageScanning is directory walking and file discovery.
	StageScanning Stage = iota
	// StageChunking is passage extraction from a file.
	StageChunking
	// StageEmbedding is batch embedding of extracted passages.
	StageEmbedding
	// StageIndexing is adding vectors to the index and uploading chunks.
	StageIndexing
	// StageComplete indicates the ingest finished.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageScanning:
		return "Scanning"
	case StageChunking:
		return "Chunking"
	case StageEmbedding:
		return "Embedding"
	case StageIndexing:
		return "Indexing"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage label for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageScanning:
		return "SCAN"
	case StageChunking:
		return "CHUNK"
	case StageEmbedding:
		return "EMBED"
	case StageIndexing:
		return "INDEX"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent is one progress update emitted during ingest.
type ProgressEvent struct {
	Stage       Stage
	Current     int
	Total       int
	CurrentFile string
}

// ErrorEvent reports a per-file failure during ingest.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// CompletionStats summarizes a finished ingest run.
type CompletionStats struct {
	Files    int
	Vectors  int
	Duration time.Duration
	Errors   int
	Warnings int
}

// Renderer is the progress display contract the ingest command drives.
type Renderer interface {
	Start(ctx context.Context) error
	UpdateProgress(event ProgressEvent)
	AddError(event ErrorEvent)
	Complete(stats CompletionStats)
	Stop() error
}

// Config configures the renderer NewRenderer picks.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	TargetDir  string
}

// NewRenderer returns a TUI renderer for an interactive terminal, and a
// plain text renderer for CI, pipes, or when ForcePlain is set.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY reports whether w is a terminal file descriptor.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks the NO_COLOR environment convention.
func DetectNoColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// DetectCI checks common CI environment markers.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"} {
		if _, ok := os.LookupEnv(v); ok {
			return true
		}
	}
	return false
}
