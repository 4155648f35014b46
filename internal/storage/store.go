package storage

import (
	"context"
	"errors"
	"time"

	"docgraph/internal/extractor"
	"docgraph/internal/graph"
	"docgraph/internal/lint"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store combines graph and lint report storage.
type Store interface {
	GraphStore
	ReportStore
	Close() error
}

// GraphStore defines operations for persisting the link graph.
type GraphStore interface {
	// SaveGraph replaces the stored graph with g.
	SaveGraph(ctx context.Context, g *graph.Graph) error

	// LoadGraph reads the whole graph back.
	LoadGraph(ctx context.Context) (*graph.Graph, error)

	// GetDocument retrieves a document by slug.
	GetDocument(ctx context.Context, slug string) (*extractor.Document, error)

	// FindDocumentsByPath retrieves the documents stored at a file path.
	FindDocumentsByPath(ctx context.Context, path string) ([]*extractor.Document, error)
}

// ReportStore keeps the history of lint runs.
type ReportStore interface {
	// SaveReport stores a report and returns the new run id.
	SaveReport(ctx context.Context, r *lint.Report) (string, error)

	// LatestReport returns the most recent report.
	LatestReport(ctx context.Context) (*lint.Report, error)

	// ListRuns returns run summaries, newest first.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

// RunSummary is one row of the lint run history.
type RunSummary struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Documents int       `json:"documents"`
	Errors    int       `json:"errors"`
	Warnings  int       `json:"warnings"`
	Infos     int       `json:"infos"`
}
