package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"docgraph/internal/extractor"
	"docgraph/internal/graph"
	"docgraph/internal/lint"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// timeLayout sorts lexically in the same order as the times it encodes.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStore struct {
	db *sql.DB
}

// graphMeta holds the graph fields that are not documents or edges.
type graphMeta struct {
	Unresolved  []graph.UnresolvedLink `json:"unresolved,omitempty"`
	External    []graph.ExternalLink   `json:"external,omitempty"`
	Assets      []graph.AssetLink      `json:"assets,omitempty"`
	ParseErrors []graph.ParseError     `json:"parse_errors,omitempty"`
	EntryPoints []string               `json:"entry_points,omitempty"`
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			slug TEXT PRIMARY KEY,
			path TEXT,
			title TEXT,
			content_hash TEXT,
			body JSON
		);`,
		`CREATE TABLE IF NOT EXISTS links (
			from_slug TEXT,
			to_slug TEXT,
			kind TEXT,
			anchor TEXT,
			line INTEGER,
			resolver TEXT,
			confidence REAL,
			PRIMARY KEY (from_slug, to_slug, kind, anchor, line)
		);`,
		`CREATE TABLE IF NOT EXISTS graph_meta (
			key TEXT PRIMARY KEY,
			value JSON
		);`,
		`CREATE TABLE IF NOT EXISTS check_runs (
			id TEXT PRIMARY KEY,
			started_at TEXT,
			documents INTEGER,
			errors INTEGER,
			warnings INTEGER,
			infos INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS findings (
			run_id TEXT REFERENCES check_runs(id) ON DELETE CASCADE,
			rule TEXT,
			severity TEXT,
			slug TEXT,
			path TEXT,
			line INTEGER,
			message TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_path ON documents(path);`,
		`CREATE INDEX IF NOT EXISTS idx_links_to ON links(to_slug);`,
		`CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- GraphStore Implementation ---

// SaveGraph writes g as a snapshot: documents and links missing from g
// are deleted, all inside one transaction. Unchanged documents are not
// rewritten.
func (s *SQLiteStore) SaveGraph(ctx context.Context, g *graph.Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Save documents
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (slug, path, title, content_hash, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			path=excluded.path,
			title=excluded.title,
			content_hash=excluded.content_hash,
			body=excluded.body
		WHERE documents.content_hash != excluded.content_hash OR documents.path != excluded.path
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	keep := make(map[string]bool, len(g.Nodes))
	for _, slug := range g.Slugs() {
		doc := g.Nodes[slug].Doc
		if doc == nil {
			continue
		}
		body, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", slug, err)
		}
		if _, err := stmt.ExecContext(ctx, doc.Slug, doc.Path, doc.Title, doc.ContentHash, body); err != nil {
			return err
		}
		keep[slug] = true
	}

	// 2. Drop documents that left the corpus
	existing, err := querySlugs(ctx, tx)
	if err != nil {
		return err
	}
	for _, slug := range existing {
		if keep[slug] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE slug = ?`, slug); err != nil {
			return err
		}
	}

	// 3. Replace links
	if _, err := tx.ExecContext(ctx, `DELETE FROM links`); err != nil {
		return err
	}
	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO links (from_slug, to_slug, kind, anchor, line, resolver, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(from_slug, to_slug, kind, anchor, line) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for _, e := range g.Edges {
		if _, err := edgeStmt.ExecContext(ctx, e.From, e.To, e.Kind, e.Anchor, e.Line, e.Resolver, e.Confidence); err != nil {
			return err
		}
	}

	// 4. Everything else about the graph
	meta, err := json.Marshal(graphMeta{
		Unresolved:  g.Unresolved,
		External:    g.External,
		Assets:      g.Assets,
		ParseErrors: g.ParseErrors,
		EntryPoints: g.EntryPoints,
	})
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO graph_meta (key, value) VALUES ('graph', ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value
	`, meta); err != nil {
		return err
	}

	return tx.Commit()
}

func querySlugs(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT slug FROM documents`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

func (s *SQLiteStore) LoadGraph(ctx context.Context) (*graph.Graph, error) {
	g := graph.NewGraph()

	// 1. Load documents
	rows, err := s.db.QueryContext(ctx, "SELECT body FROM documents")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		g.Nodes[doc.Slug] = &graph.Node{Doc: doc}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rebuild lookup indices
	g.RebuildIndices()

	// 2. Load links
	edgeRows, err := s.db.QueryContext(ctx, `
		SELECT from_slug, to_slug, kind, anchor, line, resolver, confidence
		FROM links ORDER BY from_slug, line, to_slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var e graph.Edge
		if err := edgeRows.Scan(&e.From, &e.To, &e.Kind, &e.Anchor, &e.Line, &e.Resolver, &e.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		g.Edges = append(g.Edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, err
	}

	// 3. Load the rest
	var raw []byte
	err = s.db.QueryRowContext(ctx, `SELECT value FROM graph_meta WHERE key = 'graph'`).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to query graph meta: %w", err)
	default:
		var meta graphMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("failed to decode graph meta: %w", err)
		}
		g.Unresolved = meta.Unresolved
		g.External = meta.External
		g.Assets = meta.Assets
		g.ParseErrors = meta.ParseErrors
		g.EntryPoints = meta.EntryPoints
	}

	return g, nil
}

func (s *SQLiteStore) GetDocument(ctx context.Context, slug string) (*extractor.Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT body FROM documents WHERE slug = ?", slug)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", slug, ErrNotFound)
	}
	return doc, err
}

func (s *SQLiteStore) FindDocumentsByPath(ctx context.Context, path string) ([]*extractor.Document, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT body FROM documents WHERE path = ? ORDER BY slug", path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*extractor.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*extractor.Document, error) {
	var body []byte
	if err := row.Scan(&body); err != nil {
		return nil, err
	}
	var doc extractor.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &doc, nil
}

// --- ReportStore Implementation ---

func (s *SQLiteStore) SaveReport(ctx context.Context, r *lint.Report) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	id := uuid.NewString()
	started := r.StartedAt
	if started.IsZero() {
		started = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO check_runs (id, started_at, documents, errors, warnings, infos)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, started.UTC().Format(timeLayout), r.Documents,
		r.Counts[lint.SeverityError], r.Counts[lint.SeverityWarning], r.Counts[lint.SeverityInfo],
	); err != nil {
		return "", err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO findings (run_id, rule, severity, slug, path, line, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, f := range r.Findings {
		if _, err := stmt.ExecContext(ctx, id, f.Rule, f.Severity, f.Slug, f.Path, f.Line, f.Message); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	r.ID = id
	return id, nil
}

func (s *SQLiteStore) LatestReport(ctx context.Context) (*lint.Report, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("lint report: %w", ErrNotFound)
	}
	run := runs[0]

	rows, err := s.db.QueryContext(ctx, `
		SELECT rule, severity, slug, path, line, message
		FROM findings WHERE run_id = ? ORDER BY rowid`, run.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := &lint.Report{
		ID:        run.ID,
		StartedAt: run.StartedAt,
		Documents: run.Documents,
		Findings:  []lint.Finding{},
	}
	for rows.Next() {
		var f lint.Finding
		if err := rows.Scan(&f.Rule, &f.Severity, &f.Slug, &f.Path, &f.Line, &f.Message); err != nil {
			return nil, err
		}
		report.Findings = append(report.Findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	report.Finalize()
	return report, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, documents, errors, warnings, infos
		FROM check_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var started string
		if err := rows.Scan(&r.ID, &started, &r.Documents, &r.Errors, &r.Warnings, &r.Infos); err != nil {
			return nil, err
		}
		if t, err := time.Parse(timeLayout, started); err == nil {
			r.StartedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
