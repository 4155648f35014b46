// Package server exposes a scanned corpus over a JSON HTTP API.
package server

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"docgraph/internal/extractor"
	"docgraph/internal/graph"
	"docgraph/internal/retrieval"
	"docgraph/internal/site"

	"github.com/gin-gonic/gin"
)

const defaultSearchLimit = 10

// DocumentSummary is the list view of a document.
type DocumentSummary struct {
	Slug      string `json:"slug"`
	Path      string `json:"path"`
	Title     string `json:"title"`
	Outbound  int    `json:"outbound"`
	Backlinks int    `json:"backlinks"`
}

// Server serves the current site of a holder.
type Server struct {
	holder *site.Holder
	md     *extractor.MarkdownExtractor
	engine *gin.Engine
}

// New builds the router.
func New(holder *site.Holder) *Server {
	s := &Server{
		holder: holder,
		md:     extractor.NewMarkdownExtractor(),
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	{
		api.GET("/documents", s.handleListDocuments)
		api.GET("/documents/*slug", s.handleGetDocument)
		api.GET("/render/*slug", s.handleRender)
		api.GET("/backlinks/*slug", s.handleBacklinks)
		api.GET("/neighborhood/*slug", s.handleNeighborhood)
		api.GET("/search", s.handleSearch)
		api.GET("/check", s.handleCheck)
		api.POST("/reload", s.handleReload)
	}

	s.engine = r
	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until the server fails.
func (s *Server) Run(addr string) error {
	slog.Info("http server listening", "addr", addr)
	return s.engine.Run(addr)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	cur := s.holder.Current()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"documents": len(cur.Graph.Nodes),
		"loaded_at": cur.LoadedAt,
	})
}

func (s *Server) handleListDocuments(c *gin.Context) {
	g := s.holder.Current().Graph

	outbound := make(map[string]int)
	inbound := make(map[string]int)
	for _, e := range g.Edges {
		outbound[e.From]++
		inbound[e.To]++
	}

	docs := make([]DocumentSummary, 0, len(g.Nodes))
	for _, slug := range g.Slugs() {
		doc := g.Nodes[slug].Doc
		docs = append(docs, DocumentSummary{
			Slug:      slug,
			Path:      doc.Path,
			Title:     doc.Title,
			Outbound:  outbound[slug],
			Backlinks: inbound[slug],
		})
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	g := s.holder.Current().Graph
	doc, ok := s.lookup(c, g)
	if !ok {
		return
	}

	var outbound []graph.Edge
	for _, e := range g.Edges {
		if e.From == doc.Slug {
			outbound = append(outbound, e)
		}
	}
	backlinks, _ := g.Backlinks(doc.Slug)

	c.JSON(http.StatusOK, gin.H{
		"document":  doc,
		"outbound":  outbound,
		"backlinks": backlinks,
	})
}

func (s *Server) handleRender(c *gin.Context) {
	doc, ok := s.lookup(c, s.holder.Current().Graph)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := s.md.Markdown().Convert([]byte(doc.Body), &buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Render failed: " + err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) handleBacklinks(c *gin.Context) {
	g := s.holder.Current().Graph
	doc, ok := s.lookup(c, g)
	if !ok {
		return
	}
	backlinks, _ := g.Backlinks(doc.Slug)
	if backlinks == nil {
		backlinks = []graph.Edge{}
	}
	c.JSON(http.StatusOK, gin.H{"slug": doc.Slug, "backlinks": backlinks})
}

func (s *Server) handleNeighborhood(c *gin.Context) {
	g := s.holder.Current().Graph
	doc, ok := s.lookup(c, g)
	if !ok {
		return
	}
	cfg := retrieval.DefaultConfig()
	if hops, err := strconv.Atoi(c.Query("hops")); err == nil && hops >= 0 {
		cfg.MaxHops = hops
	}
	sub, err := retrieval.Neighborhood(g, doc.Slug, cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Server) handleSearch(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query parameter q"})
		return
	}
	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}
	hits := s.holder.Current().Engine.Search(q, limit)
	c.JSON(http.StatusOK, gin.H{"query": q, "hits": hits})
}

func (s *Server) handleCheck(c *gin.Context) {
	report := s.holder.Current().Check(c.Request.Context())
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleReload(c *gin.Context) {
	next, err := s.holder.Reload(c.Request.Context())
	if err != nil {
		slog.Error("reload failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"documents": len(next.Graph.Nodes),
		"loaded_at": next.LoadedAt,
	})
}

// lookup resolves the catch-all slug parameter, writing a 404 when the
// document does not exist.
func (s *Server) lookup(c *gin.Context, g *graph.Graph) (*extractor.Document, bool) {
	slug := strings.Trim(c.Param("slug"), "/")
	doc, err := g.Document(slug)
	if err != nil {
		if errors.Is(err, graph.ErrUnknownSlug) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found", "slug": slug})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return doc, true
}
