package lint

import (
	"context"
	"sort"
	"time"

	"docgraph/internal/config"
	"docgraph/internal/graph"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Finding is one problem reported by a rule.
type Finding struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Slug     string   `json:"slug,omitempty"`
	Path     string   `json:"path,omitempty"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
}

// Corpus is everything a rule may inspect.
type Corpus struct {
	Root   string
	Graph  *graph.Graph
	Config *config.Config

	// Only limits findings to these slugs when non-nil. Findings without a
	// slug, such as parse errors, are always kept.
	Only map[string]bool

	// External probes links for the external-link rule. Nil uses a
	// checker built from Config.
	External *ExternalChecker
}

// Rule checks one property of the corpus.
type Rule struct {
	Name     string
	Severity Severity
	// OptIn rules only run when the corpus configuration enables them.
	OptIn func(cfg *config.Config) bool
	Check func(ctx context.Context, c *Corpus) []Finding
}

// Report is the result of one lint run.
type Report struct {
	ID        string           `json:"id,omitempty"`
	StartedAt time.Time        `json:"started_at"`
	Documents int              `json:"documents"`
	Findings  []Finding        `json:"findings"`
	Counts    map[Severity]int `json:"counts"`
}

// HasErrors reports whether any finding has error severity.
func (r *Report) HasErrors() bool {
	return r.Counts[SeverityError] > 0
}

// Finalize sorts findings and recomputes the per-severity counts.
func (r *Report) Finalize() {
	sort.SliceStable(r.Findings, func(i, j int) bool {
		a, b := r.Findings[i], r.Findings[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Severity != b.Severity {
			return a.Severity.rank() < b.Severity.rank()
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Message < b.Message
	})
	r.Counts = map[Severity]int{
		SeverityError:   0,
		SeverityWarning: 0,
		SeverityInfo:    0,
	}
	for _, f := range r.Findings {
		r.Counts[f.Severity]++
	}
}

// Run applies every enabled rule and returns the sorted report.
func Run(ctx context.Context, c *Corpus, rules []Rule) *Report {
	cfg := c.Config
	if cfg == nil {
		cfg = config.Default()
		c.Config = cfg
	}

	report := &Report{StartedAt: time.Now().UTC(), Documents: len(c.Graph.Nodes)}
	for _, rule := range rules {
		if !cfg.RuleEnabled(rule.Name) {
			continue
		}
		if rule.OptIn != nil && !rule.OptIn(cfg) {
			continue
		}
		for _, f := range rule.Check(ctx, c) {
			if c.Only != nil && f.Slug != "" && !c.Only[f.Slug] {
				continue
			}
			f.Rule = rule.Name
			if f.Severity == "" {
				f.Severity = rule.Severity
			}
			if f.Path == "" && f.Slug != "" {
				if doc, err := c.Graph.Document(f.Slug); err == nil {
					f.Path = doc.Path
				}
			}
			report.Findings = append(report.Findings, f)
		}
	}
	report.Finalize()
	return report
}

// RuleNames lists the names of the given rules.
func RuleNames(rules []Rule) []string {
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.Name)
	}
	return names
}
