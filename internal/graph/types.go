package graph

import "errors"

// ErrUnknownSlug is returned by lookups for a document not in the graph.
var ErrUnknownSlug = errors.New("unknown document slug")

type EdgeKind string

const (
	EdgeLink  EdgeKind = "link"
	EdgeImage EdgeKind = "image"
)

type UnresolvedReason string

const (
	ReasonNoCandidate   UnresolvedReason = "no_candidate"
	ReasonAmbiguous     UnresolvedReason = "ambiguous"
	ReasonMissingAnchor UnresolvedReason = "missing_anchor"
)

// Confidence assigned to an edge by the lookup that produced it.
const (
	ConfidenceExact = 1.0
	ConfidenceAlias = 0.8
	ConfidenceTopic = 0.7
)

// UnresolvedLink is an internal link that did not reach a document, or
// reached one that lacks the requested anchor.
type UnresolvedLink struct {
	From        string           `json:"from"`
	Destination string           `json:"destination"`
	Target      string           `json:"target"` // normalized slug candidate
	Anchor      string           `json:"anchor,omitempty"`
	Line        int              `json:"line"`
	Kind        EdgeKind         `json:"kind"`
	Reason      UnresolvedReason `json:"reason"`
	Candidates  []string         `json:"candidates,omitempty"`
}

// ExternalLink is a link that leaves the corpus.
type ExternalLink struct {
	From string `json:"from"`
	URL  string `json:"url"`
	Line int    `json:"line"`
}

// AssetLink points at a non-document file such as an image or PDF.
type AssetLink struct {
	From string   `json:"from"`
	Path string   `json:"path"` // relative to the corpus root
	Line int      `json:"line"`
	Kind EdgeKind `json:"kind"`
}

// ParseError records a file that could not be turned into a document.
type ParseError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}
