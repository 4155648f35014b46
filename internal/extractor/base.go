package extractor

// LinkKind classifies how a link was written in the source.
type LinkKind string

const (
	LinkKindInline LinkKind = "inline"
	LinkKindImage  LinkKind = "image"
	LinkKindAuto   LinkKind = "auto"
)

// Document is a single Markdown help article.
type Document struct {
	Slug        string                 `json:"slug"`
	Path        string                 `json:"path"` // relative to the corpus root, forward slashes
	Title       string                 `json:"title"`
	FrontMatter map[string]interface{} `json:"frontmatter,omitempty"`
	Format      string                 `json:"format,omitempty"` // front matter format: yaml, toml, json
	Headings    []Heading              `json:"headings"`
	Paragraphs  int                    `json:"paragraphs"`
	Body        string                 `json:"body"`
	CodeSamples []CodeSample           `json:"code_samples,omitempty"`
	Links       []Link                 `json:"links,omitempty"`
	Lists       []LinkList             `json:"lists,omitempty"`
	Invocations []Invocation           `json:"invocations,omitempty"`
	ContentHash string                 `json:"content_hash"`
}

type Heading struct {
	Level  int    `json:"level"`
	Text   string `json:"text"`
	Anchor string `json:"anchor"`
	Line   int    `json:"line"`
}

type CodeSample struct {
	Language string `json:"language,omitempty"`
	Content  string `json:"content"`
	Line     int    `json:"line"`
}

type Link struct {
	Kind        LinkKind `json:"kind"`
	Destination string   `json:"destination"`
	Text        string   `json:"text,omitempty"`
	Line        int      `json:"line"`
}

// LinkList is a Markdown list in which every item carries at least one link.
type LinkList struct {
	Line  int            `json:"line"`
	Items []LinkListItem `json:"items"`
}

type LinkListItem struct {
	Text  string `json:"text"`
	Links []Link `json:"links"`
}

// Invocation is one CLI command found in a code sample, shaped as
// <tool> <profile> <resource> <action> [positional ...] [key=value ...].
type Invocation struct {
	Tool       string            `json:"tool"`
	Profile    string            `json:"profile,omitempty"`
	Resource   string            `json:"resource"`
	Action     string            `json:"action,omitempty"`
	Positional []string          `json:"positional,omitempty"`
	Flags      []string          `json:"flags,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
	ParamOrder []string          `json:"param_order,omitempty"`
	Line       int               `json:"line"`
}

// Group is the "resource action" key used to compare invocations.
func (i Invocation) Group() string {
	if i.Action == "" {
		return i.Resource
	}
	return i.Resource + " " + i.Action
}

// HasAnchor reports whether the document defines the given heading anchor.
func (d *Document) HasAnchor(anchor string) bool {
	for _, h := range d.Headings {
		if h.Anchor == anchor {
			return true
		}
	}
	return false
}
