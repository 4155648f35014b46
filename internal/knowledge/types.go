package knowledge

// Field is a weighted text field. Its tokens are repeated Weight times in
// the composite document, so heavier fields count more. Fields with a
// weight of zero or less are skipped.
type Field struct {
	Text   string
	Weight int
}

// Entry is one indexed document.
type Entry struct {
	Slug   string
	Title  string
	Body   string
	Fields []Field
}

// Hit is a single search result.
type Hit struct {
	Slug    string  `json:"slug"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet,omitempty"`
}

// Field weights used when indexing documents.
const (
	WeightTitle    = 3
	WeightHeadings = 2
	WeightBody     = 1
	WeightCode     = 1
)
