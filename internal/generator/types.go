package generator

import "errors"

// ErrNoCommands is returned when the introspector output holds no commands.
var ErrNoCommands = errors.New("no commands found in input")

// Command is one node of the CLI introspector output.
type Command struct {
	Key                string    `json:"key"`
	Overview           string    `json:"overview"`
	Usage              string    `json:"usage"`
	Options            []Option  `json:"options"`
	KeywordsText       string    `json:"keywords_text"`
	AcceptsJSON        bool      `json:"accepts_json"`
	ReturnsJSON        bool      `json:"returns_json"`
	AdditionalSections []Section `json:"additional_sections"`
}

// Option is a row of a command's options table.
type Option struct {
	Option string `json:"option"`
	Effect string `json:"effect"`
}

// Section is free-form help text attached to a command.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Keyword is a parameter documented with :param / :type directives.
type Keyword struct {
	Name string
	Type string
	Desc string
}

// Keywords is the parsed form of a command's keyword epilog.
type Keywords struct {
	Lead   string
	Params []Keyword
}

// Stats summarizes a generation run.
type Stats struct {
	Created     int      `json:"created"`
	Updated     int      `json:"updated"`
	Skipped     int      `json:"skipped"`
	Commands    int      `json:"commands"`
	WouldChange []string `json:"would_change,omitempty"`
}

// Dirty reports whether any page was, or would be, written.
func (s Stats) Dirty() bool {
	return len(s.WouldChange) > 0
}
