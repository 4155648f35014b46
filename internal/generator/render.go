package generator

import (
	"embed"
	"regexp"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/command.md.tmpl"))

const credentialsNote = "If credentials are not provided on the command-line, they will be prompted for interactively."

var (
	reTokenOnly     = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\s+[a-z_][a-z0-9_]*)+$`)
	reOptionColumns = regexp.MustCompile(`^(?P<opt>\S(?:.*?\S)?)\s{2,}(?P<desc>.+)$`)
	reOptionFlag    = regexp.MustCompile(`^(?P<opt>-?\w+(?:,\s*--\w+)?)\s{2,}(?P<desc>.+)$`)
	reLongFlagRun   = regexp.MustCompile(`^\[--[\w-]+`)
)

// Line prefixes dropped from sections that repeat usage noise.
var sectionExcludedPrefixes = map[string][]string{
	"run modes":            {"{", "}", "When installing", "If you want", "sudo", "PostgreSQL", "this", "-h"},
	"positional arguments": {"{", "}", "-"},
}

type positionalView struct {
	Name        string
	Description string
}

type sectionView struct {
	Heading string
	Content string
}

type commandView struct {
	Heading      string
	Overview     string
	Usage        string
	Positional   []positionalView
	Options      []Option
	Keywords     Keywords
	KeywordsText string
	AcceptsJSON  bool
	ReturnsJSON  bool
	Sections     []sectionView
}

// RenderCommand renders the Markdown block for a single command.
func RenderCommand(cmd Command, commandPath string) (string, error) {
	var b strings.Builder
	if err := pageTemplate.Execute(&b, buildView(cmd, commandPath)); err != nil {
		return "", err
	}
	return b.String(), nil
}

func buildView(cmd Command, commandPath string) commandView {
	var overviewLines []string
	for _, ln := range splitLines(cmd.Overview) {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(ln)), "cli help for:") {
			continue
		}
		overviewLines = append(overviewLines, ln)
	}
	overview := normalizeText(strings.Join(overviewLines, "\n"))
	if strings.HasSuffix(overview, "<br>") && shouldBlankOverview(overview) {
		overview = ""
	}

	usage := FormatUsage(cmd.Usage, commandPath)
	if len(overviewLines) > 0 {
		if first := strings.TrimSpace(overviewLines[0]); first != "" && strings.HasSuffix(usage, first) {
			usage = strings.TrimRightFunc(strings.TrimSuffix(usage, first), unicode.IsSpace)
		}
	}

	sections := append([]Section(nil), cmd.AdditionalSections...)
	hasPositionalSection := false
	for _, s := range sections {
		if strings.EqualFold(strings.TrimSpace(s.Title), "positional arguments") {
			hasPositionalSection = true
		}
	}

	var positional []string
	if !hasPositionalSection {
		positional = PositionalArgs(usage, commandPath)
		flat := strings.ReplaceAll(overview, "<br>", " ")
		if len(positional) == 0 && overview != "" && reTokenOnly.MatchString(flat) && len(strings.Fields(commandPath)) >= 2 {
			positional = strings.Fields(flat)
			overview = ""
		}
	}

	options, notes := normalizeOptions(cmd.Options)
	if len(notes) > 0 {
		sections = append(sections, Section{Title: "additional_info", Content: strings.Join(notes, "\n")})
	}

	keywords := ParseKeywords(cmd.KeywordsText)
	keywordsText := ""
	if cmd.KeywordsText != "" && keywords.Lead == "" && len(keywords.Params) == 0 {
		keywordsText = boldDirectives(fixText(cmd.KeywordsText))
	}

	view := commandView{
		Heading:      commandPath,
		Overview:     overview,
		Usage:        usage,
		Options:      options,
		Keywords:     keywords,
		KeywordsText: keywordsText,
		AcceptsJSON:  cmd.AcceptsJSON,
		ReturnsJSON:  cmd.ReturnsJSON,
		Sections:     cleanSections(sections),
	}
	for _, arg := range positional {
		view.Positional = append(view.Positional, positionalView{Name: arg, Description: PositionalDescription(arg)})
	}
	return view
}

// shouldBlankOverview reports overviews that are a run of words with no
// sentence in them, which is argparse echoing the usage.
func shouldBlankOverview(overview string) bool {
	tmp := strings.TrimSpace(strings.ReplaceAll(overview, "<br>", " "))
	return tmp != "" && !strings.Contains(tmp, ".") && strings.Contains(tmp, " ")
}

// normalizeOptions repairs rows where the option and its description were
// captured in one column and moves the credential prompt note out of the
// table.
func normalizeOptions(rows []Option) ([]Option, []string) {
	var out []Option
	var notes []string
	for _, row := range rows {
		opt := strings.TrimRightFunc(row.Option, unicode.IsSpace)
		eff := strings.TrimSpace(row.Effect)
		opt, eff = splitOptionColumns(opt, eff)

		if i := strings.Index(eff, "|"); i >= 0 {
			eff = strings.TrimSpace(eff[:i])
		}
		if strings.HasPrefix(eff, "Running ") || strings.HasPrefix(eff, "usage") {
			eff = ""
		}
		if i := strings.Index(eff, "If credentials are not provided"); i >= 0 {
			notes = append(notes, credentialsNote)
			eff = strings.TrimRightFunc(eff[:i], unicode.IsSpace)
		}
		if eff != "" {
			eff = removeDuplicateSentences(fixText(eff))
		}
		if opt != "" {
			out = append(out, Option{Option: opt, Effect: eff})
		}
	}
	return out, notes
}

func splitOptionColumns(opt, eff string) (string, string) {
	if eff == "" && opt != "" {
		if m := reOptionColumns.FindStringSubmatch(opt); m != nil {
			return m[1], strings.TrimSpace(m[2])
		}
	}
	if eff == "" || strings.HasPrefix(eff, "Running") || strings.HasPrefix(eff, "Usage") {
		if m := reOptionFlag.FindStringSubmatch(opt); m != nil {
			return m[1], strings.TrimSpace(m[2])
		}
	}
	return opt, eff
}

func cleanSections(sections []Section) []sectionView {
	var out []sectionView
	for _, s := range sections {
		title := strings.TrimSpace(s.Title)
		if title == "additional_info" && isMalformedContent(s.Content) {
			continue
		}
		content := s.Content
		if excluded, ok := sectionExcludedPrefixes[strings.ToLower(title)]; ok {
			content = dropPrefixedLines(content, excluded)
		}
		content = boldListLeaders(fixText(content))
		if strings.TrimSpace(content) == "" {
			continue
		}
		view := sectionView{Content: strings.TrimRightFunc(content, unicode.IsSpace)}
		if title != "additional_info" {
			view.Heading = capitalize(title)
		}
		out = append(out, view)
	}
	return out
}

// isMalformedContent detects option lists glued together without breaks.
func isMalformedContent(content string) bool {
	if reLongFlagRun.MatchString(strings.TrimSpace(content)) {
		return true
	}
	if len(content) <= 500 {
		return false
	}
	for _, marker := range []string{". ", ".\n", "<br>", "\n\n"} {
		if strings.Contains(content, marker) {
			return false
		}
	}
	return true
}

func dropPrefixedLines(content string, prefixes []string) string {
	var kept []string
next:
	for _, ln := range splitLines(content) {
		trimmed := strings.TrimSpace(ln)
		for _, p := range prefixes {
			if strings.HasPrefix(trimmed, p) {
				continue next
			}
		}
		kept = append(kept, ln)
	}
	return strings.Join(kept, "\n")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
