package generator

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	rePeriodSpacing = regexp.MustCompile(`\.\s{2,}`)
	reEllipsis      = regexp.MustCompile(`\.\.\.\w?`)
	reProduct       = regexp.MustCompile(`(\d+)\*(\d+)\*(\d+)`)
	reArithmetic    = regexp.MustCompile(`[*+\-=/]\s*\d+\s*[*+\-=/]`)
	reWeasel        = regexp.MustCompile(`(?i)\bvery\s+`)
	reQuotedWord    = regexp.MustCompile(`"([a-zA-Z0-9\-]+)"`)
	reQuotedNumWord = regexp.MustCompile(`"(\d+-\w+)"`)
	reDirective     = regexp.MustCompile(`(?m)^:([a-z0-9_\-]+):`)
	reNewline       = regexp.MustCompile(`\r\n|\r|\n`)
	reSentenceSplit = regexp.MustCompile(`\.\s+`)
	reFragmentLead  = regexp.MustCompile(`^(mode|and|or|the|a|an|to|for|with|in|on|at)\s+`)
	reOptionalLead  = regexp.MustCompile(`(?i)^(Optional|Required)\.\s+`)
	reOptionalWord  = regexp.MustCompile(`(?i)^Optional\s+`)
	reParamSpacing  = regexp.MustCompile(`(?i)(:param\s+\w+:\s+(?:Optional|Required))\.\s{2,}`)

	// Repeated "Optional." markers left behind by concatenated help strings.
	reOptionalTriple  = regexp.MustCompile(`(?i)\b(Optional\s+\w+\.)\s+Optional\.\s+Optional\s+`)
	reOptionalTripleE = regexp.MustCompile(`(?i)\b(Optional\s+\w+\.)\s+Optional\.\s+Optional\b`)
	reOptionalDouble  = regexp.MustCompile(`(?i)\b(Optional\s+\w+\.)\s+Optional\.`)
	reOptionalRepeat  = regexp.MustCompile(`(?i)\bOptional\.\s+Optional\.`)

	reDoubledWords []*regexp.Regexp
)

func init() {
	for _, w := range []string{"also", "and", "the", "a", "an", "is", "are", "was", "were"} {
		reDoubledWords = append(reDoubledWords, regexp.MustCompile(`(?i)\b(`+w+`)\s+`+w+`\b`))
	}
}

// fixText applies the prose clean-ups used on every generated string.
func fixText(text string) string {
	if text == "" {
		return ""
	}
	text = rePeriodSpacing.ReplaceAllString(text, ". ")
	text = fixEllipsis(text)
	text = fixRepeatedWords(text)
	text = fixCurlyQuotes(text)
	return reWeasel.ReplaceAllString(text, "")
}

// fixEllipsis turns "..." into "…" unless a word character follows it.
func fixEllipsis(text string) string {
	return reEllipsis.ReplaceAllStringFunc(text, func(m string) string {
		if len(m) > 3 {
			return m
		}
		return "…"
	})
}

func fixRepeatedWords(text string) string {
	text = reProduct.ReplaceAllString(text, "${1} * ${2} * ${3}")
	if reArithmetic.MatchString(text) {
		return text
	}
	text = reOptionalTriple.ReplaceAllString(text, "${1} ")
	text = reOptionalTripleE.ReplaceAllString(text, "${1}")
	text = reOptionalDouble.ReplaceAllString(text, "${1}")
	text = reOptionalRepeat.ReplaceAllString(text, "Optional.")
	for _, re := range reDoubledWords {
		text = re.ReplaceAllString(text, "${1}")
	}
	return text
}

func fixCurlyQuotes(text string) string {
	if !strings.Contains(text, "<br>") && strings.Contains(text, "`") {
		return text
	}
	text = reQuotedWord.ReplaceAllString(text, "“${1}”")
	return reQuotedNumWord.ReplaceAllString(text, "“${1}”")
}

// normalizeText flattens help text into a single table-safe Markdown line.
func normalizeText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	text = reNewline.ReplaceAllString(text, "<br>")
	return fixText(escapePipes(text))
}

func escapePipes(text string) string {
	return strings.ReplaceAll(text, "|", `\|`)
}

func boldDirectives(text string) string {
	return reDirective.ReplaceAllString(text, "**:${1}:**")
}

// formatKeywordText renders keyword prose for use inside a table cell.
func formatKeywordText(text string) string {
	text = fixText(boldDirectives(escapePipes(text)))
	return strings.Join(splitLines(text), "<br>")
}

// boldListLeaders bolds the label of "- Label: details" list items.
func boldListLeaders(text string) string {
	if text == "" {
		return text
	}
	lines := splitLines(text)
	for i, ln := range lines {
		stripped := strings.TrimLeftFunc(ln, unicode.IsSpace)
		if !strings.HasPrefix(stripped, "- ") || !strings.Contains(stripped, ":") {
			continue
		}
		indent := ln[:len(ln)-len(stripped)]
		head, rest, _ := strings.Cut(stripped[2:], ":")
		lines[i] = indent + "- **" + strings.TrimSpace(head) + "**:" + rest
	}
	return strings.Join(lines, "\n")
}

// removeDuplicateSentences drops repeated sentences and trailing fragments
// of sentences already kept.
func removeDuplicateSentences(text string) string {
	seen := make(map[string]bool)
	var kept []string
	for i, sent := range reSentenceSplit.Split(text, -1) {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}
		lower := strings.ToLower(sent)
		if seen[lower] || isFragment(sent, kept, i) {
			continue
		}
		seen[lower] = true
		kept = append(kept, sent)
	}
	if len(kept) == 0 {
		return text
	}
	out := strings.Join(kept, ". ")
	if !strings.HasSuffix(out, ".") {
		out += "."
	}
	return strings.TrimSpace(out)
}

func isFragment(sent string, prev []string, index int) bool {
	lower := strings.ToLower(sent)
	for _, p := range prev {
		pl := strings.ToLower(p)
		if strings.Contains(pl, lower) || strings.Contains(lower, pl) {
			if d := len(lower) - len(pl); d > 10 || d < -10 {
				return true
			}
		}
	}
	if index > 0 {
		first, _ := utf8.DecodeRuneInString(sent)
		if !unicode.IsUpper(first) && reFragmentLead.MatchString(lower) {
			return true
		}
	}
	return false
}

func removeOptionalPrefix(text string) string {
	for reOptionalLead.MatchString(text) {
		text = reOptionalLead.ReplaceAllString(text, "")
	}
	return reOptionalWord.ReplaceAllString(text, "")
}

// splitLines splits on any line ending and drops a single trailing newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// ParseKeywords parses a sphinx-style epilog with ":param name: desc" and
// ":type name: type" directives. Lines that are not part of a directive
// become the lead paragraph.
func ParseKeywords(text string) Keywords {
	var result Keywords
	if text == "" {
		return result
	}

	lines := splitLines(text)
	params := make(map[string]*Keyword)
	var order []string
	var lead []string
	current := ""

	entry := func(name string) *Keyword {
		if k, ok := params[name]; ok {
			return k
		}
		k := &Keyword{Name: name}
		params[name] = k
		order = append(order, name)
		return k
	}

	for i := 0; i < len(lines); {
		raw := lines[i]
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, ":param "):
			name, desc, ok := parseDirective(line, ":param ")
			if !ok {
				lead = append(lead, raw)
				i++
				continue
			}
			k := entry(name)
			descLines := []string{desc}
			j := i + 1
			for ; j < len(lines); j++ {
				next := strings.TrimSpace(lines[j])
				if strings.HasPrefix(next, ":param ") || strings.HasPrefix(next, ":type ") {
					break
				}
				descLines = append(descLines, next)
			}
			k.Desc = rePeriodSpacing.ReplaceAllString(strings.TrimSpace(strings.Join(descLines, "\n")), ". ")
			current = name
			i = j
		case strings.HasPrefix(line, ":type "):
			name, typ, ok := parseDirective(line, ":type ")
			if ok {
				entry(name).Type = typ
			} else {
				lead = append(lead, raw)
			}
			i++
		default:
			if current != "" && raw != "" && unicode.IsSpace(rune(raw[0])) {
				k := params[current]
				k.Desc = rePeriodSpacing.ReplaceAllString(strings.TrimSpace(k.Desc+"\n"+strings.TrimRightFunc(raw, unicode.IsSpace)), ". ")
			} else {
				lead = append(lead, raw)
			}
			i++
		}
	}

	leadText := strings.TrimSpace(strings.Join(lead, "\n"))
	leadText = reParamSpacing.ReplaceAllString(leadText, "${1}. ")
	result.Lead = formatKeywordText(fixText(leadText))

	for _, name := range order {
		k := params[name]
		desc := fixText(removeOptionalPrefix(strings.TrimSpace(k.Desc)))
		result.Params = append(result.Params, Keyword{
			Name: name,
			Type: strings.TrimSpace(escapePipes(k.Type)),
			Desc: formatKeywordText(desc),
		})
	}
	return result
}

func parseDirective(line, prefix string) (string, string, bool) {
	name, value, ok := strings.Cut(strings.TrimPrefix(line, prefix), ":")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(name), strings.TrimSpace(value), true
}
