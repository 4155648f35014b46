package extractor

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
)

// Builtins are top-level CLI commands that take no profile.
var Builtins = map[string]bool{
	"login":          true,
	"logout":         true,
	"list":           true,
	"refresh":        true,
	"init":           true,
	"config":         true,
	"status":         true,
	"migrate":        true,
	"apikey":         true,
	"configauth":     true,
	"config-tls":     true,
	"config-vault":   true,
	"createadmin":    true,
	"changepassword": true,
	"msm":            true,
}

var shellLanguages = map[string]bool{
	"":              true,
	"bash":          true,
	"sh":            true,
	"shell":         true,
	"console":       true,
	"shell-session": true,
	"zsh":           true,
	"text":          true,
	"nohighlight":   true,
}

// IsShellSample reports whether a code sample may contain shell commands.
func IsShellSample(sample CodeSample) bool {
	return shellLanguages[sample.Language]
}

// ShellExtractor finds CLI invocations of a single tool in shell samples.
type ShellExtractor struct {
	Tool string
}

func NewShellExtractor(tool string) *ShellExtractor {
	return &ShellExtractor{Tool: tool}
}

// ExtractInvocations parses sample with the tree-sitter bash grammar and
// returns every command whose name is the configured tool, including
// commands run through sudo, inside pipelines or command substitutions.
// Line numbers are absolute when sample.Line is set.
func (s *ShellExtractor) ExtractInvocations(ctx context.Context, sample CodeSample) ([]Invocation, error) {
	source := []byte(stripPrompts(sample.Content, s.Tool))
	if len(strings.TrimSpace(string(source))) == 0 {
		return nil, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(bash.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse shell sample: %w", err)
	}
	defer tree.Close()

	// Content starts on the line after the opening fence.
	base := sample.Line
	if base > 0 {
		base++
	} else {
		base = 1
	}

	var out []Invocation
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "command" {
			if inv, ok := s.invocation(n, source); ok {
				inv.Line = base + int(n.StartPoint().Row)
				out = append(out, inv)
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(tree.RootNode())
	return out, nil
}

func (s *ShellExtractor) invocation(cmd *sitter.Node, source []byte) (Invocation, bool) {
	nameNode := cmd.ChildByFieldName("name")
	if nameNode == nil {
		return Invocation{}, false
	}

	var words []string
	seenName := false
	for i := 0; i < int(cmd.NamedChildCount()); i++ {
		child := cmd.NamedChild(i)
		switch {
		case child.Type() == "command_name":
			seenName = true
		case !seenName, strings.HasSuffix(child.Type(), "redirect"), child.Type() == "comment":
		default:
			words = append(words, unquote(child.Content(source)))
		}
	}

	name := nameNode.Content(source)
	if name == "sudo" {
		// sudo [-flags] tool ...
		for len(words) > 0 && strings.HasPrefix(words[0], "-") {
			words = words[1:]
		}
		if len(words) == 0 {
			return Invocation{}, false
		}
		name, words = words[0], words[1:]
	}
	if name != s.Tool {
		return Invocation{}, false
	}
	return ParseInvocation(s.Tool, words), true
}

// ParseInvocation interprets the words that follow the tool name.
func ParseInvocation(tool string, words []string) Invocation {
	inv := Invocation{Tool: tool}

	rest := words
	if len(rest) > 0 && Builtins[rest[0]] {
		inv.Resource = rest[0]
		rest = rest[1:]
	} else {
		var head []string
		for len(rest) > 0 && len(head) < 3 {
			w := rest[0]
			if strings.HasPrefix(w, "-") || strings.Contains(w, "=") {
				break
			}
			head = append(head, w)
			rest = rest[1:]
		}
		switch len(head) {
		case 3:
			inv.Profile, inv.Resource, inv.Action = head[0], head[1], head[2]
		case 2:
			inv.Profile, inv.Resource = head[0], head[1]
		case 1:
			inv.Profile = head[0]
		}
	}

	for _, w := range rest {
		switch {
		case strings.HasPrefix(w, "-"):
			inv.Flags = append(inv.Flags, w)
		case strings.Contains(w, "="):
			key, value, _ := strings.Cut(w, "=")
			if inv.Params == nil {
				inv.Params = make(map[string]string)
			}
			if _, seen := inv.Params[key]; !seen {
				inv.ParamOrder = append(inv.ParamOrder, key)
			}
			inv.Params[key] = value
		default:
			inv.Positional = append(inv.Positional, w)
		}
	}
	return inv
}

// stripPrompts removes "$ " prompts and "# " root prompts. A "# " line is
// only a prompt when the tool follows it, otherwise it stays a comment.
// When a sample mixes prompt lines and output lines, output lines are
// blanked so row numbers stay aligned.
func stripPrompts(content, tool string) string {
	lines := strings.Split(content, "\n")
	hasPrompt := false
	for _, l := range lines {
		if _, ok := cutPrompt(strings.TrimLeft(l, " \t"), tool); ok {
			hasPrompt = true
			break
		}
	}
	if !hasPrompt {
		return content
	}
	continued := false
	for i, l := range lines {
		trimmed := strings.TrimLeft(l, " \t")
		if cmd, ok := cutPrompt(trimmed, tool); ok {
			lines[i] = cmd
		} else if !continued {
			lines[i] = ""
		}
		continued = strings.HasSuffix(strings.TrimRight(lines[i], " \t"), "\\")
	}
	return strings.Join(lines, "\n")
}

func cutPrompt(line, tool string) (string, bool) {
	if cmd, ok := strings.CutPrefix(line, "$ "); ok {
		return cmd, true
	}
	cmd, ok := strings.CutPrefix(line, "# ")
	if !ok || tool == "" {
		return "", false
	}
	words := strings.Fields(cmd)
	if len(words) > 1 && words[0] == "sudo" {
		words = words[1:]
	}
	if len(words) == 0 || words[0] != tool {
		return "", false
	}
	return strings.TrimLeft(cmd, " "), true
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	// key="value with spaces" is a concatenation; only the value is quoted.
	if key, value, ok := strings.Cut(s, "="); ok && len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
			return key + "=" + value[1:len(value)-1]
		}
	}
	return s
}
