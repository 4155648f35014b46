package generator

import (
	"regexp"
	"strings"

	"docgraph/internal/extractor"
)

// PositionalDescriptions holds the stock descriptions of common arguments.
var PositionalDescriptions = map[string]string{
	"system_id": "The system ID of the machine/device (e.g., `abc123`)",
	"id":        "The ID of the resource (e.g., `1`, `abc123`)",
	"name":      "The name of the resource (e.g., `my-machine`, `my-zone`)",
	"data ...":  "Additional settings you can add (e.g., `architecture=amd64 hostname=my-machine`)",
}

var usageMarkers = []string{
	" positional arguments:",
	" options:",
	" optional arguments:",
	" Keywords",
	" Command-line options",
}

var (
	reUsagePrefix = regexp.MustCompile(`^\s*usage\s*:?\s*`)
	reBracketed   = regexp.MustCompile(`\[[^\]]*\]`)
)

// FormatUsage trims argparse usage text down to the invocation line and
// replaces the profile token with $PROFILE.
func FormatUsage(usage, commandPath string) string {
	parts := strings.Fields(commandPath)
	if usage == "" {
		return "maas " + strings.Join(parts, " ") + " [-h]"
	}

	usage = reUsagePrefix.ReplaceAllString(usage, "")
	for _, marker := range usageMarkers {
		if idx := strings.Index(usage, marker); idx != -1 {
			usage = strings.TrimRightFunc(usage[:idx], isSpace)
		}
	}

	if len(parts) > 0 && extractor.Builtins[parts[0]] {
		return usage
	}

	fields := strings.Fields(usage)
	if len(fields) > 1 && fields[0] == "maas" {
		fields[1] = "$PROFILE"
		usage = strings.Join(fields, " ")
	}
	return usage
}

// PositionalArgs lists the required positional arguments named in a usage
// line, after the command path itself.
func PositionalArgs(usage, commandPath string) []string {
	if usage == "" {
		return nil
	}
	path := strings.Fields(commandPath)
	if len(path) == 1 && extractor.Builtins[path[0]] {
		return nil
	}

	tokens := strings.Fields(reBracketed.ReplaceAllString(usage, ""))
	if len(tokens) > 0 && tokens[0] == "maas" {
		tokens = tokens[1:]
	}
	if len(tokens) > 0 && tokens[0] == "$PROFILE" {
		tokens = tokens[1:]
	}
	i := 0
	for _, p := range path {
		if i < len(tokens) && tokens[i] == p {
			i++
		}
	}

	var args []string
	for _, t := range tokens[i:] {
		if t == "..." || t == "COMMAND" || t == "|" || strings.ContainsAny(t, "{}") {
			continue
		}
		args = append(args, strings.Trim(t, ",|"))
	}
	return args
}

// PositionalDescription returns the stock description for an argument.
func PositionalDescription(arg string) string {
	if d, ok := PositionalDescriptions[arg]; ok {
		return d
	}
	return "The " + arg + " parameter"
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
