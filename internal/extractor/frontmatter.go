package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ParseFrontMatter splits content into front matter and body. Content
// without front matter returns a nil map, the whole content and an
// empty format.
func ParseFrontMatter(content []byte) (map[string]interface{}, string, string, error) {
	fm, body, format, _, err := splitFrontMatter(content)
	return fm, string(body), format, err
}

// splitFrontMatter also returns how many source lines precede the body,
// so that line numbers reported for the body match the file.
func splitFrontMatter(content []byte) (map[string]interface{}, []byte, string, int, error) {
	switch {
	case hasDelimiterLine(content, "---"):
		raw, body, lines, ok := cutDelimited(content, "---")
		if !ok {
			return nil, content, "", 0, nil
		}
		var fm map[string]interface{}
		if err := yaml.Unmarshal(raw, &fm); err != nil {
			return nil, nil, "", 0, fmt.Errorf("invalid yaml front matter: %w", err)
		}
		return sanitizeFrontMatter(fm), body, "yaml", lines, nil

	case hasDelimiterLine(content, "+++"):
		raw, body, lines, ok := cutDelimited(content, "+++")
		if !ok {
			return nil, content, "", 0, nil
		}
		var fm map[string]interface{}
		if err := toml.Unmarshal(raw, &fm); err != nil {
			return nil, nil, "", 0, fmt.Errorf("invalid toml front matter: %w", err)
		}
		return fm, body, "toml", lines, nil

	case looksLikeJSONObject(content):
		dec := json.NewDecoder(bytes.NewReader(content))
		var fm map[string]interface{}
		if err := dec.Decode(&fm); err != nil {
			return nil, nil, "", 0, fmt.Errorf("invalid json front matter: %w", err)
		}
		offset := dec.InputOffset()
		lines := bytes.Count(content[:offset], []byte("\n"))
		return fm, content[offset:], "json", lines, nil
	}

	return nil, content, "", 0, nil
}

// looksLikeJSONObject reports whether content opens with a JSON object
// key, so that shortcodes such as "{{< toc >}}" stay in the body.
func looksLikeJSONObject(content []byte) bool {
	if !bytes.HasPrefix(content, []byte("{")) {
		return false
	}
	rest := bytes.TrimLeft(content[1:], " \t\r\n")
	return len(rest) > 0 && (rest[0] == '"' || rest[0] == '}')
}

func hasDelimiterLine(content []byte, delim string) bool {
	return bytes.HasPrefix(content, []byte(delim+"\n")) || bytes.HasPrefix(content, []byte(delim+"\r\n"))
}

// cutDelimited returns the text between the opening delimiter line and the
// next line consisting only of the delimiter.
func cutDelimited(content []byte, delim string) ([]byte, []byte, int, bool) {
	offset := bytes.IndexByte(content, '\n') + 1
	start := offset
	line := 1
	for offset < len(content) {
		next := bytes.IndexByte(content[offset:], '\n')
		end := len(content)
		if next >= 0 {
			end = offset + next + 1
		}
		line++
		if strings.TrimRight(string(content[offset:end]), "\r\n") == delim {
			return content[start:offset], content[end:], line, true
		}
		offset = end
	}
	return nil, nil, 0, false
}

func sanitizeFrontMatter(fm map[string]interface{}) map[string]interface{} {
	if fm == nil {
		return nil
	}
	sanitized := make(map[string]interface{}, len(fm))
	for k, v := range fm {
		sanitized[k] = sanitizeFrontMatterValue(v)
	}
	return sanitized
}

func sanitizeFrontMatterValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return sanitizeFrontMatter(v)
	case map[interface{}]interface{}:
		normalized := make(map[string]interface{}, len(v))
		for key, inner := range v {
			normalized[fmt.Sprint(key)] = sanitizeFrontMatterValue(inner)
		}
		return normalized
	case []interface{}:
		slice := make([]interface{}, len(v))
		for i := range v {
			slice[i] = sanitizeFrontMatterValue(v[i])
		}
		return slice
	default:
		return v
	}
}

func frontMatterString(fm map[string]interface{}, key string) string {
	if fm == nil {
		return ""
	}
	if s, ok := fm[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
