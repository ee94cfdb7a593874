package resolver

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter carries the optional YAML header of a prompt file.
type Frontmatter struct {
	Description string   `yaml:"description"`
	Mode        string   `yaml:"mode"`
	Tools       []string `yaml:"tools"`
}

var frontmatterFence = []byte("---")

// ParseFrontmatter splits content into its YAML header and markdown body. A
// file without a header returns a zero Frontmatter and the full content as
// body. A malformed header is an error; the body is still returned so callers
// can keep resolving references.
func ParseFrontmatter(content []byte) (Frontmatter, string, error) {
	var fm Frontmatter

	trimmed := bytes.TrimPrefix(content, []byte("\ufeff"))
	if !bytes.HasPrefix(trimmed, frontmatterFence) {
		return fm, string(trimmed), nil
	}
	rest, ok := bytes.CutPrefix(trimmed, frontmatterFence)
	if !ok || (len(rest) > 0 && rest[0] != '\n' && rest[0] != '\r') {
		return fm, string(trimmed), nil
	}

	idx := bytes.Index(rest, []byte("\n---"))
	if idx < 0 {
		return fm, string(trimmed), nil
	}
	header := rest[:idx]
	body := rest[idx+len("\n---"):]
	body = bytes.TrimPrefix(bytes.TrimPrefix(body, []byte("\r")), []byte("\n"))

	if err := yaml.Unmarshal(header, &fm); err != nil {
		return Frontmatter{}, string(body), fmt.Errorf("parse frontmatter: %w", err)
	}
	return fm, string(body), nil
}

// referencePattern matches, in one pass so order of appearance is preserved,
// markdown inline links and #file: variables.
var referencePattern = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)\)|#file:([^\s)\]]+)`)

// ParseReferences extracts file reference targets from a markdown body in
// order of appearance. External links, anchors and mail links are not file
// references and are skipped. Duplicate targets are kept; the resolver's
// visited set handles them.
func ParseReferences(body string) []string {
	matches := referencePattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		target := m[1]
		if target == "" {
			target = m[2]
		}
		if target == "" || !isFileTarget(target) {
			continue
		}
		out = append(out, target)
	}
	return out
}

func isFileTarget(target string) bool {
	if strings.HasPrefix(target, "#") {
		return false
	}
	if strings.HasPrefix(target, "file://") {
		return true
	}
	if strings.Contains(target, "://") || strings.HasPrefix(target, "mailto:") {
		return false
	}
	return true
}
