// Package imageline parses and rewrites single lines of Dockerfiles and
// docker-compose files that reference a docker image.
package imageline

import (
	"strings"
)

// Line is a parsed line that references a docker image.
type Line interface {
	// BaseImage returns the image name without the tag.
	BaseImage() string
	// Tag returns the tag of the image, it is empty if the line does
	// not specify one.
	Tag() string
	// Comment returns the trailing comment including the leading '#'.
	Comment() string
	// HasBaseImage returns true if the image name of the line ends with name.
	// The suffix match tolerates registry and namespace prefixes.
	HasBaseImage(name string) bool
	// HasDifferentTag returns true if the tag of the line differs from
	// tag. An absent tag and an empty tag are equal.
	HasDifferentTag(tag string) bool
	// WithNewTag returns a copy of the line with the tag replaced.
	WithNewTag(tag string) Line
	// String renders the line.
	String() string
}

// Parse parses a FROM instruction or an image key-value pair.
// If the line is neither, false is returned.
func Parse(line string) (Line, bool) {
	if IsFromInstruction(line) {
		return ParseFromInstruction(line), true
	}

	if IsImageKeyValuePair(line) {
		return ParseImageKeyValuePair(line), true
	}

	return nil, false
}

// splitReference splits an image reference into name and tag.
// The tag is the part after the last colon, unless it contains a slash,
// then the colon separates a registry port. References with a digest are
// not split.
func splitReference(ref string) (name, tag string) {
	if isDigestReference(ref) {
		return ref, ""
	}

	idx := strings.LastIndexByte(ref, ':')
	if idx < 0 {
		return ref, ""
	}

	if strings.Contains(ref[idx+1:], "/") {
		return ref, ""
	}

	return ref[:idx], ref[idx+1:]
}

func isDigestReference(ref string) bool {
	return strings.Contains(ref, "@")
}

func joinReference(name, tag string) string {
	if tag == "" {
		return name
	}

	return name + ":" + tag
}

func hasBaseImage(found, name string) bool {
	if found == "" || name == "" {
		return false
	}

	return strings.HasSuffix(found, name)
}

func hasDifferentTag(found, expected string) bool {
	return strings.TrimSpace(found) != strings.TrimSpace(expected)
}

// splitLine separates the leading whitespace, the trimmed content and a
// trailing carriage return of line.
func splitLine(line string) (indent, content, eol string) {
	if strings.HasSuffix(line, "\r") {
		eol = "\r"
		line = line[:len(line)-1]
	}

	content = strings.TrimLeft(line, " \t")
	indent = line[:len(line)-len(content)]

	return indent, content, eol
}

// splitComment splits s at the first '#'.
func splitComment(s string) (body, comment string) {
	idx := strings.IndexByte(s, '#')
	if idx < 0 {
		return s, ""
	}

	return s[:idx], s[idx:]
}

func copyStrings(sl []string) []string {
	if sl == nil {
		return nil
	}

	return append([]string(nil), sl...)
}

func writeTokens(sb *strings.Builder, tokens []string) {
	for _, t := range tokens {
		sb.WriteByte(' ')
		sb.WriteString(t)
	}
}
