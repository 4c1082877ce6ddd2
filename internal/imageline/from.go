package imageline

import (
	"strings"
)

const fromKeyword = "FROM"

// FromInstruction is a Dockerfile FROM instruction.
type FromInstruction struct {
	indent  string
	keyword string
	// flags are options preceding the image, e.g. --platform=linux/amd64
	flags   []string
	image   string
	tag     string
	extra   []string
	comment string
	eol     string
}

// IsFromInstruction returns true if line, after trimming, starts with the
// FROM keyword. The keyword is case-insensitive.
func IsFromInstruction(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < len(fromKeyword) {
		return false
	}

	if !strings.EqualFold(trimmed[:len(fromKeyword)], fromKeyword) {
		return false
	}

	if len(trimmed) == len(fromKeyword) {
		return true
	}

	c := trimmed[len(fromKeyword)]
	return c == ' ' || c == '\t'
}

// ParseFromInstruction parses line as FROM instruction.
// The caller must ensure that IsFromInstruction(line) is true.
func ParseFromInstruction(line string) *FromInstruction {
	indent, content, eol := splitLine(line)

	fi := FromInstruction{
		indent:  indent,
		keyword: content[:len(fromKeyword)],
		eol:     eol,
	}

	body, comment := splitComment(content[len(fromKeyword):])
	fi.comment = comment

	fields := strings.Fields(body)
	for len(fields) > 0 && strings.HasPrefix(fields[0], "--") {
		fi.flags = append(fi.flags, fields[0])
		fields = fields[1:]
	}

	if len(fields) == 0 {
		return &fi
	}

	fi.image, fi.tag = splitReference(fields[0])
	if len(fields) > 1 {
		fi.extra = fields[1:]
	}

	return &fi
}

func (f *FromInstruction) BaseImage() string {
	return f.image
}

func (f *FromInstruction) Tag() string {
	return f.tag
}

func (f *FromInstruction) Comment() string {
	return f.comment
}

// ExtraTokens returns the tokens following the image reference, e.g. "AS builder".
func (f *FromInstruction) ExtraTokens() []string {
	return copyStrings(f.extra)
}

// Flags returns the options preceding the image reference.
func (f *FromInstruction) Flags() []string {
	return copyStrings(f.flags)
}

func (f *FromInstruction) HasBaseImage(name string) bool {
	return hasBaseImage(f.image, name)
}

func (f *FromInstruction) HasDifferentTag(tag string) bool {
	return hasDifferentTag(f.tag, tag)
}

// WithNewTag returns a copy with the tag replaced. References pinned by a
// digest are returned unchanged.
func (f *FromInstruction) WithNewTag(tag string) Line {
	res := *f
	res.flags = copyStrings(f.flags)
	res.extra = copyStrings(f.extra)
	if !isDigestReference(f.image) {
		res.tag = strings.TrimSpace(tag)
	}

	return &res
}

// String renders the instruction, whitespace between the tokens is
// normalized to single spaces, the comment is reproduced unchanged.
func (f *FromInstruction) String() string {
	var sb strings.Builder

	sb.WriteString(f.indent)
	sb.WriteString(f.keyword)
	writeTokens(&sb, f.flags)

	if f.image != "" {
		sb.WriteByte(' ')
		sb.WriteString(joinReference(f.image, f.tag))
	}

	writeTokens(&sb, f.extra)

	if f.comment != "" {
		sb.WriteByte(' ')
		sb.WriteString(f.comment)
	}

	sb.WriteString(f.eol)

	return sb.String()
}
