package imageline

import (
	"strings"
)

const imageKey = "image:"

// ImageKeyValuePair is an "image:" entry of a docker-compose file.
type ImageKeyValuePair struct {
	indent  string
	quote   string
	image   string
	tag     string
	extra   []string
	comment string
	eol     string
}

// IsImageKeyValuePair returns true if line, after trimming, starts with
// "image:".
func IsImageKeyValuePair(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), imageKey)
}

// ParseImageKeyValuePair parses line as docker-compose image key.
// The caller must ensure that IsImageKeyValuePair(line) is true.
func ParseImageKeyValuePair(line string) *ImageKeyValuePair {
	indent, content, eol := splitLine(line)

	kv := ImageKeyValuePair{
		indent: indent,
		eol:    eol,
	}

	body, comment := splitComment(content[len(imageKey):])
	kv.comment = comment

	fields := strings.Fields(body)
	if len(fields) == 0 {
		return &kv
	}

	value := fields[0]
	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
		kv.quote = value[:1]
		value = value[1 : len(value)-1]
	}

	kv.image, kv.tag = splitReference(value)
	if len(fields) > 1 {
		kv.extra = fields[1:]
	}

	return &kv
}

func (k *ImageKeyValuePair) BaseImage() string {
	return k.image
}

func (k *ImageKeyValuePair) Tag() string {
	return k.tag
}

func (k *ImageKeyValuePair) Comment() string {
	return k.comment
}

func (k *ImageKeyValuePair) HasBaseImage(name string) bool {
	return hasBaseImage(k.image, name)
}

func (k *ImageKeyValuePair) HasDifferentTag(tag string) bool {
	return hasDifferentTag(k.tag, tag)
}

// WithNewTag returns a copy with the tag replaced. References pinned by a
// digest are returned unchanged.
func (k *ImageKeyValuePair) WithNewTag(tag string) Line {
	res := *k
	res.extra = copyStrings(k.extra)
	if !isDigestReference(k.image) {
		res.tag = strings.TrimSpace(tag)
	}

	return &res
}

func (k *ImageKeyValuePair) String() string {
	var sb strings.Builder

	sb.WriteString(k.indent)
	sb.WriteString(imageKey)

	if k.image != "" {
		sb.WriteByte(' ')
		sb.WriteString(k.quote)
		sb.WriteString(joinReference(k.image, k.tag))
		sb.WriteString(k.quote)
	}

	writeTokens(&sb, k.extra)

	if k.comment != "" {
		sb.WriteByte(' ')
		sb.WriteString(k.comment)
	}

	sb.WriteString(k.eol)

	return sb.String()
}
