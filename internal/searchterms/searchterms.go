// Package searchterms converts docker image names into GitHub code search
// queries.
//
// GitHub code search splits search terms on dashes, an image name containing
// dashes only matches reliably when it is split into multiple terms.
package searchterms

import (
	"strings"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/filescope"
)

const (
	fromKeyword     = "FROM "
	imageKeyKeyword = "image: "
)

func keyword(filenames string) string {
	if filescope.Parse(filenames).ComposeOnly() {
		return imageKeyKeyword
	}

	return fromKeyword
}

// Generate returns the ordered list of search terms for image.
//
// Every dash-separated chunk of the registry domain becomes its own term, the
// first one is prefixed with the instruction keyword of the searched
// filenames. Path segments without a dash are appended with a "/" separator
// to the current term, a path segment containing a dash starts a new term.
func Generate(image, filenames string) []string {
	image = strings.TrimSpace(image)
	if image == "" {
		return []string{}
	}

	var terms []string

	appendTerm := func(term string) {
		if term != "" {
			terms = append(terms, term)
		}
	}

	segments := strings.Split(image, "/")

	current := keyword(filenames)

	domainChunks := strings.Split(segments[0], "-")
	for i, chunk := range domainChunks {
		current += chunk

		if i < len(domainChunks)-1 {
			appendTerm(current)
			current = ""
		}
	}

	for i, seg := range segments[1:] {
		if !strings.Contains(seg, "-") {
			current += "/" + seg
			continue
		}

		appendTerm(current)

		if i == 0 {
			current = seg
		} else {
			current = "/" + seg
		}
	}

	appendTerm(current)

	return terms
}

// QueryOptions restrict the search query.
type QueryOptions struct {
	// Org restricts the search to repositories of an organization.
	Org string
	// User restricts the search to repositories of a user.
	User string
	// Repository restricts the search to a single repository (owner/name).
	Repository string
}

// Query builds a GitHub code search query for image.
// Terms that contain whitespace are quoted.
func Query(image, filenames string, opts QueryOptions) string {
	var sb strings.Builder

	write := func(s string) {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}

		sb.WriteString(s)
	}

	for _, term := range Generate(image, filenames) {
		if strings.ContainsAny(term, " \t") {
			write(`"` + term + `"`)
			continue
		}

		write(term)
	}

	for _, f := range filescope.Parse(filenames).Filenames {
		write("filename:" + f)
	}

	if opts.Org != "" {
		write("org:" + opts.Org)
	}

	if opts.User != "" {
		write("user:" + opts.User)
	}

	if opts.Repository != "" {
		write("repo:" + opts.Repository)
	}

	return sb.String()
}
