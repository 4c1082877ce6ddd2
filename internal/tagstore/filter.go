package tagstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// Filter selects store entries with a jq query.
// The query is evaluated for every entry on the object
// {"image": "<image>", "tag": "<tag>"} and must return a single boolean.
type Filter struct {
	query *gojq.Query
}

func NewFilter(query string) (*Filter, error) {
	q, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("parsing jq filter %q failed: %w", query, err)
	}

	return &Filter{query: q}, nil
}

func goJQIterToSlice(iter gojq.Iter) ([]any, []error) {
	var result []any
	var errors []error

	for {
		res, ok := iter.Next()
		if !ok {
			return result, errors
		}

		if err, isErr := res.(error); isErr {
			errors = append(errors, err)
			continue
		}

		result = append(result, res)
	}
}

func errString(errs []error) string {
	var result strings.Builder

	for i, err := range errs {
		if i > 0 {
			result.WriteString("; ")
		}

		result.WriteString(fmt.Sprintf("error %d: %s", i, err))
	}

	return result.String()
}

// Match returns true if the query evaluates to true for e.
func (f *Filter) Match(ctx context.Context, e *Entry) (bool, error) {
	input := map[string]any{
		"image": e.Image,
		"tag":   e.Tag,
	}

	result, errs := goJQIterToSlice(f.query.RunWithContext(ctx, input))
	if len(errs) != 0 {
		return false, fmt.Errorf("jq filter returned errors, query: %q, errors: %s", f.query.String(), errString(errs))
	}

	if len(result) != 1 {
		return false, fmt.Errorf("jq filter returned %d results, expected 1, query: %q", len(result), f.query.String())
	}

	val, ok := result[0].(bool)
	if !ok {
		return false, fmt.Errorf("jq filter returned non-bool result: %+v (%T), query: %q", result[0], result[0], f.query.String())
	}

	return val, nil
}

// Apply returns the entries for that the filter matches.
// A nil Filter matches all entries.
func (f *Filter) Apply(ctx context.Context, entries []*Entry) ([]*Entry, error) {
	if f == nil {
		return entries, nil
	}

	result := make([]*Entry, 0, len(entries))

	for _, e := range entries {
		match, err := f.Match(ctx, e)
		if err != nil {
			return nil, fmt.Errorf("%s:%s: %w", e.Image, e.Tag, err)
		}

		if match {
			result = append(result, e)
		}
	}

	return result, nil
}
