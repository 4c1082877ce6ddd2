package pullrequest

import (
	"bytes"
	"fmt"
	"net/url"
	"text/template"
)

const (
	DefTitle = "Automatic Dockerfile Image Updater"
	DefBody  = "The Docker base image `{{.Image}}` was updated to the tag `{{.Tag}}`.\n\n" +
		"This pull request updates all references to the image in this repository. " +
		"It was created automatically, new tags of the image will be pushed to the branch `{{.Branch}}` " +
		"while this pull request is open."
)

var templateFuncs = template.FuncMap{
	"queryescape": url.QueryEscape,
}

// TemplateData is available in the title and body templates.
type TemplateData struct {
	Image  string
	Tag    string
	Branch string
	// Parent is the full name of the repository the pull request is
	// opened against.
	Parent string
}

// Templates are the text/template templates for the title and body of the
// pull requests.
type Templates struct {
	title *template.Template
	body  *template.Template
}

// NewTemplates parses the title and body templates. Empty templates are
// replaced by DefTitle and DefBody.
func NewTemplates(title, body string) (*Templates, error) {
	if title == "" {
		title = DefTitle
	}

	if body == "" {
		body = DefBody
	}

	titleTmpl, err := template.New("title").Funcs(templateFuncs).Parse(title)
	if err != nil {
		return nil, fmt.Errorf("parsing title template failed: %w", err)
	}

	bodyTmpl, err := template.New("body").Funcs(templateFuncs).Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing body template failed: %w", err)
	}

	return &Templates{title: titleTmpl, body: bodyTmpl}, nil
}

// Render executes the title and body templates.
func (t *Templates) Render(data *TemplateData) (title, body string, err error) {
	var out bytes.Buffer

	if err := t.title.Execute(&out, data); err != nil {
		return "", "", fmt.Errorf("rendering title failed: %w", err)
	}

	title = out.String()
	out.Reset()

	if err := t.body.Execute(&out, data); err != nil {
		return "", "", fmt.Errorf("rendering body failed: %w", err)
	}

	return title, out.String(), nil
}
