// Package prompt renders the context-only question answering prompt.
package prompt

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"bookrag/internal/domain"
)

// Markers delimiting the sections of the default prompt.
const (
	contextMarker  = "Context:\n"
	questionMarker = "\n\nQuestion:\n"
	answerMarker   = "\n\nAnswer:"
)

// DefaultText is the built-in template. It instructs the model to answer
// only from the supplied context and to reply with the fallback sentence
// otherwise.
const DefaultText = `You are a literary assistant.

IMPORTANT:
You must answer STRICTLY using only the information contained in the provided context.
You are NOT allowed to use prior knowledge.
If the answer is not explicitly or clearly supported by the context,
you MUST respond EXACTLY with:

"{{.Fallback}}"

` + contextMarker + `{{.Context}}` + questionMarker + `{{.Question}}` + answerMarker + "\n"

// Data is the value a template is executed with.
type Data struct {
	Context  string
	Question string
	Fallback string
}

// Template is a parsed prompt template.
type Template struct {
	tmpl *template.Template
}

// Default returns the built-in template.
func Default() *Template {
	return &Template{tmpl: template.Must(template.New("prompt").Parse(DefaultText))}
}

// Parse parses a custom template. It must reference {{.Context}} and {{.Question}}.
func Parse(text string) (*Template, error) {
	if !strings.Contains(text, "{{.Context}}") || !strings.Contains(text, "{{.Question}}") {
		return nil, fmt.Errorf("%w: prompt template must reference {{.Context}} and {{.Question}}", domain.ErrConfiguration)
	}
	t, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: parse prompt template: %v", domain.ErrConfiguration, err)
	}
	return &Template{tmpl: t}, nil
}

// Load reads a template from path. An empty path yields the default template.
func Load(path string) (*Template, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read prompt template: %v", domain.ErrConfiguration, err)
	}
	return Parse(string(data))
}

// Render substitutes context and question into the template. The question is
// collapsed onto one line so it cannot forge a section marker.
func (t *Template) Render(context, question string) (string, error) {
	var buf bytes.Buffer
	question = strings.Join(strings.Fields(question), " ")
	err := t.tmpl.Execute(&buf, Data{Context: context, Question: question, Fallback: domain.FallbackAnswer})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// Sections recovers the context and question from a prompt rendered with
// the default layout. ok is false when the markers are missing.
func Sections(p string) (context, question string, ok bool) {
	ci := strings.Index(p, contextMarker)
	if ci < 0 {
		return "", "", false
	}
	rest := p[ci+len(contextMarker):]
	qi := strings.LastIndex(rest, questionMarker)
	if qi < 0 {
		return "", "", false
	}
	context = rest[:qi]
	question = rest[qi+len(questionMarker):]
	if ai := strings.LastIndex(question, answerMarker); ai >= 0 {
		question = question[:ai]
	}
	return context, strings.TrimSpace(question), true
}
