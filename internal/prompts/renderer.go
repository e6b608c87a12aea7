// Package prompts renders the instructions sent to agents in each phase.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"text/template"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
)

//go:embed templates/*.md.tmpl
var templatesFS embed.FS

const templateSuffix = ".md.tmpl"

// Renderer implements core.PromptStore over the embedded templates.
type Renderer struct {
	mu        sync.RWMutex
	sources   map[string]string
	templates map[string]*template.Template
}

var _ core.PromptStore = (*Renderer)(nil)

// NewRenderer parses every embedded template.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		sources:   make(map[string]string),
		templates: make(map[string]*template.Template),
	}
	err := fs.WalkDir(templatesFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, templateSuffix) {
			return nil
		}
		content, err := templatesFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(path, "templates/"), templateSuffix)
		return r.add(name, string(content))
	})
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	for _, p := range core.AllPhases() {
		if _, ok := r.templates[p.String()]; !ok {
			return nil, fmt.Errorf("missing template for phase %s", p)
		}
	}
	return r, nil
}

// Override replaces the template of phase with text, e.g. from a file in
// the run directory.
func (r *Renderer) Override(phase core.Phase, text string) error {
	if !phase.Valid() {
		return core.ErrValidation(core.CodeUnknownPhase, fmt.Sprintf("unknown phase %d", int(phase)))
	}
	return r.add(phase.String(), text)
}

func (r *Renderer) add(name, text string) error {
	tmpl, err := template.New(name).Funcs(templateFuncs()).Option("missingkey=zero").Parse(text)
	if err != nil {
		return fmt.Errorf("parsing template %s: %w", name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = text
	r.templates[name] = tmpl
	return nil
}

// Template returns the unrendered template text of phase.
func (r *Renderer) Template(phase core.Phase) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	text, ok := r.sources[phase.String()]
	if !ok {
		return "", core.ErrValidation(core.CodeUnknownPhase, fmt.Sprintf("no template for phase %s", phase))
	}
	return text, nil
}

// Render executes the template of phase with params.
func (r *Renderer) Render(phase core.Phase, params core.PromptParams) (string, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[phase.String()]
	r.mu.RUnlock()
	if !ok {
		return "", core.ErrValidation(core.CodeUnknownPhase, fmt.Sprintf("no template for phase %s", phase))
	}
	if params.Inputs == nil {
		params.Inputs = map[string]string{}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", core.ErrValidation(core.CodeTemplateRenderFailure,
			fmt.Sprintf("rendering %s prompt", phase)).WithCause(err)
	}
	return buf.String(), nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"trimSpace": strings.TrimSpace,
		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
		"indent":    indent,
	}
}

func indent(spaces int, s string) string {
	pad := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}
