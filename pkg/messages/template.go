package messages

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Template is a conversation loaded from YAML whose system prompt and message
// contents may reference variables.
type Template struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	System      string    `yaml:"system"`
	Messages    []Message `yaml:"messages"`
}

// LoadTemplate reads a single Template from a YAML file at path.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading conversation file %s: %w", path, err)
	}

	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing conversation file %s: %w", path, err)
	}
	if t.Name == "" {
		t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &t, nil
}

// LoadTemplateDir loads all .yaml and .yml files from dir as Templates.
func LoadTemplateDir(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading conversation directory %s: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		t, err := LoadTemplate(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}

	return templates, nil
}

// Validate checks that the template has at least one message and that every
// message carries a known role.
func (t *Template) Validate() error {
	if len(t.Messages) == 0 {
		return fmt.Errorf("conversation %q has no messages", t.Name)
	}
	for i, m := range t.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("conversation %q: messages[%d] has unknown role %q", t.Name, i, m.Role)
		}
	}
	return nil
}

// Render interpolates vars into the system prompt and every message content
// and returns the resulting conversation. The template is not modified.
//
// Variables use {{.name}} syntax. Referencing a variable missing from vars
// is an error.
func (t *Template) Render(vars map[string]any) (Messages, error) {
	system, err := renderTemplate(t.Name+".system", t.System, vars)
	if err != nil {
		return Messages{}, fmt.Errorf("rendering system prompt for %q: %w", t.Name, err)
	}

	out := Messages{
		System:   system,
		Messages: make([]Message, 0, len(t.Messages)),
	}
	for i, m := range t.Messages {
		content, err := renderTemplate(fmt.Sprintf("%s.messages[%d]", t.Name, i), m.Content, vars)
		if err != nil {
			return Messages{}, fmt.Errorf("rendering messages[%d] for %q: %w", i, t.Name, err)
		}
		out.Messages = append(out.Messages, Message{Role: m.Role, Content: content})
	}

	return out, nil
}

// renderTemplate parses and executes a Go text/template with "missingkey=error"
// so that undefined variables produce an error instead of empty strings.
func renderTemplate(name, text string, vars map[string]any) (string, error) {
	if text == "" {
		return "", nil
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}
