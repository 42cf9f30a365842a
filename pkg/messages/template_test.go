package messages

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTemplate(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "greet.yaml", `name: greet
description: Greets the user
system: "Respond in {{.style}}"
messages:
  - role: user
    content: "Hello, my name is {{.name}}."
  - role: assistant
    content: "Hi!"
`)

	tmpl, err := LoadTemplate(path)
	if err != nil {
		t.Fatalf("LoadTemplate() error: %v", err)
	}
	if tmpl.Name != "greet" {
		t.Errorf("Name = %q, want %q", tmpl.Name, "greet")
	}
	if tmpl.Description != "Greets the user" {
		t.Errorf("Description = %q, want %q", tmpl.Description, "Greets the user")
	}
	if len(tmpl.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(tmpl.Messages))
	}
	if tmpl.Messages[1].Role != RoleAssistant {
		t.Errorf("Messages[1].Role = %q, want %q", tmpl.Messages[1].Role, RoleAssistant)
	}
}

func TestLoadTemplate_NameFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "unnamed.yml", "messages:\n  - role: user\n    content: hi\n")

	tmpl, err := LoadTemplate(path)
	if err != nil {
		t.Fatalf("LoadTemplate() error: %v", err)
	}
	if tmpl.Name != "unnamed" {
		t.Errorf("Name = %q, want %q", tmpl.Name, "unnamed")
	}
}

func TestLoadTemplate_Errors(t *testing.T) {
	if _, err := LoadTemplate("/nonexistent/conversation.yaml"); err == nil {
		t.Error("LoadTemplate() expected error for missing file, got nil")
	}

	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "{{invalid yaml")
	if _, err := LoadTemplate(path); err == nil {
		t.Error("LoadTemplate() expected error for invalid YAML, got nil")
	}
}

func TestLoadTemplateDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "name: a\nmessages:\n  - role: user\n    content: one\n")
	writeFile(t, dir, "b.yml", "name: b\nmessages:\n  - role: user\n    content: two\n")
	writeFile(t, dir, "notes.txt", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	templates, err := LoadTemplateDir(dir)
	if err != nil {
		t.Fatalf("LoadTemplateDir() error: %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("len(templates) = %d, want 2", len(templates))
	}
}

func TestValidate(t *testing.T) {
	empty := &Template{Name: "empty"}
	if err := empty.Validate(); err == nil {
		t.Error("Validate() expected error for no messages")
	}

	badRole := &Template{Name: "bad", Messages: []Message{{Role: "tool", Content: "x"}}}
	err := badRole.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for unknown role")
	}
	if !strings.Contains(err.Error(), "unknown role") {
		t.Errorf("error = %q, want it to mention 'unknown role'", err)
	}

	ok := &Template{Name: "ok", Messages: []Message{{Role: RoleUser, Content: "x"}}}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestRender(t *testing.T) {
	tmpl := &Template{
		Name:   "greet",
		System: "Respond in {{.style}}",
		Messages: []Message{
			{Role: RoleUser, Content: "Hello, my name is {{.name}}."},
		},
	}

	got, err := tmpl.Render(map[string]any{"style": "all caps", "name": "Ada"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if got.System != "Respond in all caps" {
		t.Errorf("System = %q, want %q", got.System, "Respond in all caps")
	}
	if got.Messages[0].Content != "Hello, my name is Ada." {
		t.Errorf("Messages[0].Content = %q, want %q", got.Messages[0].Content, "Hello, my name is Ada.")
	}
	if tmpl.Messages[0].Content != "Hello, my name is {{.name}}." {
		t.Error("Render() modified the template")
	}
}

func TestRender_MissingVariable(t *testing.T) {
	tmpl := &Template{
		Name:     "greet",
		Messages: []Message{{Role: RoleUser, Content: "Hello {{.name}}"}},
	}
	if _, err := tmpl.Render(map[string]any{}); err == nil {
		t.Fatal("Render() expected error for missing variable, got nil")
	}
}
