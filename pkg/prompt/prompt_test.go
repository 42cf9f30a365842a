package prompt

import (
	"errors"
	"testing"

	"github.com/jdgilhuly/go_fence/pkg/messages"
)

func TestCountWords(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"Hi there", 2},
		{"  Hello,\thow are\nyou today?  ", 5},
	}
	for _, tt := range tests {
		if got := CountWords(tt.in); got != tt.want {
			t.Errorf("CountWords(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_Text(t *testing.T) {
	n, err := Normalize(FromText("Hello, how are you today?"))
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if len(n.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(n.Messages))
	}
	if n.Messages[0].Role != "user" {
		t.Errorf("Messages[0].Role = %q, want %q", n.Messages[0].Role, "user")
	}
	if n.Messages[0].Content != "Hello, how are you today?" {
		t.Errorf("Messages[0].Content = %q, want the raw text", n.Messages[0].Content)
	}
	if n.WordCount != 5 {
		t.Errorf("WordCount = %d, want 5", n.WordCount)
	}
}

func TestNormalize_Conversation(t *testing.T) {
	conv := messages.Messages{
		System: "Respond in all caps",
		Messages: []messages.Message{
			{Role: messages.RoleUser, Content: "Hello, how are you today?"},
			{Role: messages.RoleAssistant, Content: "I AM FINE"},
			{Role: messages.RoleUser, Content: "Great"},
		},
	}

	n, err := Normalize(FromMessages(conv))
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}

	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(n.Messages) != len(wantRoles) {
		t.Fatalf("len(Messages) = %d, want %d", len(n.Messages), len(wantRoles))
	}
	for i, role := range wantRoles {
		if n.Messages[i].Role != role {
			t.Errorf("Messages[%d].Role = %q, want %q", i, n.Messages[i].Role, role)
		}
	}
	if n.Messages[2].Content != "I AM FINE" {
		t.Errorf("Messages[2].Content = %q, want %q", n.Messages[2].Content, "I AM FINE")
	}
	// 4 (system) + 5 + 3 + 1
	if n.WordCount != 13 {
		t.Errorf("WordCount = %d, want 13", n.WordCount)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		p    Prompt
	}{
		{"nil", nil},
		{"empty text", FromText("")},
		{"blank text", FromText(" \n\t ")},
		{"empty conversation", FromMessages(messages.Messages{})},
		{"blank conversation", FromMessages(messages.Messages{
			System:   " ",
			Messages: []messages.Message{{Role: messages.RoleUser, Content: "  "}},
		})},
		{"unknown role", FromMessages(messages.Messages{
			Messages: []messages.Message{{Role: "tool", Content: "result"}},
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.p)
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			var invalid *InvalidError
			if !errors.As(err, &invalid) {
				t.Errorf("Validate() error = %T, want *InvalidError", err)
			}
			if _, err := Normalize(tt.p); err == nil {
				t.Error("Normalize() expected error, got nil")
			}
		})
	}
}

func TestValidate_SystemOnlyConversation(t *testing.T) {
	p := FromMessages(messages.Messages{System: "Summarize the weather."})
	if err := Validate(p); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}
