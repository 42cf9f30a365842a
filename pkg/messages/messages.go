package messages

import "strings"

// Role identifies the author of a single conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `yaml:"role" json:"role"`
	Content string `yaml:"content" json:"content"`
}

// Messages is an ordered conversation with an optional leading system prompt.
type Messages struct {
	System   string    `yaml:"system,omitempty" json:"system,omitempty"`
	Messages []Message `yaml:"messages" json:"messages"`
}

// OpenAIMessage is a conversation turn in the OpenAI Chat Completions format.
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turns returns every turn of the conversation in order, with the system
// prompt first when it is set.
func (m Messages) Turns() []Message {
	out := make([]Message, 0, len(m.Messages)+1)
	if strings.TrimSpace(m.System) != "" {
		out = append(out, Message{Role: RoleSystem, Content: m.System})
	}
	return append(out, m.Messages...)
}

// ExportOpenAI converts the conversation into the OpenAI wire format.
// OpenAI carries the system prompt as the first entry of the messages array.
func (m Messages) ExportOpenAI() []OpenAIMessage {
	turns := m.Turns()
	out := make([]OpenAIMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, OpenAIMessage{Role: string(t.Role), Content: t.Content})
	}
	return out
}
