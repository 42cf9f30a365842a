package prompt

import (
	"fmt"
	"strings"

	"github.com/jdgilhuly/go_fence/pkg/messages"
)

// Prompt is the input to a single model invocation. It is either Text or
// Conversation; no other implementations exist.
type Prompt interface {
	isPrompt()
}

// Text is a plain prompt sent to the model as a single user turn.
type Text string

// Conversation is a structured multi-turn prompt.
type Conversation messages.Messages

func (Text) isPrompt()         {}
func (Conversation) isPrompt() {}

// FromText returns s as a Prompt.
func FromText(s string) Prompt { return Text(s) }

// FromMessages returns m as a Prompt.
func FromMessages(m messages.Messages) Prompt { return Conversation(m) }

// InvalidError reports a prompt that cannot be sent to a model.
type InvalidError struct {
	Reason string
}

func (e *InvalidError) Error() string {
	return "invalid prompt: " + e.Reason
}

// Normalized is a prompt in wire form together with its input word count.
type Normalized struct {
	Messages  []messages.OpenAIMessage
	WordCount int
}

// Validate reports whether p can be sent to a model. Blank text, a
// conversation without content and turns with unknown roles are rejected.
func Validate(p Prompt) error {
	switch v := p.(type) {
	case Text:
		if strings.TrimSpace(string(v)) == "" {
			return &InvalidError{Reason: "text is empty"}
		}
		return nil
	case Conversation:
		return validateConversation(messages.Messages(v))
	case nil:
		return &InvalidError{Reason: "prompt is nil"}
	default:
		return &InvalidError{Reason: fmt.Sprintf("unsupported prompt type %T", p)}
	}
}

func validateConversation(m messages.Messages) error {
	turns := m.Turns()
	if len(turns) == 0 {
		return &InvalidError{Reason: "conversation has no messages"}
	}

	hasContent := false
	for i, t := range turns {
		if !t.Role.Valid() {
			return &InvalidError{Reason: fmt.Sprintf("turn %d has unknown role %q", i, t.Role)}
		}
		if strings.TrimSpace(t.Content) != "" {
			hasContent = true
		}
	}
	if !hasContent {
		return &InvalidError{Reason: "conversation has no content"}
	}
	return nil
}

// Normalize validates p and converts it into OpenAI wire messages. Text
// becomes a single user turn. The word count covers every turn, system
// prompt included.
func Normalize(p Prompt) (Normalized, error) {
	if err := Validate(p); err != nil {
		return Normalized{}, err
	}

	switch v := p.(type) {
	case Text:
		s := string(v)
		return Normalized{
			Messages:  []messages.OpenAIMessage{{Role: string(messages.RoleUser), Content: s}},
			WordCount: CountWords(s),
		}, nil
	case Conversation:
		m := messages.Messages(v)
		n := Normalized{Messages: m.ExportOpenAI()}
		for _, t := range m.Turns() {
			n.WordCount += CountWords(t.Content)
		}
		return n, nil
	}

	// Unreachable: Validate rejects every other type.
	return Normalized{}, &InvalidError{Reason: fmt.Sprintf("unsupported prompt type %T", p)}
}

// CountWords returns the number of whitespace-delimited words in s.
func CountWords(s string) int {
	return len(strings.Fields(s))
}
