package provider

import (
	"strings"
)

const defaultTemperature = 1.0

// Model identifies a chat model and the parameters sent with every request.
type Model struct {
	// ID is the model identifier used on the wire, e.g. "gpt-4o".
	ID string
	// Name is the human-readable label derived from ID.
	Name string
	// Temperature is the sampling temperature. Nil means the default of 1;
	// an explicit 0 is sent as 0.
	Temperature *float64
	// MaxTokens caps the completion length. Nil means no limit.
	MaxTokens *int
}

// Known model variants.
var (
	// GPT4o is the flagship model.
	GPT4o = NewModel("gpt-4o")
	// GPT4 is the previous generation balanced model.
	GPT4 = NewModel("gpt-4")
	// GPT4oMini is the fast, low cost model.
	GPT4oMini = NewModel("gpt-4o-mini")
)

// NewModel returns a Model for id with default parameters.
func NewModel(id string) Model {
	t := defaultTemperature
	return Model{
		ID:          id,
		Name:        DisplayName(id),
		Temperature: &t,
	}
}

// DisplayName derives a display label from a model id: "gpt" is upper-cased
// and hyphens become spaces, so "gpt-4o-mini" becomes "GPT 4o mini".
func DisplayName(id string) string {
	return strings.ReplaceAll(strings.ReplaceAll(id, "gpt", "GPT"), "-", " ")
}

// Models returns the known model variants.
func Models() []Model {
	return []Model{GPT4o, GPT4, GPT4oMini}
}

// LookupModel returns the known variant with the given id, or a generic
// Model for id when it is not one of the variants.
func LookupModel(id string) Model {
	for _, m := range Models() {
		if m.ID == id {
			return m
		}
	}
	return NewModel(id)
}

// clone returns a copy of m that shares no pointers with it, with the
// default temperature filled in.
func (m Model) clone() Model {
	t := defaultTemperature
	if m.Temperature != nil {
		t = *m.Temperature
	}
	m.Temperature = &t
	if m.MaxTokens != nil {
		n := *m.MaxTokens
		m.MaxTokens = &n
	}
	return m
}
