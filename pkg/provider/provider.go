package provider

import (
	"context"

	"github.com/jdgilhuly/go_fence/pkg/prompt"
)

// Invoker sends a prompt to a model and returns its completion.
type Invoker interface {
	// Invoke performs one synchronous request/response exchange.
	Invoke(ctx context.Context, p prompt.Prompt) (string, error)

	// Model returns the model identity the invoker is bound to.
	Model() Model
}
