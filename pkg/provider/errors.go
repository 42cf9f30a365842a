package provider

import (
	"fmt"
	"strings"

	"github.com/jdgilhuly/go_fence/pkg/prompt"
)

// ConfigurationError reports a missing or invalid setting detected when a
// provider is constructed.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// InvalidPromptError reports a prompt rejected before any network I/O.
type InvalidPromptError struct {
	Err *prompt.InvalidError
}

func (e *InvalidPromptError) Error() string {
	if e.Err == nil {
		return "invalid prompt"
	}
	return e.Err.Error()
}

func (e *InvalidPromptError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}

// ProviderRequestError reports a transport failure or a non-2xx response.
// Body holds the raw response body when the server answered.
type ProviderRequestError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderRequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider request failed: HTTP %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
	}
	return fmt.Sprintf("provider request failed: %v", e.Err)
}

func (e *ProviderRequestError) Unwrap() error { return e.Err }

// ProviderResponseError reports a 2xx response whose body lacks the usage
// block or the first choice's content.
type ProviderResponseError struct {
	Body string
	Err  error
}

func (e *ProviderResponseError) Error() string {
	return fmt.Sprintf("malformed provider response: %v", e.Err)
}

func (e *ProviderResponseError) Unwrap() error { return e.Err }
