package provider

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// responseSchema lists the Chat Completions response fields an invocation
// depends on. Everything else in the body is ignored.
const responseSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["usage", "choices"],
  "properties": {
    "usage": {
      "type": "object",
      "required": ["prompt_tokens", "completion_tokens"],
      "properties": {
        "prompt_tokens": {"type": "integer", "minimum": 0},
        "completion_tokens": {"type": "integer", "minimum": 0}
      }
    },
    "choices": {
      "type": "array",
      "minItems": 1,
      "prefixItems": [{
        "type": "object",
        "required": ["message"],
        "properties": {
          "message": {
            "type": "object",
            "required": ["content"],
            "properties": {"content": {"type": "string"}}
          }
        }
      }]
    }
  }
}`

var compiledResponseSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(responseSchema))
	if err != nil {
		return nil, fmt.Errorf("parsing response schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("chat_completion_response.json", doc); err != nil {
		return nil, fmt.Errorf("adding response schema: %w", err)
	}
	return c.Compile("chat_completion_response.json")
})

// validateResponse checks that body is JSON carrying the usage block and the
// first choice's message content.
func validateResponse(body []byte) error {
	sch, err := compiledResponseSchema()
	if err != nil {
		return fmt.Errorf("compiling response schema: %w", err)
	}

	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}
