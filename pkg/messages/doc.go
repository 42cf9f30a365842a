// Package messages defines the conversation type exchanged with chat models
// and the YAML conversation templates that render into it.
package messages
