// Package prompt defines the input accepted by a model invocation and turns
// it into the wire messages and input word count used by providers.
package prompt
