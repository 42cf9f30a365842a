// Package config loads the YAML configuration used to construct a model
// provider: model parameters, credential source, transport timeout, logging
// and metrics sinks.
package config
