// Package provider invokes hosted chat models. It turns a prompt into a Chat
// Completions request, validates and parses the response, and reports token
// and word usage through a metrics hook.
package provider
