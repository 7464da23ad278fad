// Package intent resolves raw topic requests into concrete lesson subjects
// using the configured LLM, surfacing clarifying questions when the request
// is ambiguous or the model's confidence is too low.
package intent
