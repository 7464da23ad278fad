// Package llm wraps an OpenRouter-compatible chat completion API behind a
// single-shot client. Requests return classified errors so the pipeline's
// retry policy can decide what to do; the client itself never retries.
//
// DecodeLLMJSON tolerates the usual model formatting quirks (code fences,
// prose around the payload) so prompt authors do not have to.
package llm
