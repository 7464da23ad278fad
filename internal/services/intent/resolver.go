package intent

import (
	"context"
	"fmt"
	"strings"

	"vividly/internal/services"
	"vividly/internal/services/llm"
)

// Completer is the slice of the LLM client the resolver needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Resolution captures the JSON payload returned by the LLM for a topic
// request.
type Resolution struct {
	Topic      string   `json:"topic"`
	Title      string   `json:"title"`
	Confidence float64  `json:"confidence"`
	Ambiguous  bool     `json:"ambiguous"`
	Questions  []string `json:"questions"`
	Reason     string   `json:"reason"`
	Raw        string   `json:"-"`
}

// Resolver turns raw topic requests into concrete resolutions. Requests
// whose confidence lands below the configured threshold are reported as
// ambiguous even when the model did not flag them.
type Resolver struct {
	completer Completer
	threshold float64
}

// NewResolver constructs a resolver over the supplied completer.
func NewResolver(completer Completer, confidenceThreshold float64) *Resolver {
	if confidenceThreshold <= 0 || confidenceThreshold > 1 {
		confidenceThreshold = 0.7
	}
	return &Resolver{completer: completer, threshold: confidenceThreshold}
}

// Resolve maps a topic request plus personalization hint to a resolution.
func (r *Resolver) Resolve(ctx context.Context, topicRef, personalizationRef string) (Resolution, error) {
	var empty Resolution
	topicRef = strings.TrimSpace(topicRef)
	if topicRef == "" {
		return empty, services.Wrap(services.ErrValidation, "", "intent resolve", "topic ref required", nil)
	}

	prompt := "Request: " + topicRef
	if hint := strings.TrimSpace(personalizationRef); hint != "" {
		prompt += "\nPersonalization: " + hint
	}

	content, err := r.completer.CompleteJSON(ctx, ResolutionPrompt, prompt)
	if err != nil {
		return empty, err
	}

	var parsed Resolution
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return empty, services.Wrap(services.ErrTransient, "", "intent resolve", "parse payload", err)
	}
	parsed.Raw = content
	parsed.Topic = strings.ToLower(strings.TrimSpace(parsed.Topic))
	parsed.Title = strings.TrimSpace(parsed.Title)
	parsed.Reason = strings.TrimSpace(parsed.Reason)
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	if parsed.Confidence < r.threshold {
		parsed.Ambiguous = true
	}
	if parsed.Ambiguous && len(parsed.Questions) == 0 {
		parsed.Questions = []string{fmt.Sprintf("What specifically about %q would you like explained?", topicRef)}
	}
	if !parsed.Ambiguous && parsed.Topic == "" {
		return empty, services.Wrap(services.ErrTransient, "", "intent resolve", "resolution missing topic", nil)
	}
	return parsed, nil
}

// HealthCheck verifies the underlying completer is usable.
func (r *Resolver) HealthCheck(ctx context.Context) error {
	return r.completer.HealthCheck(ctx)
}
