package scriptgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"vividly/internal/blob"
	"vividly/internal/config"
	"vividly/internal/guardrail"
	"vividly/internal/logging"
	"vividly/internal/services"
	"vividly/internal/services/llm"
	"vividly/internal/stage"
	"vividly/internal/tracker"
)

const stageName = "generating_script"

// Completer is the slice of the LLM client this stage needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Generator produces the lesson script for a resolved topic, screens it
// through the generation guardrail, and persists it to the blob store.
type Generator struct {
	cfg       *config.Config
	logger    *slog.Logger
	completer Completer
	blobs     *blob.Store
	chain     guardrail.Chain
	policy    guardrail.Policy
}

// NewGenerator constructs the script stage using default dependencies.
func NewGenerator(cfg *config.Config, blobs *blob.Store, logger *slog.Logger) *Generator {
	llmCfg := cfg.GetLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	})
	return NewGeneratorWithDependencies(cfg, blobs, logger, client,
		guardrail.Chain{guardrail.KeywordCheckpoint{
			BlockedTerms: cfg.Guardrails.BlockedTerms,
			FlaggedTerms: cfg.Guardrails.FlaggedTerms,
		}},
		guardrail.NewPolicy(cfg.Guardrails.EscalateFlags),
	)
}

// NewGeneratorWithDependencies allows injecting collaborators (used in tests).
func NewGeneratorWithDependencies(cfg *config.Config, blobs *blob.Store, logger *slog.Logger, completer Completer, chain guardrail.Chain, policy guardrail.Policy) *Generator {
	return &Generator{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "scriptgen"),
		completer: completer,
		blobs:     blobs,
		chain:     chain,
		policy:    policy,
	}
}

func (g *Generator) Name() string { return stageName }

func (g *Generator) Execute(ctx context.Context, request *tracker.Request) (stage.Result, error) {
	logger := logging.WithContext(ctx, g.logger)

	topic := strings.TrimSpace(request.ResolvedTopic)
	if topic == "" {
		return stage.Result{}, services.Wrap(
			services.ErrPermanent, stageName, "load inputs",
			"request reached script stage without a resolved topic", nil)
	}

	script, degraded, err := g.generate(ctx, request, topic)
	if err != nil {
		return stage.Result{}, err
	}
	if err := script.Validate(); err != nil {
		return stage.Result{}, services.Wrap(services.ErrTransient, stageName, "validate script", "", err)
	}

	winner, verdicts := g.chain.Evaluate(ctx, guardrail.SubjectGeneration, script.Narration())
	winner = g.policy.Apply(stageName, winner)
	if winner.Blocked() {
		logger.Warn("generated script blocked by guardrail",
			logging.String(logging.FieldVerdict, string(winner.Outcome)),
			logging.Any("matched_rules", winner.MatchedRules))
		return stage.Block("generated script rejected by safety checkpoint", stage.RecordVerdicts(verdicts)...), nil
	}

	encoded, err := script.Encode()
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrPermanent, stageName, "encode script", "", err)
	}
	ref, err := g.blobs.Put("json", encoded)
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrTransient, stageName, "store script", "", err)
	}

	request.ScriptRef = ref
	if request.ResolvedTitle == "" {
		request.ResolvedTitle = script.Title
	}
	logger.Info("script generated",
		logging.Int("scenes", len(script.Scenes)),
		logging.Bool("degraded", degraded))

	var result stage.Result
	if degraded {
		result = stage.ContinueDegraded("script produced by fallback template")
	} else {
		result = stage.Continue()
	}
	result.Verdicts = stage.RecordVerdicts(verdicts)
	return result, nil
}

func (g *Generator) generate(ctx context.Context, request *tracker.Request, topic string) (Script, bool, error) {
	prompt := "Topic: " + topic
	if hint := strings.TrimSpace(request.PersonalizationRef); hint != "" {
		prompt += "\nPersonalization: " + hint
	}

	content, err := g.completer.CompleteJSON(ctx, GenerationPrompt, prompt)
	if err != nil {
		// An unavailable upstream still consumes the retry budget; the
		// fallback only takes over once the last attempt failed too.
		if g.cfg.Pipeline.ScriptFallback && errors.Is(err, services.ErrUnavailable) && stage.LastAttempt(ctx) {
			return fallbackScript(request, topic), true, nil
		}
		return Script{}, false, err
	}

	var script Script
	if err := llm.DecodeLLMJSON(content, &script); err != nil {
		return Script{}, false, services.Wrap(services.ErrTransient, stageName, "parse script", "", err)
	}
	if script.Topic == "" {
		script.Topic = topic
	}
	return script, false, nil
}

// fallbackScript builds a minimal outline when the LLM is unavailable and
// fallback is enabled. It is marked degraded so the artifact is not cached
// unless configuration says otherwise.
func fallbackScript(request *tracker.Request, topic string) Script {
	title := strings.TrimSpace(request.ResolvedTitle)
	if title == "" {
		title = topic
	}
	return Script{
		Title: title,
		Topic: topic,
		Scenes: []Scene{
			{
				Narration: fmt.Sprintf("Today we are looking at %s.", topic),
				Visual:    "title card",
			},
			{
				Narration: fmt.Sprintf("%s is a topic worth understanding step by step; a full lesson will follow when generation is available again.", title),
				Visual:    "outline of the topic",
			},
		},
	}
}

func (g *Generator) HealthCheck(ctx context.Context) stage.Health {
	if err := g.completer.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(stageName, err.Error())
	}
	return stage.Healthy(stageName)
}
