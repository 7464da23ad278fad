package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"log/slog"

	"vividly/internal/config"
	"vividly/internal/fingerprint"
	"vividly/internal/guardrail"
	"vividly/internal/logging"
	"vividly/internal/services"
	"vividly/internal/services/intent"
	"vividly/internal/services/llm"
	"vividly/internal/stage"
	"vividly/internal/tracker"
)

const stageName = "validating"

// IntentResolver is the slice of the intent service this stage needs.
type IntentResolver interface {
	Resolve(ctx context.Context, topicRef, personalizationRef string) (intent.Resolution, error)
	HealthCheck(ctx context.Context) error
}

// Resolver validates incoming requests, runs the input guardrail, and
// resolves the raw topic into a concrete subject.
type Resolver struct {
	cfg    *config.Config
	logger *slog.Logger
	intent IntentResolver
	chain  guardrail.Chain
	policy guardrail.Policy
}

// NewResolver constructs the validation stage using default dependencies.
func NewResolver(cfg *config.Config, logger *slog.Logger) *Resolver {
	llmCfg := cfg.IntentLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	})
	resolver := intent.NewResolver(client, cfg.Intent.ConfidenceThreshold)
	return NewResolverWithDependencies(cfg, logger, resolver,
		guardrail.Chain{guardrail.KeywordCheckpoint{
			BlockedTerms: cfg.Guardrails.BlockedTerms,
			FlaggedTerms: cfg.Guardrails.FlaggedTerms,
		}},
		guardrail.NewPolicy(cfg.Guardrails.EscalateFlags),
	)
}

// NewResolverWithDependencies allows injecting collaborators (used in tests).
func NewResolverWithDependencies(cfg *config.Config, logger *slog.Logger, intentResolver IntentResolver, chain guardrail.Chain, policy guardrail.Policy) *Resolver {
	return &Resolver{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "resolve"),
		intent: intentResolver,
		chain:  chain,
		policy: policy,
	}
}

func (r *Resolver) Name() string { return stageName }

func (r *Resolver) Execute(ctx context.Context, request *tracker.Request) (stage.Result, error) {
	logger := logging.WithContext(ctx, r.logger)

	if _, ok := tracker.ParseStyle(string(request.Style)); !ok {
		return stage.Result{}, services.Wrap(
			services.ErrValidation, stageName, "validate style",
			fmt.Sprintf("unsupported style %q", request.Style), nil)
	}
	if strings.TrimSpace(request.TopicRef) == "" {
		return stage.Result{}, services.Wrap(
			services.ErrValidation, stageName, "validate topic",
			"topic ref is empty", nil)
	}

	inputText := strings.Join([]string{
		request.TopicRef,
		request.PersonalizationRef,
		request.ClarificationAnswer,
	}, "\n")
	winner, verdicts := r.chain.Evaluate(ctx, guardrail.SubjectInput, inputText)
	winner = r.policy.Apply(stageName, winner)
	if winner.Blocked() {
		logger.Warn("input blocked by guardrail",
			logging.String(logging.FieldVerdict, string(winner.Outcome)),
			logging.Any("matched_rules", winner.MatchedRules))
		return stage.Block("input rejected by safety checkpoint", stage.RecordVerdicts(verdicts)...), nil
	}

	hint := request.PersonalizationRef
	if answer := strings.TrimSpace(request.ClarificationAnswer); answer != "" {
		hint = strings.TrimSpace(hint + "\nClarification: " + answer)
	}
	resolution, err := r.intent.Resolve(ctx, request.TopicRef, hint)
	if err != nil {
		return stage.Result{}, err
	}

	if resolution.Ambiguous {
		payload, err := json.Marshal(struct {
			Questions []string `json:"questions"`
			Reason    string   `json:"reason,omitempty"`
		}{Questions: resolution.Questions, Reason: resolution.Reason})
		if err != nil {
			return stage.Result{}, services.Wrap(services.ErrPermanent, stageName, "encode clarification", "", err)
		}
		request.ClarificationJSON = string(payload)
		logger.Info("request needs clarification",
			logging.Int("questions", len(resolution.Questions)))
		return stage.Clarify("topic is ambiguous", stage.RecordVerdicts(verdicts)...), nil
	}

	request.ResolvedTopic = resolution.Topic
	request.ResolvedTitle = resolution.Title
	if request.ResolvedTitle == "" {
		request.ResolvedTitle = fingerprint.Title(resolution.Topic)
	}
	request.ClarificationJSON = ""
	logger.Info("topic resolved",
		logging.String("topic", resolution.Topic),
		logging.Float64("confidence", resolution.Confidence))

	result := stage.Continue()
	result.Verdicts = stage.RecordVerdicts(verdicts)
	return result, nil
}

func (r *Resolver) HealthCheck(ctx context.Context) stage.Health {
	if err := r.intent.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(stageName, err.Error())
	}
	return stage.Healthy(stageName)
}
