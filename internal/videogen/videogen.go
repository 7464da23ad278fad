package videogen

import (
	"context"
	"errors"
	"strings"

	"log/slog"

	"vividly/internal/blob"
	"vividly/internal/config"
	"vividly/internal/guardrail"
	"vividly/internal/logging"
	"vividly/internal/scriptgen"
	"vividly/internal/services"
	"vividly/internal/services/render"
	"vividly/internal/stage"
	"vividly/internal/tracker"
)

const stageName = "generating_video"

// Renderer is the slice of the render client this stage needs.
type Renderer interface {
	Render(ctx context.Context, job render.Job) ([]byte, error)
	HealthCheck(ctx context.Context) error
}

// Generator renders the stored script (and narration audio, when present)
// into a video, then screens the outgoing artifact through the output
// guardrail. A block at this boundary wins even though generation
// succeeded.
type Generator struct {
	cfg      *config.Config
	logger   *slog.Logger
	renderer Renderer
	blobs    *blob.Store
	chain    guardrail.Chain
	policy   guardrail.Policy
}

// NewGenerator constructs the video stage using default dependencies.
func NewGenerator(cfg *config.Config, blobs *blob.Store, logger *slog.Logger) *Generator {
	client := render.NewClient(render.Config{
		BaseURL:        cfg.Render.BaseURL,
		APIKey:         cfg.Render.APIKey,
		Preset:         cfg.Render.Preset,
		TimeoutSeconds: cfg.Render.TimeoutSeconds,
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
func NewGeneratorWithDependencies(cfg *config.Config, blobs *blob.Store, logger *slog.Logger, renderer Renderer, chain guardrail.Chain, policy guardrail.Policy) *Generator {
	return &Generator{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "videogen"),
		renderer: renderer,
		blobs:    blobs,
		chain:    chain,
		policy:   policy,
	}
}

func (g *Generator) Name() string { return stageName }

func (g *Generator) Execute(ctx context.Context, request *tracker.Request) (stage.Result, error) {
	logger := logging.WithContext(ctx, g.logger)

	if strings.TrimSpace(request.ScriptRef) == "" {
		return stage.Result{}, services.Wrap(
			services.ErrPermanent, stageName, "load inputs",
			"request reached video stage without a stored script", nil)
	}
	encoded, err := g.blobs.Get(request.ScriptRef)
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrPermanent, stageName, "load script", "", err)
	}
	script, err := scriptgen.DecodeScript(encoded)
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrPermanent, stageName, "decode script", "", err)
	}

	// Output boundary screening happens before the expensive render so a
	// late block never wastes a render call.
	winner, verdicts := g.chain.Evaluate(ctx, guardrail.SubjectOutput, script.Title+"\n"+script.Narration())
	winner = g.policy.Apply(stageName, winner)
	if winner.Blocked() {
		logger.Warn("outgoing artifact blocked by guardrail",
			logging.String(logging.FieldVerdict, string(winner.Outcome)),
			logging.Any("matched_rules", winner.MatchedRules))
		return stage.Block("outgoing artifact rejected by safety checkpoint", stage.RecordVerdicts(verdicts)...), nil
	}

	job := render.Job{
		Title:  script.Title,
		Scenes: script.SceneTexts(),
	}
	if request.AudioRef != "" {
		audio, err := g.blobs.Get(request.AudioRef)
		if err != nil {
			return stage.Result{}, services.Wrap(services.ErrPermanent, stageName, "load audio", "", err)
		}
		job.Audio = audio
		job.AudioExt = "mp3"
	}

	video, err := g.renderer.Render(ctx, job)
	if err != nil {
		if g.cfg.Pipeline.VideoFallback && errors.Is(err, services.ErrUnavailable) && stage.LastAttempt(ctx) {
			logger.Warn("render service unavailable, continuing without video",
				logging.Error(err))
			request.VideoRef = ""
			result := stage.ContinueDegraded("video skipped: render service unavailable")
			result.Verdicts = stage.RecordVerdicts(verdicts)
			return result, nil
		}
		return stage.Result{}, err
	}

	ref, err := g.blobs.Put("mp4", video)
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrTransient, stageName, "store video", "", err)
	}
	request.VideoRef = ref
	logger.Info("video rendered", logging.Int("bytes", len(video)))

	result := stage.Continue()
	result.Verdicts = stage.RecordVerdicts(verdicts)
	return result, nil
}

func (g *Generator) HealthCheck(ctx context.Context) stage.Health {
	if err := g.renderer.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(stageName, err.Error())
	}
	return stage.Healthy(stageName)
}
