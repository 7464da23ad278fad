package audiogen

import (
	"context"
	"errors"
	"strings"

	"log/slog"

	"vividly/internal/blob"
	"vividly/internal/config"
	"vividly/internal/logging"
	"vividly/internal/scriptgen"
	"vividly/internal/services"
	"vividly/internal/services/speech"
	"vividly/internal/stage"
	"vividly/internal/tracker"
)

const stageName = "generating_audio"

// Synthesizer is the slice of the speech client this stage needs.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Format() string
	HealthCheck(ctx context.Context) error
}

// Generator narrates the stored script through the text-to-speech service.
// When the service stays unavailable through the retry budget and fallback is
// enabled, the request continues without audio as a degraded artifact.
type Generator struct {
	cfg    *config.Config
	logger *slog.Logger
	speech Synthesizer
	blobs  *blob.Store
}

// NewGenerator constructs the audio stage using default dependencies.
func NewGenerator(cfg *config.Config, blobs *blob.Store, logger *slog.Logger) *Generator {
	client := speech.NewClient(speech.Config{
		BaseURL:        cfg.Speech.BaseURL,
		APIKey:         cfg.Speech.APIKey,
		Voice:          cfg.Speech.Voice,
		Format:         cfg.Speech.Format,
		TimeoutSeconds: cfg.Speech.TimeoutSeconds,
	})
	return NewGeneratorWithDependencies(cfg, blobs, logger, client)
}

// NewGeneratorWithDependencies allows injecting collaborators (used in tests).
func NewGeneratorWithDependencies(cfg *config.Config, blobs *blob.Store, logger *slog.Logger, synthesizer Synthesizer) *Generator {
	return &Generator{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "audiogen"),
		speech: synthesizer,
		blobs:  blobs,
	}
}

func (g *Generator) Name() string { return stageName }

func (g *Generator) Execute(ctx context.Context, request *tracker.Request) (stage.Result, error) {
	logger := logging.WithContext(ctx, g.logger)

	if strings.TrimSpace(request.ScriptRef) == "" {
		return stage.Result{}, services.Wrap(
			services.ErrPermanent, stageName, "load inputs",
			"request reached audio stage without a stored script", nil)
	}
	encoded, err := g.blobs.Get(request.ScriptRef)
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrPermanent, stageName, "load script", "", err)
	}
	script, err := scriptgen.DecodeScript(encoded)
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrPermanent, stageName, "decode script", "", err)
	}

	audio, err := g.speech.Synthesize(ctx, script.Narration())
	if err != nil {
		if g.cfg.Pipeline.AudioFallback && errors.Is(err, services.ErrUnavailable) && stage.LastAttempt(ctx) {
			logger.Warn("speech service unavailable, continuing without audio",
				logging.Error(err))
			request.AudioRef = ""
			return stage.ContinueDegraded("audio skipped: speech service unavailable"), nil
		}
		return stage.Result{}, err
	}

	ref, err := g.blobs.Put(g.speech.Format(), audio)
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrTransient, stageName, "store audio", "", err)
	}
	request.AudioRef = ref
	logger.Info("narration synthesized", logging.Int("bytes", len(audio)))
	return stage.Continue(), nil
}

func (g *Generator) HealthCheck(ctx context.Context) stage.Health {
	if err := g.speech.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(stageName, err.Error())
	}
	return stage.Healthy(stageName)
}
