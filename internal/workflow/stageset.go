package workflow

import (
	"context"
	"log/slog"

	"vividly/internal/audiogen"
	"vividly/internal/blob"
	"vividly/internal/config"
	"vividly/internal/resolve"
	"vividly/internal/scriptgen"
	"vividly/internal/stage"
	"vividly/internal/tracker"
	"vividly/internal/videogen"
)

// StageSet bundles the processors the manager dispatches requests to, keyed
// by the processing status each one serves.
type StageSet struct {
	Resolve stage.Processor
	Script  stage.Processor
	Audio   stage.Processor
	Video   stage.Processor
}

// NewStageSet builds the production processors from configuration.
func NewStageSet(cfg *config.Config, blobs *blob.Store, logger *slog.Logger) StageSet {
	return StageSet{
		Resolve: resolve.NewResolver(cfg, logger),
		Script:  scriptgen.NewGenerator(cfg, blobs, logger),
		Audio:   audiogen.NewGenerator(cfg, blobs, logger),
		Video:   videogen.NewGenerator(cfg, blobs, logger),
	}
}

// ForStatus returns the processor that handles a processing status. The
// pending and cache_check states are driven by the manager itself and have no
// processor.
func (s StageSet) ForStatus(status tracker.Status) (stage.Processor, bool) {
	switch status {
	case tracker.StatusValidating:
		return s.Resolve, s.Resolve != nil
	case tracker.StatusGeneratingScript:
		return s.Script, s.Script != nil
	case tracker.StatusGeneratingAudio:
		return s.Audio, s.Audio != nil
	case tracker.StatusGeneratingVideo:
		return s.Video, s.Video != nil
	default:
		return nil, false
	}
}

// Health collects readiness from every configured processor.
func (s StageSet) Health(ctx context.Context) []stage.Health {
	checks := make([]stage.Health, 0, 4)
	for _, processor := range []stage.Processor{s.Resolve, s.Script, s.Audio, s.Video} {
		if processor == nil {
			continue
		}
		checks = append(checks, processor.HealthCheck(ctx))
	}
	return checks
}
