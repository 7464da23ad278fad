package workflow

import (
	"context"
	"errors"
	"log/slog"

	"vividly/internal/logging"
	"vividly/internal/notifications"
	"vividly/internal/services"
	"vividly/internal/tracker"
)

// failRequest records the terminal failure for the stage the request is
// currently in. When the state machine forbids failing from the current
// status, the error is logged and the lease is left for the reclaimer so the
// next claimant retries the request.
func (m *Manager) failRequest(ctx context.Context, logger *slog.Logger, request *tracker.Request, stageErr error) {
	stageName := string(request.Status)
	if request.Status == tracker.StatusCacheCheck {
		stageName = cacheStageName
	}
	class := services.Classify(stageErr)
	code := failureCode(stageErr)
	message := services.Message(stageErr)

	attempt := 1
	if prior, err := m.store.StageAttempts(ctx, request.ID, stageName); err == nil && prior > 0 {
		attempt = prior + 1
	}
	m.recordEvent(ctx, logger, request.ID, stageName, attempt, tracker.OutcomeFailure, message, nil)

	err := m.advance(ctx, request, tracker.StatusFailed, func(r *tracker.Request) {
		copyOutputs(request, r)
		r.SetError(stageName, code, string(class), message)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutdown interrupted failure persistence")
			return
		}
		logger.Error("failed to persist request failure", logging.Error(err))
		return
	}

	logger.Error("request failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldStage, stageName),
		logging.String("error_code", code),
		logging.String("error_class", string(class)),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)
	m.notify(ctx, logger, notifications.EventRequestFailed, notifications.Payload{
		"title": requestTitle(request),
		"stage": stageName,
		"code":  code,
	})
}

// failureCode maps a stage error to the stable code surfaced to API callers.
// Raw upstream text never leaves the error_message column.
func failureCode(err error) string {
	switch {
	case errors.Is(err, services.ErrValidation):
		return "invalid_request"
	case errors.Is(err, services.ErrConfiguration):
		return "configuration_error"
	case errors.Is(err, services.ErrUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, services.ErrPermanent):
		return "permanent_failure"
	default:
		return "retries_exhausted"
	}
}
