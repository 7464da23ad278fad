package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"vividly/internal/artifact"
	"vividly/internal/fingerprint"
	"vividly/internal/logging"
	"vividly/internal/notifications"
	"vividly/internal/retry"
	"vividly/internal/services"
	"vividly/internal/stage"
	"vividly/internal/tracker"
)

// cacheStageName is the audit-log stage for the inline cache check.
const cacheStageName = "cache_check"

// process drives a claimed request through the state machine until it reaches
// a terminal state or parks for clarification. The lease survives
// non-terminal transitions, so one worker carries the request end to end; if
// the worker dies, the reclaimer frees the lease and the next claimant
// resumes at the persisted status.
func (m *Manager) process(ctx context.Context, workerLogger *slog.Logger, owner string, request *tracker.Request) {
	ctx = requestContext(ctx, owner, request)
	logger := m.requestLogger(workerLogger, request)

	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.startLoop(hbCtx, &hbWG, request.ID, owner)
	defer func() {
		hbCancel()
		hbWG.Wait()
	}()

	for !request.Status.Terminal() && request.Status != tracker.StatusClarificationNeeded {
		if ctx.Err() != nil {
			return
		}

		var err error
		switch request.Status {
		case tracker.StatusPending:
			err = m.advance(ctx, request, tracker.StatusValidating, nil)
		case tracker.StatusCacheCheck:
			err = m.checkCache(ctx, logger, request)
		default:
			processor, ok := m.stages.ForStatus(request.Status)
			if !ok {
				err = services.Wrap(services.ErrConfiguration, string(request.Status), "dispatch", "no processor configured for status", nil)
			} else {
				err = m.runStage(ctx, logger, processor, request)
			}
		}

		if err != nil {
			switch {
			case errors.Is(err, context.Canceled):
				logger.Debug("request interrupted by shutdown")
				return
			case errors.Is(err, tracker.ErrStaleTransition):
				logger.Warn("request advanced concurrently; releasing hold", logging.Error(err))
				return
			}
			m.failRequest(ctx, logger, request, err)
			return
		}
	}
}

// advance persists a transition and refreshes the in-memory request from the
// stored row.
func (m *Manager) advance(ctx context.Context, request *tracker.Request, to tracker.Status, mutate func(*tracker.Request)) error {
	if err := m.store.Transition(ctx, request.ID, request.Status, to, mutate); err != nil {
		return err
	}
	fresh, err := m.store.GetByID(ctx, request.ID)
	if err != nil {
		return err
	}
	if fresh == nil {
		return tracker.ErrNotFound
	}
	*request = *fresh
	return nil
}

func (m *Manager) runStage(ctx context.Context, logger *slog.Logger, processor stage.Processor, request *tracker.Request) error {
	from := request.Status
	stageName := processor.Name()
	ctx = services.WithStage(ctx, stageName)
	stageLogger := logger.With(logging.String(logging.FieldStage, stageName))
	stageStart := time.Now()
	stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	// Attempt numbering continues across lease reclaims so the audit log
	// reads as one sequence per stage.
	priorAttempts, err := m.store.StageAttempts(ctx, request.ID, stageName)
	if err != nil {
		priorAttempts = 0
	}

	maxAttempts := m.retryPolicy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	policy := m.retryPolicy
	policy.OnRetry = func(attempt int, attemptErr error) {
		stageLogger.Warn("stage attempt failed; retrying",
			logging.Int("attempt", priorAttempts+attempt),
			logging.Duration("backoff", retry.Delay(policy, attempt)),
			logging.Error(attemptErr),
		)
	}

	var result stage.Result
	lastAttempt := priorAttempts + 1
	execErr := retry.Do(ctx, policy, services.IsRetryable, func(attemptCtx context.Context, attempt int) error {
		runCtx := attemptCtx
		if m.stageTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(attemptCtx, m.stageTimeout)
			defer cancel()
		}
		lastAttempt = priorAttempts + attempt
		runCtx = stage.WithAttempt(runCtx, attempt, maxAttempts)

		res, err := processor.Execute(runCtx, request)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			if services.IsRetryable(err) && attempt < maxAttempts {
				request.RetryCount++
				m.recordEvent(attemptCtx, stageLogger, request.ID, stageName, lastAttempt, tracker.OutcomeRetry, services.Message(err), nil)
			}
			return err
		}
		result = res
		return nil
	})
	if execErr != nil {
		return execErr
	}

	switch result.Disposition {
	case stage.DispositionBlock:
		m.recordEvent(ctx, stageLogger, request.ID, stageName, lastAttempt, tracker.OutcomeGuardrailViolation, result.Detail, result.Verdicts)
		if err := m.advance(ctx, request, tracker.StatusBlocked, func(r *tracker.Request) {
			copyOutputs(request, r)
			r.SetError(stageName, "guardrail_block", string(services.ClassPermanent), result.Detail)
		}); err != nil {
			return err
		}
		stageLogger.Info("request blocked by guardrails",
			logging.String(logging.FieldEventType, "guardrail_block"),
			logging.String("detail", result.Detail),
		)
		m.notify(ctx, stageLogger, notifications.EventRequestBlocked, notifications.Payload{
			"title": requestTitle(request),
		})
		return nil

	case stage.DispositionClarify:
		m.recordEvent(ctx, stageLogger, request.ID, stageName, lastAttempt, tracker.OutcomeClarification, result.Detail, result.Verdicts)
		if err := m.advance(ctx, request, tracker.StatusClarificationNeeded, func(r *tracker.Request) {
			copyOutputs(request, r)
		}); err != nil {
			return err
		}
		stageLogger.Info("request parked for clarification",
			logging.String(logging.FieldEventType, "clarification_needed"),
		)
		m.notify(ctx, stageLogger, notifications.EventClarificationNeeded, notifications.Payload{
			"title": requestTitle(request),
		})
		return nil

	default:
		outcome := tracker.OutcomeSuccess
		if result.Degraded {
			request.Degraded = true
			outcome = tracker.OutcomeDegraded
		}
		m.recordEvent(ctx, stageLogger, request.ID, stageName, lastAttempt, outcome, result.Detail, result.Verdicts)

		next, skipped := nextStatus(from, request.Style)
		for _, skip := range skipped {
			m.recordEvent(ctx, stageLogger, request.ID, string(skip), 1, tracker.OutcomeSkipped,
				"style "+string(request.Style)+" does not request this modality", nil)
		}

		var advErr error
		if next == tracker.StatusCompleted {
			advErr = m.complete(ctx, stageLogger, request)
		} else {
			advErr = m.advance(ctx, request, next, func(r *tracker.Request) {
				copyOutputs(request, r)
				r.ClearError()
			})
		}
		if advErr != nil {
			return advErr
		}
		stageLogger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String("next_status", string(request.Status)),
			logging.Duration("stage_duration", time.Since(stageStart)),
		)
		return nil
	}
}

// checkCache computes the request fingerprint and serves a completed artifact
// when one exists. Cache trouble never fails a request; a lookup error is a
// miss.
func (m *Manager) checkCache(ctx context.Context, logger *slog.Logger, request *tracker.Request) error {
	ctx = services.WithStage(ctx, cacheStageName)
	stageLogger := logger.With(logging.String(logging.FieldStage, cacheStageName))

	// The fingerprint keys on the submitted inputs, never on resolver
	// output, so identical submissions hash identically even when topic
	// resolution is nondeterministic.
	request.ArtifactFingerprint = fingerprint.Compute(fingerprint.Inputs{
		TopicRef:            request.TopicRef,
		PersonalizationRef:  request.PersonalizationRef,
		ClarificationAnswer: request.ClarificationAnswer,
		Style:               string(request.Style),
	})

	attempt := 1
	if prior, err := m.store.StageAttempts(ctx, request.ID, cacheStageName); err == nil {
		attempt = prior + 1
	}

	cached, err := m.artifacts.Lookup(ctx, request.ArtifactFingerprint)
	if err != nil {
		stageLogger.Warn("artifact cache lookup failed; treating as miss", logging.Error(err))
		cached = nil
	}

	if cached != nil && cached.Valid() {
		request.ScriptRef = cached.ScriptRef
		request.AudioRef = cached.AudioRef
		request.VideoRef = cached.VideoRef
		request.Degraded = cached.Degraded
		m.recordEvent(ctx, stageLogger, request.ID, cacheStageName, attempt, tracker.OutcomeCacheHit, "artifact cache hit", nil)
		if err := m.advance(ctx, request, tracker.StatusCompleted, func(r *tracker.Request) {
			copyOutputs(request, r)
			r.ClearError()
		}); err != nil {
			return err
		}
		stageLogger.Info("request served from artifact cache",
			logging.String(logging.FieldEventType, "cache_hit"),
			logging.String("fingerprint", request.ArtifactFingerprint),
		)
		payload := notifications.Payload{"title": requestTitle(request)}
		if request.Degraded {
			payload["degraded"] = "true"
		}
		m.notify(ctx, stageLogger, notifications.EventRequestCompleted, payload)
		return nil
	}

	m.recordEvent(ctx, stageLogger, request.ID, cacheStageName, attempt, tracker.OutcomeSuccess, "artifact cache miss", nil)
	return m.advance(ctx, request, tracker.StatusGeneratingScript, func(r *tracker.Request) {
		copyOutputs(request, r)
	})
}

// complete stores the finished artifact for future dedup and transitions the
// request to completed. When a concurrent run for the same fingerprint won
// the cache race, this request adopts the stored artifact's references and
// its own generated output is discarded.
func (m *Manager) complete(ctx context.Context, logger *slog.Logger, request *tracker.Request) error {
	if canonical := m.storeArtifact(ctx, logger, request); canonical != nil {
		request.ScriptRef = canonical.ScriptRef
		request.AudioRef = canonical.AudioRef
		request.VideoRef = canonical.VideoRef
		request.Degraded = canonical.Degraded
	}
	if err := m.advance(ctx, request, tracker.StatusCompleted, func(r *tracker.Request) {
		copyOutputs(request, r)
		r.ClearError()
	}); err != nil {
		return err
	}
	logger.Info("request completed",
		logging.String(logging.FieldEventType, "request_complete"),
		logging.String("fingerprint", request.ArtifactFingerprint),
		logging.Bool("degraded", request.Degraded),
	)
	payload := notifications.Payload{"title": requestTitle(request)}
	if request.Degraded {
		payload["degraded"] = "true"
	}
	m.notify(ctx, logger, notifications.EventRequestCompleted, payload)
	return nil
}

// storeArtifact writes the finished artifact through the cache's atomic
// put-if-absent and returns the canonical stored row, or nil when the
// artifact is not cache-eligible or the write failed.
func (m *Manager) storeArtifact(ctx context.Context, logger *slog.Logger, request *tracker.Request) *artifact.Artifact {
	if request.ArtifactFingerprint == "" {
		return nil
	}
	if request.Degraded && !m.cfg.Pipeline.CacheDegraded {
		logger.Debug("degraded artifact not cached",
			logging.String("fingerprint", request.ArtifactFingerprint),
		)
		return nil
	}
	candidate := artifact.Artifact{
		Fingerprint: request.ArtifactFingerprint,
		TopicRef:    requestTopic(request),
		Style:       string(request.Style),
		ScriptRef:   request.ScriptRef,
		AudioRef:    request.AudioRef,
		VideoRef:    request.VideoRef,
		Degraded:    request.Degraded,
	}
	if !candidate.Valid() {
		return nil
	}
	stored, inserted, err := m.artifacts.PutIfAbsent(ctx, candidate)
	if err != nil {
		logger.Warn("artifact cache write failed", logging.Error(err))
		return nil
	}
	if inserted {
		logger.Debug("artifact cached",
			logging.String("fingerprint", candidate.Fingerprint),
		)
	} else {
		logger.Debug("artifact already cached; adopting stored references",
			logging.String("fingerprint", candidate.Fingerprint),
		)
	}
	return stored
}

func (m *Manager) recordEvent(ctx context.Context, logger *slog.Logger, requestID, stageName string, attempt int, outcome tracker.EventOutcome, detail string, verdicts []tracker.VerdictRecord) {
	event := tracker.StageEvent{
		RequestID: requestID,
		Stage:     stageName,
		Attempt:   attempt,
		Outcome:   outcome,
		Detail:    detail,
	}
	if _, err := m.store.AppendEvent(ctx, event, verdicts); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("failed to append stage event", logging.Error(err))
	}
}

// nextStatus picks the status after a successful stage, honoring the
// modalities the style asks for. Skipped generation stages are returned so
// the audit log records why they never ran.
func nextStatus(from tracker.Status, style tracker.Style) (tracker.Status, []tracker.Status) {
	switch from {
	case tracker.StatusValidating:
		return tracker.StatusCacheCheck, nil
	case tracker.StatusGeneratingScript:
		if style.WantsAudio() {
			return tracker.StatusGeneratingAudio, nil
		}
		if style.WantsVideo() {
			return tracker.StatusGeneratingVideo, []tracker.Status{tracker.StatusGeneratingAudio}
		}
		return tracker.StatusCompleted, []tracker.Status{tracker.StatusGeneratingAudio, tracker.StatusGeneratingVideo}
	case tracker.StatusGeneratingAudio:
		if style.WantsVideo() {
			return tracker.StatusGeneratingVideo, nil
		}
		return tracker.StatusCompleted, []tracker.Status{tracker.StatusGeneratingVideo}
	default:
		return tracker.StatusCompleted, nil
	}
}

// copyOutputs carries stage outputs from the worker's in-memory request onto
// the freshly loaded row a transition persists.
func copyOutputs(src, dst *tracker.Request) {
	dst.ResolvedTopic = src.ResolvedTopic
	dst.ResolvedTitle = src.ResolvedTitle
	dst.ScriptRef = src.ScriptRef
	dst.AudioRef = src.AudioRef
	dst.VideoRef = src.VideoRef
	dst.ArtifactFingerprint = src.ArtifactFingerprint
	dst.Degraded = src.Degraded
	dst.ClarificationJSON = src.ClarificationJSON
	dst.RetryCount = src.RetryCount
}

func requestTopic(request *tracker.Request) string {
	if topic := strings.TrimSpace(request.ResolvedTopic); topic != "" {
		return topic
	}
	return request.TopicRef
}
