package stage

import (
	"context"

	"vividly/internal/tracker"
)

// Processor describes the contract the workflow manager needs from each
// pipeline stage. Execute mutates the request in memory; the manager owns
// persisting the outcome. Errors returned from Execute are classified with
// the services sentinels to drive the retry policy; guardrail decisions and
// clarifications travel in the Result instead, because they are rulings, not
// failures.
type Processor interface {
	Name() string
	Execute(context.Context, *tracker.Request) (Result, error)
	HealthCheck(context.Context) Health
}

// Disposition is a stage ruling about how the pipeline proceeds.
type Disposition string

const (
	// DispositionContinue advances the request to its next stage.
	DispositionContinue Disposition = "continue"
	// DispositionClarify parks the request until the user answers.
	DispositionClarify Disposition = "clarify"
	// DispositionBlock terminates the request on a guardrail ruling. A
	// block always wins, even when generation itself succeeded.
	DispositionBlock Disposition = "block"
	// DispositionCacheHit completes the request from the artifact cache.
	DispositionCacheHit Disposition = "cache_hit"
)

// Result carries a stage's ruling plus any guardrail verdicts recorded
// during the attempt.
type Result struct {
	Disposition Disposition
	Detail      string
	Verdicts    []tracker.VerdictRecord
	Degraded    bool
}

// Continue builds the ordinary advance ruling.
func Continue() Result {
	return Result{Disposition: DispositionContinue}
}

// ContinueDegraded builds an advance ruling for fallback output.
func ContinueDegraded(detail string) Result {
	return Result{Disposition: DispositionContinue, Detail: detail, Degraded: true}
}

// Clarify builds the ruling that parks a request for user input.
func Clarify(detail string, verdicts ...tracker.VerdictRecord) Result {
	return Result{Disposition: DispositionClarify, Detail: detail, Verdicts: verdicts}
}

// Block builds the terminal guardrail ruling.
func Block(detail string, verdicts ...tracker.VerdictRecord) Result {
	return Result{Disposition: DispositionBlock, Detail: detail, Verdicts: verdicts}
}

// CacheHit builds the ruling that completes a request from cache.
func CacheHit(detail string) Result {
	return Result{Disposition: DispositionCacheHit, Detail: detail}
}
