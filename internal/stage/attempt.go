package stage

import "context"

type attemptKey struct{}

// Attempt locates a stage execution inside its retry budget.
type Attempt struct {
	Number int
	Budget int
}

// WithAttempt annotates the context the retry loop passes into Execute.
func WithAttempt(ctx context.Context, number, budget int) context.Context {
	return context.WithValue(ctx, attemptKey{}, Attempt{Number: number, Budget: budget})
}

// AttemptFromContext returns the attempt annotation, if present.
func AttemptFromContext(ctx context.Context) (Attempt, bool) {
	info, ok := ctx.Value(attemptKey{}).(Attempt)
	return info, ok
}

// LastAttempt reports whether no retries remain after this execution.
// Unavailable upstreams are retried like any transient failure; a stage may
// only switch to its degraded fallback once this returns true. A context
// without the annotation counts as the last attempt, so callers outside the
// retry loop get a single attempt and then the fallback.
func LastAttempt(ctx context.Context) bool {
	info, ok := AttemptFromContext(ctx)
	if !ok {
		return true
	}
	return info.Number >= info.Budget
}
