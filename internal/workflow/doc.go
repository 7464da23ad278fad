// Package workflow advances content requests through the generation
// pipeline.
//
// The Manager runs a fixed pool of workers. Each worker claims a leased
// request from the tracker, then drives it through the state machine until it
// reaches a terminal state or parks for clarification: pending requests are
// validated, checked against the artifact cache, and fed through the script,
// audio, and video processors that the request's style asks for. A heartbeat
// goroutine keeps the lease fresh while a stage runs, and a reclaimer clears
// leases whose heartbeats have gone stale so an interrupted request resumes
// at the stage it was persisted in.
//
// Retry policy lives here: every stage attempt runs under the retry
// combinator with the configured bound and backoff, and every attempt is
// recorded in the append-only stage event log. Stage processors only execute
// and classify; the manager decides what a result or failure means for the
// request's status.
//
// Add new lifecycle stages by extending StageSet, updating the tracker status
// enums, and teaching the manager how to transition requests; this package is
// the authoritative home for that coordination logic.
package workflow
