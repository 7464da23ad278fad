// Package tracker persists content requests in SQLite and exposes helpers
// for driving their lifecycle.
//
// The Store is both the durable request record and the queue transport.
// Submission is idempotent on correlation ID, status moves go through
// optimistic conditional updates that reject stale writers, and workers
// claim requests through leases renewed by heartbeats. A lease that stops
// heartbeating is reclaimed and the request resumes from its persisted
// status, so a crash never restarts a pipeline from the beginning.
//
// Every stage attempt and guardrail verdict lands in an append-only audit
// trail alongside the request row.
//
// Treat this package as the single source of truth for lifecycle semantics;
// when you add new statuses or fields, update schema.sql and bump
// schemaVersion.
package tracker
