// Package notifications delivers pipeline milestones via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Events cover the
// terminal outcomes of a content request plus the parked clarification state,
// so the workflow manager can announce outcomes without duplicating HTTP glue.
//
// Notification failures are reported to the caller but never affect request
// state; the workflow logs and moves on.
package notifications
