// Package daemon runs the vividly background service: it enforces
// single-instance execution with a lock file, starts the workflow manager,
// and serves the HTTP API that intake callers submit to and poll.
package daemon
