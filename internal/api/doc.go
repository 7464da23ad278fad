// Package api is the service layer between the HTTP daemon, the CLI, and the
// request tracker. It owns the transport-friendly views of content requests
// and enforces the submission contract: callers always receive stable error
// codes, never raw upstream provider text.
package api
