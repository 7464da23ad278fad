package artifact

import (
	"strings"
	"time"
)

// Artifact is a finished generation product keyed by input fingerprint.
// Script, audio, and video references point into the blob store; audio and
// video are empty when the requested style did not produce them.
type Artifact struct {
	Fingerprint string
	TopicRef    string
	Style       string
	ScriptRef   string
	AudioRef    string
	VideoRef    string
	Degraded    bool
	CreatedAt   time.Time
}

// Valid reports whether the artifact carries the minimum references to be
// served from cache.
func (a Artifact) Valid() bool {
	return strings.TrimSpace(a.Fingerprint) != "" && strings.TrimSpace(a.ScriptRef) != ""
}
