package tracker

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status represents the lifecycle of a content request.
type Status string

const (
	StatusPending             Status = "pending"
	StatusValidating          Status = "validating"
	StatusCacheCheck          Status = "cache_check"
	StatusGeneratingScript    Status = "generating_script"
	StatusGeneratingAudio     Status = "generating_audio"
	StatusGeneratingVideo     Status = "generating_video"
	StatusCompleted           Status = "completed"
	StatusFailed              Status = "failed"
	StatusBlocked             Status = "blocked"
	StatusClarificationNeeded Status = "clarification_needed"
)

var allStatuses = []Status{
	StatusPending,
	StatusValidating,
	StatusCacheCheck,
	StatusGeneratingScript,
	StatusGeneratingAudio,
	StatusGeneratingVideo,
	StatusCompleted,
	StatusFailed,
	StatusBlocked,
	StatusClarificationNeeded,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// processingStatuses are the states a worker holds a lease through.
var processingStatuses = map[Status]struct{}{
	StatusValidating:       {},
	StatusCacheCheck:       {},
	StatusGeneratingScript: {},
	StatusGeneratingAudio:  {},
	StatusGeneratingVideo:  {},
}

// transitions is the full state machine. Every persisted move must appear
// here; the store rejects anything else.
var transitions = map[Status][]Status{
	StatusPending:    {StatusValidating},
	StatusValidating: {StatusCacheCheck, StatusClarificationNeeded, StatusFailed, StatusBlocked},
	StatusCacheCheck: {StatusGeneratingScript, StatusCompleted, StatusFailed},
	StatusGeneratingScript: {
		StatusGeneratingAudio, StatusGeneratingVideo, StatusCompleted, StatusFailed, StatusBlocked,
	},
	StatusGeneratingAudio:     {StatusGeneratingVideo, StatusCompleted, StatusFailed, StatusBlocked},
	StatusGeneratingVideo:     {StatusCompleted, StatusFailed, StatusBlocked},
	StatusClarificationNeeded: {StatusValidating},
}

// statusProgress maps each state to the coarse progress indicator surfaced
// to pollers.
var statusProgress = map[Status]int{
	StatusPending:             0,
	StatusValidating:          10,
	StatusClarificationNeeded: 10,
	StatusCacheCheck:          20,
	StatusGeneratingScript:    40,
	StatusGeneratingAudio:     60,
	StatusGeneratingVideo:     80,
	StatusCompleted:           100,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether the status ends a request's lifecycle.
// clarification_needed is deliberately non-terminal: it awaits a follow-up
// submission and is neither a success nor a failure.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusBlocked:
		return true
	default:
		return false
	}
}

// IsProcessing reports whether a status reflects an in-flight stage.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// CanTransition reports whether the state machine permits from -> to.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Progress returns the progress indicator for a status. Terminal failure
// states report the caller-recorded value, so they return -1 here.
func Progress(status Status) int {
	if p, ok := statusProgress[status]; ok {
		return p
	}
	return -1
}

var titleCaser = cases.Title(language.English)

// StageLabel renders a status as a human-readable stage label.
func StageLabel(status Status) string {
	if status == "" {
		return ""
	}
	return titleCaser.String(strings.ReplaceAll(string(status), "_", " "))
}

// Style describes which modalities a request wants generated.
type Style string

const (
	StyleTextOnly     Style = "text_only"
	StyleTextAndAudio Style = "text_and_audio"
	StyleTextAndVideo Style = "text_and_video"
)

// ParseStyle converts a string into a known Style.
func ParseStyle(value string) (Style, bool) {
	normalized := Style(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case StyleTextOnly, StyleTextAndAudio, StyleTextAndVideo:
		return normalized, true
	default:
		return "", false
	}
}

// WantsAudio reports whether the audio stage runs for this style.
func (s Style) WantsAudio() bool {
	return s == StyleTextAndAudio || s == StyleTextAndVideo
}

// WantsVideo reports whether the video stage runs for this style.
func (s Style) WantsVideo() bool {
	return s == StyleTextAndVideo
}

// Request represents a content request persisted in SQLite.
type Request struct {
	ID                  string
	CorrelationID       string
	TopicRef            string
	PersonalizationRef  string
	Style               Style
	Status              Status
	Stage               string
	Progress            int
	RetryCount          int
	ErrorStage          string
	ErrorCode           string
	ErrorClass          string
	ErrorMessage        string
	ResolvedTopic       string
	ResolvedTitle       string
	ScriptRef           string
	AudioRef            string
	VideoRef            string
	ArtifactFingerprint string
	Degraded            bool
	ClarificationJSON   string
	ClarificationAnswer string
	LeaseOwner          string
	LastHeartbeat       *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	CompletedAt         *time.Time
}

// SetError records failure detail without deciding the terminal status.
func (r *Request) SetError(stage, code, class, message string) {
	r.ErrorStage = stage
	r.ErrorCode = code
	r.ErrorClass = class
	r.ErrorMessage = message
}

// ClearError resets failure detail when a stage recovers.
func (r *Request) ClearError() {
	r.ErrorStage = ""
	r.ErrorCode = ""
	r.ErrorClass = ""
	r.ErrorMessage = ""
}

// EventOutcome classifies a stage attempt in the audit log.
type EventOutcome string

const (
	OutcomeSuccess            EventOutcome = "success"
	OutcomeRetry              EventOutcome = "retry"
	OutcomeFailure            EventOutcome = "failure"
	OutcomeGuardrailViolation EventOutcome = "guardrail_violation"
	OutcomeClarification      EventOutcome = "clarification"
	OutcomeCacheHit           EventOutcome = "cache_hit"
	OutcomeSkipped            EventOutcome = "skipped"
	OutcomeDegraded           EventOutcome = "degraded"
)

// StageEvent is one append-only audit entry for a stage attempt.
type StageEvent struct {
	ID        int64
	RequestID string
	Stage     string
	Attempt   int
	Outcome   EventOutcome
	Detail    string
	CreatedAt time.Time
}

// VerdictRecord is a guardrail verdict attached to a stage event.
type VerdictRecord struct {
	ID           int64
	EventID      int64
	Checkpoint   string
	Subject      string
	Outcome      string
	MatchedRules []string
	Confidence   float64
}

// HealthSummary describes aggregated request counts per key lifecycle state.
type HealthSummary struct {
	Total         int
	Pending       int
	Processing    int
	Completed     int
	Failed        int
	Blocked       int
	Clarification int
}
