package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SubmitRequest is the submission payload accepted by the daemon.
type SubmitRequest struct {
	CorrelationID       string `json:"correlationId"`
	TopicRef            string `json:"topicRef"`
	PersonalizationRef  string `json:"personalizationRef,omitempty"`
	Style               string `json:"style,omitempty"`
	ClarificationAnswer string `json:"clarificationAnswer,omitempty"`
}

// SubmitResponse reports the request a submission resolved to. Created is
// false when the correlation ID had been seen before.
type SubmitResponse struct {
	Request RequestView `json:"request"`
	Created bool        `json:"created"`
}

// RequestView describes a content request in a transport-friendly format.
type RequestView struct {
	ID                  string             `json:"id"`
	CorrelationID       string             `json:"correlationId"`
	TopicRef            string             `json:"topicRef"`
	Style               string             `json:"style"`
	Status              string             `json:"status"`
	Stage               string             `json:"stage,omitempty"`
	StageLabel          string             `json:"stageLabel,omitempty"`
	Progress            int                `json:"progress"`
	RetryCount          int                `json:"retryCount"`
	Degraded            bool               `json:"degraded"`
	ResolvedTitle       string             `json:"resolvedTitle,omitempty"`
	ScriptRef           string             `json:"scriptRef,omitempty"`
	AudioRef            string             `json:"audioRef,omitempty"`
	VideoRef            string             `json:"videoRef,omitempty"`
	ArtifactFingerprint string             `json:"artifactFingerprint,omitempty"`
	Clarification       *ClarificationView `json:"clarification,omitempty"`
	Error               *ErrorView         `json:"error,omitempty"`
	CreatedAt           string             `json:"createdAt,omitempty"`
	UpdatedAt           string             `json:"updatedAt,omitempty"`
	CompletedAt         string             `json:"completedAt,omitempty"`
}

// ClarificationView carries the questions a parked request is waiting on.
type ClarificationView struct {
	Questions []string `json:"questions"`
	Reason    string   `json:"reason,omitempty"`
}

// ErrorView is the failure detail surfaced to callers. Code and class are
// stable vocabulary; the message is generated from the code so provider
// error text never leaks through the API.
type ErrorView struct {
	Stage   string `json:"stage"`
	Code    string `json:"code"`
	Class   string `json:"class"`
	Message string `json:"message"`
}

// RequestListResponse wraps queue listings.
type RequestListResponse struct {
	Requests []RequestView `json:"requests"`
}

// RequestResponse wraps a single request lookup.
type RequestResponse struct {
	Request RequestView `json:"request"`
}

// StageHealthView mirrors readiness reporting for pipeline stages.
type StageHealthView struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// StatusResponse summarizes daemon and pipeline state.
type StatusResponse struct {
	Running     bool              `json:"running"`
	Ready       bool              `json:"ready"`
	Workers     int               `json:"workers"`
	QueueStats  map[string]int    `json:"queueStats"`
	StageHealth []StageHealthView `json:"stageHealth"`
}

// RetryResponse reports how many failed requests were requeued.
type RetryResponse struct {
	Requeued int `json:"requeued"`
}

// ClearResponse reports how many completed requests were removed.
type ClearResponse struct {
	Removed int `json:"removed"`
}

// ErrorResponse is the API error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
