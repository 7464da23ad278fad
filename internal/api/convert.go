package api

import (
	"encoding/json"
	"strings"
	"time"

	"vividly/internal/tracker"
)

// errorMessages maps stable failure codes to the caller-facing text. Raw
// upstream provider errors stay in the tracker; the API only ever speaks
// this vocabulary.
var errorMessages = map[string]string{
	"invalid_request":      "the request input was invalid or unsupported",
	"configuration_error":  "the pipeline is misconfigured; contact the operator",
	"upstream_unavailable": "a generation capability was unavailable",
	"permanent_failure":    "generation failed and will not succeed on retry",
	"retries_exhausted":    "generation failed after repeated retries",
	"guardrail_block":      "the request was blocked by content policy",
}

// FromRequest converts a tracker request into its API view.
func FromRequest(request *tracker.Request) RequestView {
	if request == nil {
		return RequestView{}
	}
	view := RequestView{
		ID:                  request.ID,
		CorrelationID:       request.CorrelationID,
		TopicRef:            request.TopicRef,
		Style:               string(request.Style),
		Status:              string(request.Status),
		Stage:               request.Stage,
		StageLabel:          tracker.StageLabel(request.Status),
		Progress:            request.Progress,
		RetryCount:          request.RetryCount,
		Degraded:            request.Degraded,
		ResolvedTitle:       request.ResolvedTitle,
		ScriptRef:           request.ScriptRef,
		AudioRef:            request.AudioRef,
		VideoRef:            request.VideoRef,
		ArtifactFingerprint: request.ArtifactFingerprint,
		Clarification:       clarificationView(request),
		Error:               errorView(request),
		CreatedAt:           formatTime(request.CreatedAt),
		UpdatedAt:           formatTime(request.UpdatedAt),
	}
	if request.CompletedAt != nil {
		view.CompletedAt = formatTime(*request.CompletedAt)
	}
	return view
}

// FromRequests converts a list of tracker requests.
func FromRequests(requests []*tracker.Request) []RequestView {
	views := make([]RequestView, 0, len(requests))
	for _, request := range requests {
		views = append(views, FromRequest(request))
	}
	return views
}

// FromStageHealth converts workflow stage health records.
func FromStageHealth(name string, ready bool, detail string) StageHealthView {
	return StageHealthView{Name: name, Ready: ready, Detail: detail}
}

// MergeQueueStats flattens a health summary into the status payload map.
func MergeQueueStats(summary tracker.HealthSummary) map[string]int {
	return map[string]int{
		"total":                summary.Total,
		"pending":              summary.Pending,
		"processing":           summary.Processing,
		"completed":            summary.Completed,
		"failed":               summary.Failed,
		"blocked":              summary.Blocked,
		"clarification_needed": summary.Clarification,
	}
}

func clarificationView(request *tracker.Request) *ClarificationView {
	payload := strings.TrimSpace(request.ClarificationJSON)
	if request.Status != tracker.StatusClarificationNeeded || payload == "" {
		return nil
	}
	var parsed struct {
		Questions []string `json:"questions"`
		Reason    string   `json:"reason"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return &ClarificationView{Questions: []string{"please restate the request with more detail"}}
	}
	return &ClarificationView{Questions: parsed.Questions, Reason: parsed.Reason}
}

func errorView(request *tracker.Request) *ErrorView {
	code := strings.TrimSpace(request.ErrorCode)
	if code == "" {
		return nil
	}
	message, ok := errorMessages[code]
	if !ok {
		message = "generation failed"
	}
	return &ErrorView{
		Stage:   request.ErrorStage,
		Code:    code,
		Class:   request.ErrorClass,
		Message: message,
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(dateTimeFormat)
}
