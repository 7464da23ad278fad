package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying: rate limits, timeouts,
	// momentary upstream errors.
	ErrTransient = errors.New("transient failure")
	// ErrUnavailable marks an upstream capability that is entirely down.
	// Still transient for retry purposes, but it is the trigger for
	// degraded-mode fallback once retries are exhausted.
	ErrUnavailable = errors.New("upstream unavailable")
	// ErrPermanent marks failures that will not succeed on retry.
	ErrPermanent = errors.New("permanent failure")
	// ErrValidation marks invalid or unsupported request input.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or unusable configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Class partitions stage errors for the retry policy.
type Class string

const (
	ClassTransient   Class = "transient"
	ClassUnavailable Class = "unavailable"
	ClassPermanent   Class = "permanent"
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps a stage error to its retry class. Unknown errors are treated
// as transient so a programming oversight degrades to extra retries rather
// than a spurious permanent failure. Context cancellation is surfaced as
// transient; the worker loop recognizes it separately.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassTransient
	case errors.Is(err, ErrPermanent), errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return ClassPermanent
	case errors.Is(err, ErrUnavailable):
		return ClassUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTransient
	default:
		return ClassTransient
	}
}

// IsRetryable reports whether the retry combinator should attempt again.
func IsRetryable(err error) bool {
	return Classify(err) != ClassPermanent
}

// Message extracts the human-oriented portion of a wrapped stage error,
// stripping the sentinel prefix so callers never surface raw marker text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range []error{ErrTransient, ErrUnavailable, ErrPermanent, ErrValidation, ErrConfiguration} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(msg, prefix))
		}
	}
	return strings.TrimSpace(msg)
}

// MarkerForHTTPStatus maps an upstream HTTP status to the sentinel used for
// retry classification. Service-down statuses map to ErrUnavailable so the
// degraded-mode fallback can distinguish an absent capability from a flaky
// one.
func MarkerForHTTPStatus(status int) error {
	switch {
	case status == 502, status == 503, status == 504:
		return ErrUnavailable
	case status == 408, status == 429, status >= 500:
		return ErrTransient
	case status >= 400:
		return ErrPermanent
	default:
		return ErrTransient
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
