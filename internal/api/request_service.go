package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vividly/internal/tracker"
)

// ErrInvalidSubmission marks a submission rejected before it reached the
// tracker.
var ErrInvalidSubmission = errors.New("invalid submission")

// RequestStore abstracts the tracker operations the service layer needs.
type RequestStore interface {
	Submit(ctx context.Context, params tracker.SubmitParams) (*tracker.Request, bool, error)
	GetByID(ctx context.Context, id string) (*tracker.Request, error)
	GetByCorrelationID(ctx context.Context, correlationID string) (*tracker.Request, error)
	List(ctx context.Context, statuses ...tracker.Status) ([]*tracker.Request, error)
	RetryFailed(ctx context.Context, ids ...string) (int, error)
	ClearCompleted(ctx context.Context) (int, error)
}

// RequestService exposes submission and read operations returning API DTOs.
type RequestService struct {
	store RequestStore
}

// NewRequestService constructs a RequestService around the provided store.
func NewRequestService(store RequestStore) *RequestService {
	if store == nil {
		return nil
	}
	return &RequestService{store: store}
}

// Submit validates and records a content request. Re-submission with a seen
// correlation ID returns the existing request; Created reports which case
// occurred.
func (s *RequestService) Submit(ctx context.Context, payload SubmitRequest) (SubmitResponse, error) {
	if s == nil || s.store == nil {
		return SubmitResponse{}, errors.New("request service unavailable")
	}

	correlationID := strings.TrimSpace(payload.CorrelationID)
	if correlationID == "" {
		return SubmitResponse{}, fmt.Errorf("%w: correlationId is required", ErrInvalidSubmission)
	}
	topicRef := strings.TrimSpace(payload.TopicRef)
	if topicRef == "" {
		return SubmitResponse{}, fmt.Errorf("%w: topicRef is required", ErrInvalidSubmission)
	}
	styleValue := strings.TrimSpace(payload.Style)
	if styleValue == "" {
		styleValue = string(tracker.StyleTextAndVideo)
	}
	style, ok := tracker.ParseStyle(styleValue)
	if !ok {
		return SubmitResponse{}, fmt.Errorf("%w: unknown style %q", ErrInvalidSubmission, payload.Style)
	}

	request, created, err := s.store.Submit(ctx, tracker.SubmitParams{
		CorrelationID:       correlationID,
		TopicRef:            topicRef,
		PersonalizationRef:  strings.TrimSpace(payload.PersonalizationRef),
		Style:               style,
		ClarificationAnswer: strings.TrimSpace(payload.ClarificationAnswer),
	})
	if err != nil {
		return SubmitResponse{}, err
	}
	return SubmitResponse{Request: FromRequest(request), Created: created}, nil
}

// Describe fetches a single request by ID, falling back to correlation ID so
// callers can poll with whichever identifier they hold.
func (s *RequestService) Describe(ctx context.Context, id string) (*RequestView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	request, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		request, err = s.store.GetByCorrelationID(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	if request == nil {
		return nil, nil
	}
	view := FromRequest(request)
	return &view, nil
}

// List returns requests filtered by status.
func (s *RequestService) List(ctx context.Context, statuses ...tracker.Status) ([]RequestView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	requests, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromRequests(requests), nil
}

// RetryFailed resets failed requests back to pending. With no IDs, every
// failed request is requeued.
func (s *RequestService) RetryFailed(ctx context.Context, ids ...string) (RetryResponse, error) {
	if s == nil || s.store == nil {
		return RetryResponse{}, nil
	}
	requeued, err := s.store.RetryFailed(ctx, ids...)
	if err != nil {
		return RetryResponse{}, err
	}
	return RetryResponse{Requeued: requeued}, nil
}

// ClearCompleted removes completed requests from the tracker.
func (s *RequestService) ClearCompleted(ctx context.Context) (ClearResponse, error) {
	if s == nil || s.store == nil {
		return ClearResponse{}, nil
	}
	removed, err := s.store.ClearCompleted(ctx)
	if err != nil {
		return ClearResponse{}, err
	}
	return ClearResponse{Removed: removed}, nil
}
