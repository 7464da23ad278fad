package api_test

import (
	"context"
	"errors"
	"testing"

	"vividly/internal/api"
	"vividly/internal/testsupport"
	"vividly/internal/tracker"
)

func TestRequestServiceSubmitCreatesRequest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewRequestService(store)

	response, err := svc.Submit(context.Background(), api.SubmitRequest{
		CorrelationID: "corr-1",
		TopicRef:      "photosynthesis",
		Style:         "text_and_video",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !response.Created {
		t.Fatal("expected created submission")
	}
	if response.Request.Status != string(tracker.StatusPending) {
		t.Fatalf("expected pending, got %s", response.Request.Status)
	}
	if response.Request.ID == "" {
		t.Fatal("expected request ID")
	}

	repeat, err := svc.Submit(context.Background(), api.SubmitRequest{
		CorrelationID: "corr-1",
		TopicRef:      "photosynthesis",
		Style:         "text_and_video",
	})
	if err != nil {
		t.Fatalf("repeat Submit: %v", err)
	}
	if repeat.Created {
		t.Fatal("repeat submission must not create a new request")
	}
	if repeat.Request.ID != response.Request.ID {
		t.Fatalf("repeat returned %s, expected %s", repeat.Request.ID, response.Request.ID)
	}
}

func TestRequestServiceSubmitValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewRequestService(store)

	cases := []struct {
		name    string
		payload api.SubmitRequest
	}{
		{"missing correlation", api.SubmitRequest{TopicRef: "x"}},
		{"missing topic", api.SubmitRequest{CorrelationID: "c"}},
		{"unknown style", api.SubmitRequest{CorrelationID: "c", TopicRef: "x", Style: "hologram"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Submit(context.Background(), tc.payload); !errors.Is(err, api.ErrInvalidSubmission) {
				t.Fatalf("expected ErrInvalidSubmission, got %v", err)
			}
		})
	}
}

func TestRequestServiceSubmitDefaultsStyle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewRequestService(store)

	response, err := svc.Submit(context.Background(), api.SubmitRequest{
		CorrelationID: "corr-default",
		TopicRef:      "volcanoes",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if response.Request.Style != string(tracker.StyleTextAndVideo) {
		t.Fatalf("expected default style, got %s", response.Request.Style)
	}
}

func TestRequestServiceDescribeFallsBackToCorrelationID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewRequestService(store)
	submitted := testsupport.MustSubmit(t, store, "corr-describe", "rivers")

	byID, err := svc.Describe(context.Background(), submitted.ID)
	if err != nil {
		t.Fatalf("Describe by ID: %v", err)
	}
	if byID == nil || byID.ID != submitted.ID {
		t.Fatalf("unexpected describe result %+v", byID)
	}

	byCorr, err := svc.Describe(context.Background(), "corr-describe")
	if err != nil {
		t.Fatalf("Describe by correlation: %v", err)
	}
	if byCorr == nil || byCorr.ID != submitted.ID {
		t.Fatalf("unexpected describe result %+v", byCorr)
	}

	missing, err := svc.Describe(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Describe missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id, got %+v", missing)
	}
}

func TestRequestServiceListAndMaintenance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewRequestService(store)

	first := testsupport.MustSubmit(t, store, "corr-a", "rivers")
	second := testsupport.MustSubmit(t, store, "corr-b", "glaciers")
	testsupport.AdvanceTo(t, store, first.ID, tracker.StatusCompleted)

	views, err := svc.List(context.Background(), tracker.StatusPending)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 1 || views[0].ID != second.ID {
		t.Fatalf("unexpected pending list %+v", views)
	}

	cleared, err := svc.ClearCompleted(context.Background())
	if err != nil {
		t.Fatalf("ClearCompleted: %v", err)
	}
	if cleared.Removed != 1 {
		t.Fatalf("expected 1 removed, got %d", cleared.Removed)
	}
}
