package tracker_test

import (
	"testing"

	"vividly/internal/tracker"
)

func TestStatusTerminal(t *testing.T) {
	terminal := []tracker.Status{tracker.StatusCompleted, tracker.StatusFailed, tracker.StatusBlocked}
	for _, status := range terminal {
		if !status.Terminal() {
			t.Errorf("%s should be terminal", status)
		}
	}

	if tracker.StatusClarificationNeeded.Terminal() {
		t.Error("clarification_needed must not be terminal")
	}
	if tracker.StatusGeneratingAudio.Terminal() {
		t.Error("generating_audio must not be terminal")
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to tracker.Status
		want     bool
	}{
		{tracker.StatusPending, tracker.StatusValidating, true},
		{tracker.StatusValidating, tracker.StatusClarificationNeeded, true},
		{tracker.StatusClarificationNeeded, tracker.StatusValidating, true},
		{tracker.StatusCacheCheck, tracker.StatusCompleted, true},
		{tracker.StatusGeneratingScript, tracker.StatusGeneratingVideo, true},
		{tracker.StatusGeneratingScript, tracker.StatusCompleted, true},
		{tracker.StatusGeneratingVideo, tracker.StatusBlocked, true},
		{tracker.StatusPending, tracker.StatusCompleted, false},
		{tracker.StatusCompleted, tracker.StatusPending, false},
		{tracker.StatusFailed, tracker.StatusValidating, false},
		{tracker.StatusGeneratingVideo, tracker.StatusGeneratingScript, false},
	}
	for _, tc := range cases {
		if got := tracker.CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := tracker.ParseStatus("  Generating_Script "); !ok || status != tracker.StatusGeneratingScript {
		t.Fatalf("expected generating_script, got %q ok=%v", status, ok)
	}
	if _, ok := tracker.ParseStatus("reticulating"); ok {
		t.Fatal("unknown status must not parse")
	}
}

func TestStyleModalities(t *testing.T) {
	if tracker.StyleTextOnly.WantsAudio() || tracker.StyleTextOnly.WantsVideo() {
		t.Error("text_only wants no audio or video")
	}
	if !tracker.StyleTextAndAudio.WantsAudio() || tracker.StyleTextAndAudio.WantsVideo() {
		t.Error("text_and_audio wants audio only")
	}
	if !tracker.StyleTextAndVideo.WantsAudio() || !tracker.StyleTextAndVideo.WantsVideo() {
		t.Error("text_and_video wants audio and video")
	}
}

func TestStageLabel(t *testing.T) {
	if got := tracker.StageLabel(tracker.StatusGeneratingScript); got != "Generating Script" {
		t.Errorf("unexpected label %q", got)
	}
	if got := tracker.StageLabel(""); got != "" {
		t.Errorf("expected empty label, got %q", got)
	}
}
