package guardrail_test

import (
	"context"
	"testing"

	"vividly/internal/guardrail"
)

func TestKeywordCheckpointOutcomes(t *testing.T) {
	checkpoint := guardrail.KeywordCheckpoint{
		CheckpointName: "keywords",
		BlockedTerms:   []string{"explosives"},
		FlaggedTerms:   []string{"medication"},
	}

	cases := []struct {
		name string
		text string
		want guardrail.Outcome
	}{
		{"clean", "photosynthesis in plants", guardrail.OutcomePass},
		{"flagged", "dosage of Medication schedules", guardrail.OutcomeFlag},
		{"blocked", "how to make EXPLOSIVES at home", guardrail.OutcomeBlock},
		{"block beats flag", "medication and explosives", guardrail.OutcomeBlock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict := checkpoint.Evaluate(context.Background(), guardrail.SubjectInput, tc.text)
			if verdict.Outcome != tc.want {
				t.Fatalf("outcome = %s, want %s", verdict.Outcome, tc.want)
			}
			if tc.want != guardrail.OutcomePass && len(verdict.MatchedRules) == 0 {
				t.Fatal("expected matched rules to be recorded")
			}
		})
	}
}

type fixedCheckpoint struct {
	name    string
	outcome guardrail.Outcome
}

func (f fixedCheckpoint) Name() string { return f.name }

func (f fixedCheckpoint) Evaluate(_ context.Context, subject guardrail.Subject, _ string) guardrail.Verdict {
	return guardrail.Verdict{Checkpoint: f.name, Subject: subject, Outcome: f.outcome}
}

func TestChainMostSevereWins(t *testing.T) {
	chain := guardrail.Chain{
		fixedCheckpoint{"a", guardrail.OutcomePass},
		fixedCheckpoint{"b", guardrail.OutcomeBlock},
		fixedCheckpoint{"c", guardrail.OutcomeFlag},
	}
	winner, verdicts := chain.Evaluate(context.Background(), guardrail.SubjectOutput, "text")
	if winner.Outcome != guardrail.OutcomeBlock || winner.Checkpoint != "b" {
		t.Fatalf("expected block from b, got %+v", winner)
	}
	if len(verdicts) != 3 {
		t.Fatalf("expected all verdicts recorded, got %d", len(verdicts))
	}
}

func TestEmptyChainPasses(t *testing.T) {
	winner, verdicts := guardrail.Chain{}.Evaluate(context.Background(), guardrail.SubjectInput, "anything")
	if winner.Outcome != guardrail.OutcomePass {
		t.Fatalf("empty chain must pass, got %s", winner.Outcome)
	}
	if verdicts != nil {
		t.Fatal("empty chain must record no verdicts")
	}
}

func TestPolicyEscalation(t *testing.T) {
	policy := guardrail.NewPolicy([]string{"generating_script"})

	flagged := guardrail.Verdict{Outcome: guardrail.OutcomeFlag}
	if got := policy.Apply("generating_script", flagged); got.Outcome != guardrail.OutcomeBlock {
		t.Fatalf("expected escalation to block, got %s", got.Outcome)
	}
	if got := policy.Apply("generating_audio", flagged); got.Outcome != guardrail.OutcomeFlag {
		t.Fatalf("expected flag preserved for other stages, got %s", got.Outcome)
	}
	pass := guardrail.Verdict{Outcome: guardrail.OutcomePass}
	if got := policy.Apply("generating_script", pass); got.Outcome != guardrail.OutcomePass {
		t.Fatal("pass must never escalate")
	}
}
