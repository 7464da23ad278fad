package guardrail

import (
	"context"
	"strings"
)

// Outcome is the result severity of a checkpoint evaluation.
type Outcome string

const (
	OutcomePass  Outcome = "pass"
	OutcomeFlag  Outcome = "flag"
	OutcomeBlock Outcome = "block"
)

// Subject identifies which pipeline boundary a checkpoint evaluated.
type Subject string

const (
	SubjectInput      Subject = "input"
	SubjectGeneration Subject = "generation"
	SubjectOutput     Subject = "output"
)

// Verdict is the result of a single checkpoint evaluation.
type Verdict struct {
	Checkpoint   string
	Subject      Subject
	Outcome      Outcome
	MatchedRules []string
	Confidence   float64
}

// Blocked reports whether the verdict forces a terminal blocked state.
func (v Verdict) Blocked() bool { return v.Outcome == OutcomeBlock }

// Severity orders outcomes: block > flag > pass.
func Severity(outcome Outcome) int {
	switch outcome {
	case OutcomeBlock:
		return 2
	case OutcomeFlag:
		return 1
	default:
		return 0
	}
}

// Checkpoint evaluates a payload at a pipeline boundary. Implementations must
// be pure functions of their input.
type Checkpoint interface {
	Name() string
	Evaluate(ctx context.Context, subject Subject, text string) Verdict
}

// Chain evaluates checkpoints in order and returns every verdict plus the
// most severe one. An empty chain passes everything.
type Chain []Checkpoint

// Evaluate runs the full chain. The winning verdict is the first one carrying
// the highest severity.
func (c Chain) Evaluate(ctx context.Context, subject Subject, text string) (Verdict, []Verdict) {
	winner := Verdict{Checkpoint: "none", Subject: subject, Outcome: OutcomePass}
	if len(c) == 0 {
		return winner, nil
	}
	verdicts := make([]Verdict, 0, len(c))
	for i, checkpoint := range c {
		verdict := checkpoint.Evaluate(ctx, subject, text)
		verdicts = append(verdicts, verdict)
		if i == 0 || Severity(verdict.Outcome) > Severity(winner.Outcome) {
			winner = verdict
		}
	}
	return winner, verdicts
}

// KeywordCheckpoint matches configured terms against lowercased payload text.
// Blocked terms win over flagged terms.
type KeywordCheckpoint struct {
	CheckpointName string
	BlockedTerms   []string
	FlaggedTerms   []string
}

func (k KeywordCheckpoint) Name() string {
	if k.CheckpointName == "" {
		return "keyword"
	}
	return k.CheckpointName
}

func (k KeywordCheckpoint) Evaluate(_ context.Context, subject Subject, text string) Verdict {
	lowered := strings.ToLower(text)
	verdict := Verdict{Checkpoint: k.Name(), Subject: subject, Outcome: OutcomePass, Confidence: 1}

	if matched := matchTerms(lowered, k.BlockedTerms); len(matched) > 0 {
		verdict.Outcome = OutcomeBlock
		verdict.MatchedRules = matched
		return verdict
	}
	if matched := matchTerms(lowered, k.FlaggedTerms); len(matched) > 0 {
		verdict.Outcome = OutcomeFlag
		verdict.MatchedRules = matched
	}
	return verdict
}

func matchTerms(lowered string, terms []string) []string {
	var matched []string
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lowered, term) {
			matched = append(matched, term)
		}
	}
	return matched
}

// Policy decides whether a flag verdict escalates to a block for a given
// stage. Escalation stages come from configuration.
type Policy struct {
	escalate map[string]struct{}
}

// NewPolicy builds a Policy from the configured stage names.
func NewPolicy(escalateStages []string) Policy {
	set := make(map[string]struct{}, len(escalateStages))
	for _, stage := range escalateStages {
		trimmed := strings.ToLower(strings.TrimSpace(stage))
		if trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return Policy{escalate: set}
}

// Apply escalates flag verdicts to block for stages named in the policy.
func (p Policy) Apply(stage string, verdict Verdict) Verdict {
	if verdict.Outcome != OutcomeFlag {
		return verdict
	}
	if _, ok := p.escalate[strings.ToLower(strings.TrimSpace(stage))]; ok {
		verdict.Outcome = OutcomeBlock
	}
	return verdict
}
