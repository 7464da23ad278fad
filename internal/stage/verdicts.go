package stage

import (
	"vividly/internal/guardrail"
	"vividly/internal/tracker"
)

// RecordVerdicts converts checkpoint verdicts into audit-trail records.
func RecordVerdicts(verdicts []guardrail.Verdict) []tracker.VerdictRecord {
	if len(verdicts) == 0 {
		return nil
	}
	records := make([]tracker.VerdictRecord, 0, len(verdicts))
	for _, verdict := range verdicts {
		records = append(records, tracker.VerdictRecord{
			Checkpoint:   verdict.Checkpoint,
			Subject:      string(verdict.Subject),
			Outcome:      string(verdict.Outcome),
			MatchedRules: verdict.MatchedRules,
			Confidence:   verdict.Confidence,
		})
	}
	return records
}
