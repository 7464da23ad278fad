// Package fingerprint computes the deterministic cache key for a content
// request. The same normalized submission tuple (topic, personalization,
// clarification answer, style) always yields the same fingerprint, which is
// what makes the artifact cache a safe dedup key across independent requests
// from different users. The key deliberately covers only submitted inputs;
// derived values like the resolved topic are excluded so nondeterministic
// resolution cannot split identical requests across cache entries.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var folder = cases.Fold()

// Inputs is the semantic identity of a content request.
type Inputs struct {
	TopicRef            string
	PersonalizationRef  string
	ClarificationAnswer string
	Style               string
}

// Normalize trims and case-folds every field.
func (in Inputs) Normalize() Inputs {
	return Inputs{
		TopicRef:            normalizeField(in.TopicRef),
		PersonalizationRef:  normalizeField(in.PersonalizationRef),
		ClarificationAnswer: normalizeField(in.ClarificationAnswer),
		Style:               normalizeField(in.Style),
	}
}

// Compute returns the hex fingerprint of the normalized inputs. Fields are
// encoded as sorted key/value pairs so the result does not depend on field
// ordering.
func Compute(in Inputs) string {
	normalized := in.Normalize()
	pairs := []string{
		"clarification=" + normalized.ClarificationAnswer,
		"personalization=" + normalized.PersonalizationRef,
		"style=" + normalized.Style,
		"topic=" + normalized.TopicRef,
	}
	sort.Strings(pairs)

	h := sha256.New()
	for _, pair := range pairs {
		h.Write([]byte(pair))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func normalizeField(value string) string {
	return folder.String(strings.Join(strings.Fields(strings.TrimSpace(value)), " "))
}

// Title renders a normalized reference as a display title.
func Title(value string) string {
	return cases.Title(language.English).String(strings.TrimSpace(value))
}
