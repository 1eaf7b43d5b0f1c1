// Package extraction derives structured project facts from free-form chat
// utterances. Extraction is a bounded, deterministic pattern-matching
// procedure: an ordered rule list is evaluated per turn with first-match-wins
// semantics per field, and a field already known is never overwritten.
package extraction

import (
	"github.com/draftforge/draftforge-engine/pkg/models"
)

// factRule pairs a fact field with its detector. Rules run in declaration
// order; a rule is skipped when its field is already set.
type factRule struct {
	field  models.FactField
	detect func(utterance string) string
}

var factRules = []factRule{
	{models.FactFieldType, detectType},
	{models.FactFieldName, detectName},
	{models.FactFieldLocation, detectLocation},
	{models.FactFieldScale, detectScale},
	{models.FactFieldInvestment, detectInvestment},
}

// Extract derives new facts from one user utterance given the current state.
// Pure: the input is never mutated and the returned value differs from
// current only in fields that had no prior value. Absence of a match is
// normal and leaves a field unset.
func Extract(utterance string, current models.ProjectFacts) models.ProjectFacts {
	next := current
	for _, rule := range factRules {
		if next.Get(rule.field) != "" {
			continue
		}
		value := rule.detect(utterance)
		if value == "" {
			continue
		}
		if rule.field == models.FactFieldType {
			next.ProjectType = models.ProjectType(value)
			continue
		}
		next = next.WithEdit(rule.field, value)
	}
	return next
}
