package usecase

import (
	"strings"

	"github.com/jeffaf/voxx/domain/entities"
)

// Classifier maps a transcript to a concurrency level by keyword inspection.
// It is a pure, total function and the single source of truth for sizing:
// the orchestrator never second-guesses its output.
type Classifier struct {
	complexKeywords []string
	simpleKeywords  []string
}

// NewClassifier creates a classifier with the given keyword sets. Keywords
// may contain spaces ("test suite"); matching is a case-insensitive
// substring check against the whole transcript.
func NewClassifier(complexKeywords, simpleKeywords []string) *Classifier {
	return &Classifier{
		complexKeywords: complexKeywords,
		simpleKeywords:  simpleKeywords,
	}
}

// Classify returns the complexity level for a transcript. A complex-keyword
// match wins over a simple-keyword match when both are present; a transcript
// matching neither set is standard.
func (c *Classifier) Classify(transcript string) entities.ComplexityLevel {
	lowered := strings.ToLower(transcript)

	for _, keyword := range c.complexKeywords {
		if strings.Contains(lowered, keyword) {
			return entities.ComplexityComplex
		}
	}

	for _, keyword := range c.simpleKeywords {
		if strings.Contains(lowered, keyword) {
			return entities.ComplexitySimple
		}
	}

	return entities.ComplexityStandard
}
