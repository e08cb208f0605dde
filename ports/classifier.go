package ports

import (
	"context"

	"sheetsense/domain/query"
	"sheetsense/domain/table"
)

// ClassifiedIntent is the classifier's answer: a resolved intent plus an
// optional markdown explanation for the user.
type ClassifiedIntent struct {
	Intent      query.Intent `json:"intent"`
	Explanation string       `json:"explanation,omitempty"`
	// Degraded is true when the rule-based fallback produced the intent.
	Degraded bool `json:"degraded"`
}

// IntentClassifier maps a question plus the dataset's column profiles to a
// structured intent. Implementations: the networked language-model adapter
// and the deterministic keyword fallback. The fallback is always available,
// not conditionally compiled.
type IntentClassifier interface {
	Classify(ctx context.Context, question string, ds *table.Dataset) (*ClassifiedIntent, error)
}

// LanguageModel is the external language-understanding collaborator. Treated
// as unreliable: calls are timeout-bounded and failures never propagate past
// the classifier.
type LanguageModel interface {
	ChatCompletion(ctx context.Context, system, prompt string) (string, error)
}
