package intent

import (
	"context"
	"strings"

	"github.com/conclave-ai/conclave/core"
)

// Rule maps a keyword set to an intent label. Rules are evaluated in slice
// order; the first rule with any keyword contained in the query wins.
type Rule struct {
	Label    string   `json:"label" yaml:"label"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// KeywordClassifier is the deterministic fallback strategy: a fixed priority
// ordered keyword scan. It is total: it never fails and always returns a
// label, falling back to the configured default at zero confidence.
type KeywordClassifier struct {
	rules        []Rule
	defaultLabel string
}

// NewKeywordClassifier creates a classifier with the given rules and default
// label. An empty defaultLabel falls back to "general".
func NewKeywordClassifier(rules []Rule, defaultLabel string) *KeywordClassifier {
	if defaultLabel == "" {
		defaultLabel = "general"
	}
	return &KeywordClassifier{rules: rules, defaultLabel: defaultLabel}
}

// Labels returns every label the classifier can produce, the default last.
func (k *KeywordClassifier) Labels() []string {
	labels := make([]string, 0, len(k.rules)+1)
	for _, r := range k.rules {
		labels = append(labels, r.Label)
	}
	return append(labels, k.defaultLabel)
}

// Classify implements Classifier. The returned error is always nil.
func (k *KeywordClassifier) Classify(_ context.Context, query string, _ *core.Context) (core.IntentResult, error) {
	q := strings.ToLower(query)
	for _, rule := range k.rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(q, strings.ToLower(kw)) {
				return core.IntentResult{Label: rule.Label, Confidence: 1.0, Source: core.IntentSourceFallback}, nil
			}
		}
	}
	return core.IntentResult{Label: k.defaultLabel, Confidence: 0, Source: core.IntentSourceFallback}, nil
}
