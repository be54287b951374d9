package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/conclave-ai/conclave/client"
	"github.com/conclave-ai/conclave/core"
)

const classifyInstructions = `You are an intent classifier. Given a user query, respond with a single JSON object of the form {"label": "<label>", "confidence": <0..1>} and nothing else. Allowed labels: %s.`

// ModelClassifier is the primary strategy: it asks the upstream model (via
// the resilient client) to pick a label from the allowed set and reports the
// model's own confidence.
type ModelClassifier struct {
	client *client.Client
	model  string
	labels []string
}

// NewModelClassifier creates a model-based classifier restricted to the given
// label set.
func NewModelClassifier(c *client.Client, model string, labels []string) *ModelClassifier {
	return &ModelClassifier{client: c, model: model, labels: labels}
}

// Classify implements Classifier. Upstream failures and unparseable model
// output are returned as errors for the Selector to absorb.
func (m *ModelClassifier) Classify(ctx context.Context, query string, _ *core.Context) (core.IntentResult, error) {
	req := core.Request{
		Model: m.model,
		Messages: []core.Message{
			{Role: "system", Content: fmt.Sprintf(classifyInstructions, strings.Join(m.labels, ", "))},
			{Role: "user", Content: query},
		},
		Params: map[string]any{"temperature": 0.0},
	}

	resp, err := m.client.Generate(ctx, req)
	if err != nil {
		return core.IntentResult{}, fmt.Errorf("model classification: %w", err)
	}

	label, confidence, err := parseClassification(resp.Content)
	if err != nil {
		return core.IntentResult{}, fmt.Errorf("model classification: %w", err)
	}
	if !m.allowed(label) {
		return core.IntentResult{}, fmt.Errorf("model classification: label %q not in allowed set", label)
	}
	return core.IntentResult{Label: label, Confidence: confidence, Source: core.IntentSourceModel}, nil
}

func (m *ModelClassifier) allowed(label string) bool {
	for _, l := range m.labels {
		if l == label {
			return true
		}
	}
	return false
}

// parseClassification extracts {"label": ..., "confidence": ...} from model
// output, tolerating surrounding prose.
func parseClassification(content string) (string, float64, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", 0, fmt.Errorf("no JSON object in output %q", content)
	}
	var parsed struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err != nil {
		return "", 0, fmt.Errorf("decode classification output: %w", err)
	}
	if parsed.Label == "" {
		return "", 0, fmt.Errorf("classification output missing label")
	}
	return parsed.Label, parsed.Confidence, nil
}
