package core

// IntentSource identifies which classification strategy produced a result.
type IntentSource string

const (
	// IntentSourceModel marks results produced by the model-based classifier.
	IntentSourceModel IntentSource = "model"
	// IntentSourceFallback marks results produced by the deterministic
	// keyword fallback.
	IntentSourceFallback IntentSource = "fallback"
)

// IntentResult is the outcome of classifying a single query. Produced fresh
// per query; callers may persist it only as turn metadata.
type IntentResult struct {
	Label      string       `json:"label"`
	Confidence float64      `json:"confidence"`
	Source     IntentSource `json:"source"`
}

// Degraded reports whether the result came from the fallback path. This is
// informational, not a failure, and downstream policy may use it (e.g. to
// skip peer delegation on low-confidence fallback results).
func (r IntentResult) Degraded() bool { return r.Source == IntentSourceFallback }
