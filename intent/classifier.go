package intent

import (
	"context"

	"github.com/conclave-ai/conclave/core"
	"github.com/conclave-ai/conclave/logging"
)

// Classifier determines a query's intent class. Implementations are pure
// strategies; selection between them is the Selector's job.
type Classifier interface {
	Classify(ctx context.Context, query string, c *core.Context) (core.IntentResult, error)
}

// Selector picks between a primary (model-based) strategy and a deterministic
// keyword fallback: the fallback is used when the primary fails or reports
// confidence below the threshold. Its Classify is total: it never fails and
// always returns a non-empty label.
type Selector struct {
	primary   Classifier
	fallback  *KeywordClassifier
	threshold float64
	logger    logging.Logger
}

// NewSelector creates a Selector. A nil primary degrades to fallback-only
// classification.
func NewSelector(primary Classifier, fallback *KeywordClassifier, threshold float64, logger logging.Logger) *Selector {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Selector{primary: primary, fallback: fallback, threshold: threshold, logger: logger}
}

// Classify implements Classifier. Primary failures are fully absorbed and
// never surfaced; the result's Source tag records which strategy produced it.
func (s *Selector) Classify(ctx context.Context, query string, c *core.Context) (core.IntentResult, error) {
	if s.primary != nil {
		res, err := s.primary.Classify(ctx, query, c)
		if err == nil && res.Confidence >= s.threshold {
			return res, nil
		}
		if err != nil {
			s.logger.Warn("model classification failed, using fallback", "error", err)
		} else {
			s.logger.Debug("model classification below threshold, using fallback", "confidence", res.Confidence, "threshold", s.threshold)
		}
	}
	res, _ := s.fallback.Classify(ctx, query, c)
	return res, nil
}
