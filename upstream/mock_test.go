package upstream

import (
	"github.com/conclave-ai/conclave/core"
)

// Interface compliance (compile-time assertion)
var _ Provider = (*MockProvider)(nil)

func coreRequest(prompt string) core.Request {
	return core.Request{
		Model:    "mock-1",
		Messages: []core.Message{{Role: "user", Content: prompt}},
	}
}
