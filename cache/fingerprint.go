package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/conclave-ai/conclave/core"
)

// Fingerprint computes a deterministic digest of (model, messages, params)
// used as a cache key. Identical logical requests produce identical
// fingerprints regardless of parameter map ordering; any distinct parameter
// or content produces a distinct fingerprint.
func Fingerprint(req core.Request) string {
	h := sha256.New()
	h.Write([]byte(req.Model))
	h.Write([]byte{0})
	for _, m := range req.Messages {
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
		h.Write([]byte{0})
	}

	// Canonicalize parameter ordering by sorting keys.
	keys := make([]string, 0, len(req.Params))
	for k := range req.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		data, err := json.Marshal(req.Params[k])
		if err != nil {
			data = []byte(fmt.Sprintf("%v", req.Params[k]))
		}
		h.Write(data)
		h.Write([]byte{0})
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
