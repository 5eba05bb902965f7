package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"yqhp/analysis-engine/pkg/types"
)

// fingerprintFields is the canonical, order-stable projection of a request
// used for cache keying. The request ID is deliberately excluded: two
// requests asking the same question about the same material share a key.
type fingerprintFields struct {
	Subject string      `json:"subject"`
	Content string      `json:"content"`
	Aspects []string    `json:"aspects"`
	Params  []paramPair `json:"params"`
}

// paramPair keeps key and value separate so no key/value combination can
// collide with another under concatenation.
type paramPair struct {
	Key   string `json:"k"`
	Value string `json:"v"`
}

// Fingerprint derives the cache key of a request. Fields are normalized
// (whitespace trimmed, subject and aspects case-folded, aspects and params
// sorted) so cosmetic differences do not fragment the cache.
func Fingerprint(req *types.AnalysisRequest) string {
	fields := fingerprintFields{
		Subject: strings.ToLower(strings.TrimSpace(req.Subject)),
		Content: strings.TrimSpace(req.Content),
	}

	for _, a := range req.Aspects {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			fields.Aspects = append(fields.Aspects, a)
		}
	}
	sort.Strings(fields.Aspects)

	for k, v := range req.Params {
		fields.Params = append(fields.Params, paramPair{Key: k, Value: v})
	}
	sort.Slice(fields.Params, func(i, j int) bool {
		return fields.Params[i].Key < fields.Params[j].Key
	})

	// the canonical form marshals deterministically: fixed field order,
	// sorted slices
	data, err := sonic.Marshal(fields)
	if err != nil {
		// fingerprintFields contains only strings; this cannot happen
		data = []byte(fields.Subject + "\x00" + fields.Content)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
