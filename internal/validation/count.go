package validation

import (
	"fmt"

	"github.com/reloquent/parity/internal/gateway"
	"github.com/reloquent/parity/internal/rules"
)

func evaluateCount(r rules.Rule, src, tgt *gateway.QueryResult) Outcome {
	s, sok := firstScalar(src)
	t, tok := firstScalar(tgt)
	if sok && tok && sameScalar(s, t) {
		return success(r)
	}
	return failure(r, map[string]any{
		"source_count": s,
		"target_count": t,
		"message":      fmt.Sprintf("row counts do not match: source=%v, target=%v", display(s, sok), display(t, tok)),
	})
}

func display(v any, ok bool) string {
	if !ok {
		return "missing"
	}
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}
