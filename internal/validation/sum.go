package validation

import (
	"fmt"

	"github.com/reloquent/parity/internal/gateway"
	"github.com/reloquent/parity/internal/rules"
)

// evaluateSum compares the aggregate exactly. Values of different numeric
// types are a mismatch even when numerically equal.
func evaluateSum(r rules.Rule, src, tgt *gateway.QueryResult) Outcome {
	s, sok := firstScalar(src)
	t, tok := firstScalar(tgt)
	if sok && tok && sameScalar(s, t) {
		return success(r)
	}
	msg := fmt.Sprintf("sums of %s do not match: source=%v, target=%v", r.Column, display(s, sok), display(t, tok))
	if sok && tok && s != nil && t != nil && fmt.Sprint(s) == fmt.Sprint(t) {
		msg += fmt.Sprintf(" (types %T and %T)", s, t)
	}
	return failure(r, map[string]any{
		"column":     r.Column,
		"source_sum": s,
		"target_sum": t,
		"message":    msg,
	})
}
