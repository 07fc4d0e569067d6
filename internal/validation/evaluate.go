package validation

import (
	"fmt"
	"reflect"

	"github.com/reloquent/parity/internal/gateway"
	"github.com/reloquent/parity/internal/rules"
)

// Evaluate compares the two sides of a rule. It performs no I/O.
func Evaluate(r rules.Rule, src, tgt Side) Outcome {
	if err := r.Validate(); err != nil {
		return errorOutcome(r, err.Error())
	}

	if src.Err != nil || tgt.Err != nil {
		details := map[string]any{}
		var msg string
		if src.Err != nil {
			msg = fmt.Sprintf("source query failed: %v", src.Err)
			details["source_error"] = src.Err.Error()
		}
		if tgt.Err != nil {
			targetMsg := fmt.Sprintf("target query failed: %v", tgt.Err)
			details["target_error"] = tgt.Err.Error()
			if msg == "" {
				msg = targetMsg
			} else {
				msg += "; " + targetMsg
			}
		}
		details["message"] = msg
		return Outcome{RuleKind: r.Kind.Normalize(), Column: r.Column, Status: StatusError, Details: details}
	}
	if src.Result == nil {
		return errorOutcome(r, "source query returned no result")
	}
	if tgt.Result == nil {
		return errorOutcome(r, "target query returned no result")
	}

	switch r.Kind.Normalize() {
	case rules.KindCount:
		return evaluateCount(r, src.Result, tgt.Result)
	case rules.KindSum:
		return evaluateSum(r, src.Result, tgt.Result)
	case rules.KindSchema:
		return evaluateSchema(r, src.Result, tgt.Result)
	case rules.KindRowHash:
		return evaluateRowHash(r, src.Result, tgt.Result)
	}
	return errorOutcome(r, (&rules.UnsupportedKindError{Kind: string(r.Kind)}).Error())
}

// firstScalar returns the first value of the first row. ok is false when
// the result has no row or the row has no column.
func firstScalar(res *gateway.QueryResult) (v any, ok bool) {
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return nil, false
	}
	return res.Rows[0][0], true
}

// sameScalar is exact, type-sensitive equality: int64(42), float64(42) and
// gateway.Decimal("42") all differ. Decimals are canonical, so equal values
// compare equal regardless of scale.
func sameScalar(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
