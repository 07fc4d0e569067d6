package validation

import (
	"github.com/reloquent/parity/internal/gateway"
	"github.com/reloquent/parity/internal/rules"
)

// Status classifies a rule outcome or a whole run.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFail    Status = "FAIL"
	StatusError   Status = "ERROR"
)

func (s Status) rank() int {
	switch s {
	case StatusError:
		return 2
	case StatusFail:
		return 1
	}
	return 0
}

// Outcome is the result of evaluating one rule. Details is set only for
// FAIL and ERROR and always carries a "message" entry.
type Outcome struct {
	RuleKind rules.Kind     `json:"rule_type"`
	Column   string         `json:"column,omitempty"`
	Status   Status         `json:"status"`
	Details  map[string]any `json:"details,omitempty"`
}

// Message returns the outcome's diagnostic message, if any.
func (o Outcome) Message() string {
	if msg, ok := o.Details["message"].(string); ok {
		return msg
	}
	return ""
}

// Side is one side's query result or the error that prevented it.
type Side struct {
	Result *gateway.QueryResult
	Err    error
}

// Aggregate returns the dominant status of outcomes: ERROR over FAIL over
// SUCCESS.
func Aggregate(outcomes []Outcome) Status {
	overall := StatusSuccess
	for _, o := range outcomes {
		if o.Status.rank() > overall.rank() {
			overall = o.Status
		}
	}
	return overall
}

// Discrepancies counts outcomes that are not SUCCESS.
func Discrepancies(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status != StatusSuccess {
			n++
		}
	}
	return n
}

func success(r rules.Rule) Outcome {
	return Outcome{RuleKind: r.Kind.Normalize(), Column: r.Column, Status: StatusSuccess}
}

func failure(r rules.Rule, details map[string]any) Outcome {
	return Outcome{RuleKind: r.Kind.Normalize(), Column: r.Column, Status: StatusFail, Details: details}
}

func errorOutcome(r rules.Rule, msg string) Outcome {
	return Outcome{
		RuleKind: r.Kind.Normalize(),
		Column:   r.Column,
		Status:   StatusError,
		Details:  map[string]any{"message": msg},
	}
}
