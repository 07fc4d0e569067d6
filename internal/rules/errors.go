package rules

import "fmt"

// SpecError reports a rule that is internally inconsistent, such as a sum
// rule without a column.
type SpecError struct {
	Kind    Kind
	Message string
}

func (e *SpecError) Error() string {
	return e.Message
}

// UnsupportedKindError reports a rule kind with no evaluator.
type UnsupportedKindError struct {
	Kind string
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported validation rule type: %q", e.Kind)
}
