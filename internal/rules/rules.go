// Package rules defines the declarative comparisons run between a source
// and a target table, and the queries each comparison needs.
package rules

import (
	"fmt"
	"strings"
)

// Kind identifies a comparison.
type Kind string

const (
	KindCount   Kind = "count"
	KindSum     Kind = "sum"
	KindSchema  Kind = "schema"
	KindRowHash Kind = "row_hash"
)

// Normalize returns the kind lower-cased with surrounding space removed.
func (k Kind) Normalize() Kind {
	return Kind(strings.ToLower(strings.TrimSpace(string(k))))
}

// Supported reports whether the kind has an evaluator.
func (k Kind) Supported() bool {
	switch k.Normalize() {
	case KindCount, KindSum, KindSchema, KindRowHash:
		return true
	}
	return false
}

// needsColumn reports whether the kind is parameterized by a column.
func (k Kind) needsColumn() bool {
	switch k.Normalize() {
	case KindSum, KindRowHash:
		return true
	}
	return false
}

// Rule is one comparison to perform. Column is required for sum (the summed
// column) and row_hash (the ordering key) and ignored otherwise.
type Rule struct {
	Kind   Kind   `json:"type" yaml:"type"`
	Column string `json:"column,omitempty" yaml:"column,omitempty"`
}

// Count returns a row count rule.
func Count() Rule { return Rule{Kind: KindCount} }

// Sum returns a rule comparing the sum of column.
func Sum(column string) Rule { return Rule{Kind: KindSum, Column: column} }

// Schema returns a column definition rule.
func Schema() Rule { return Rule{Kind: KindSchema} }

// RowHash returns a rule comparing a digest of every row ordered by keyColumn.
func RowHash(keyColumn string) Rule { return Rule{Kind: KindRowHash, Column: keyColumn} }

// Validate checks that the rule can be evaluated. It returns
// *UnsupportedKindError or *SpecError.
func (r Rule) Validate() error {
	if !r.Kind.Supported() {
		return &UnsupportedKindError{Kind: string(r.Kind)}
	}
	if r.Kind.needsColumn() && strings.TrimSpace(r.Column) == "" {
		return &SpecError{
			Kind:    r.Kind.Normalize(),
			Message: fmt.Sprintf("column must be specified for %s rule", r.Kind.Normalize()),
		}
	}
	return nil
}

// String renders the rule the way it is written on the command line,
// e.g. "count" or "sum:amount".
func (r Rule) String() string {
	k := string(r.Kind.Normalize())
	if r.Column != "" {
		return k + ":" + r.Column
	}
	return k
}

// Parse reads the command line form produced by String.
func Parse(s string) Rule {
	kind, column, _ := strings.Cut(s, ":")
	return Rule{Kind: Kind(kind).Normalize(), Column: strings.TrimSpace(column)}
}
