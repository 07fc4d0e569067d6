package rules

import (
	"fmt"
	"strings"
)

// Queries holds the query text issued to each side for one rule.
type Queries struct {
	Source string
	Target string
}

// BuildQueries returns the source and target queries for r. It fails with
// the rule's validation error before any query text is produced.
func BuildQueries(r Rule, source, target TableRef) (Queries, error) {
	if err := r.Validate(); err != nil {
		return Queries{}, err
	}
	build := func(t TableRef) string {
		switch r.Kind.Normalize() {
		case KindSum:
			return SumQuery(t, r.Column)
		case KindSchema:
			return SchemaQuery(t)
		case KindRowHash:
			return RowHashQuery(t, r.Column)
		default:
			return CountQuery(t)
		}
	}
	return Queries{Source: build(source), Target: build(target)}, nil
}

// CountQuery counts the rows of t.
func CountQuery(t TableRef) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", t)
}

// SumQuery sums column over t.
func SumQuery(t TableRef, column string) string {
	return fmt.Sprintf("SELECT SUM(%s) FROM %s", column, t)
}

// SchemaQuery lists column name, data type and nullability of t from the
// information schema, keyed by the unqualified table name.
func SchemaQuery(t TableRef) string {
	return fmt.Sprintf(
		"SELECT column_name, data_type, is_nullable FROM INFORMATION_SCHEMA.COLUMNS WHERE table_name = '%s' ORDER BY column_name",
		quoteLiteral(t.Name()))
}

// RowHashQuery selects every row of t ordered by keyColumn.
func RowHashQuery(t TableRef, keyColumn string) string {
	return fmt.Sprintf("SELECT * FROM %s ORDER BY %s", t, keyColumn)
}

func quoteLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
