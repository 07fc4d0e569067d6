package validation

import (
	"fmt"
	"sort"

	"github.com/reloquent/parity/internal/gateway"
	"github.com/reloquent/parity/internal/rules"
)

// ColumnDef is one row of an information-schema column listing.
type ColumnDef struct {
	ColumnName string `json:"column_name"`
	DataType   string `json:"data_type"`
	IsNullable string `json:"is_nullable"`
}

func evaluateSchema(r rules.Rule, src, tgt *gateway.QueryResult) Outcome {
	srcCols, err := parseSchema(src)
	if err != nil {
		return errorOutcome(r, fmt.Sprintf("source schema result is malformed: %v", err))
	}
	tgtCols, err := parseSchema(tgt)
	if err != nil {
		return errorOutcome(r, fmt.Sprintf("target schema result is malformed: %v", err))
	}

	if equalSchemas(srcCols, tgtCols) {
		return success(r)
	}
	diffs := schemaDifferences(srcCols, tgtCols)
	return failure(r, map[string]any{
		"source_schema": srcCols,
		"target_schema": tgtCols,
		"differences":   diffs,
		"message":       fmt.Sprintf("schemas do not match: %d difference(s)", len(diffs)),
	})
}

// parseSchema reads column_name, data_type and is_nullable by name and
// returns the definitions sorted by column name. Only column_name is
// required.
func parseSchema(res *gateway.QueryResult) ([]ColumnDef, error) {
	nameIdx := res.ColumnIndex("column_name")
	if nameIdx < 0 {
		return nil, fmt.Errorf("missing column_name column in %v", res.Columns)
	}
	typeIdx := res.ColumnIndex("data_type")
	nullIdx := res.ColumnIndex("is_nullable")

	cols := make([]ColumnDef, 0, len(res.Rows))
	for i, row := range res.Rows {
		if nameIdx >= len(row) {
			return nil, fmt.Errorf("row %d has %d values, expected at least %d", i, len(row), nameIdx+1)
		}
		cols = append(cols, ColumnDef{
			ColumnName: cell(row, nameIdx),
			DataType:   cell(row, typeIdx),
			IsNullable: cell(row, nullIdx),
		})
	}
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].ColumnName < cols[j].ColumnName })
	return cols, nil
}

func cell(row []any, idx int) string {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return ""
	}
	return fmt.Sprint(row[idx])
}

func equalSchemas(a, b []ColumnDef) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func schemaDifferences(src, tgt []ColumnDef) []string {
	srcByName := make(map[string]ColumnDef, len(src))
	for _, c := range src {
		srcByName[c.ColumnName] = c
	}
	tgtByName := make(map[string]ColumnDef, len(tgt))
	for _, c := range tgt {
		tgtByName[c.ColumnName] = c
	}

	var diffs []string
	for _, s := range src {
		t, ok := tgtByName[s.ColumnName]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("column %s missing in target", s.ColumnName))
			continue
		}
		if s.DataType != t.DataType {
			diffs = append(diffs, fmt.Sprintf("column %s: data_type %s vs %s", s.ColumnName, s.DataType, t.DataType))
		}
		if s.IsNullable != t.IsNullable {
			diffs = append(diffs, fmt.Sprintf("column %s: is_nullable %s vs %s", s.ColumnName, s.IsNullable, t.IsNullable))
		}
	}
	for _, t := range tgt {
		if _, ok := srcByName[t.ColumnName]; !ok {
			diffs = append(diffs, fmt.Sprintf("column %s missing in source", t.ColumnName))
		}
	}
	if len(diffs) == 0 {
		diffs = append(diffs, "duplicate column definitions differ")
	}
	return diffs
}
