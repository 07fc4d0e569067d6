package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/reloquent/parity/internal/persist"
	"github.com/reloquent/parity/internal/validation"
)

func sampleResult() *validation.Result {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	return &validation.Result{
		Summary: &validation.Summary{
			ID:                 "6f1c2d3e-0000-4000-8000-000000000001",
			Name:               "orders nightly",
			SourceTable:        "sales.orders",
			TargetTable:        "dw.sales.orders",
			OverallStatus:      validation.StatusFail,
			TotalRulesRun:      3,
			TotalDiscrepancies: 2,
			Outcomes: []validation.Outcome{
				{RuleKind: "count", Status: validation.StatusSuccess},
				{RuleKind: "sum", Column: "amount", Status: validation.StatusFail,
					Details: map[string]any{"message": "sums of amount do not match: source=10, target=9"}},
				{RuleKind: "schema", Status: validation.StatusFail,
					Details: map[string]any{
						"message":     "schemas do not match: 1 difference(s)",
						"differences": []string{"column id missing in target"},
					}},
			},
			StartedAt:   start,
			CompletedAt: start.Add(1500 * time.Millisecond),
		},
		Persistence: validation.PersistenceStatus{Status: validation.PersistSuccess, Message: "saved to /tmp/x.json"},
	}
}

func TestFormatText(t *testing.T) {
	text := FormatText(sampleResult())

	for _, want := range []string{
		"Name:      orders nightly",
		"Overall: FAIL (3 rules, 2 discrepancies)",
		"1. [SUCCESS] count",
		"2. [FAIL] sum(amount)",
		"sums of amount do not match",
		"- column id missing in target",
		"Persistence: success (saved to /tmp/x.json)",
		"(1.5s)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	if err := WriteJSON(sampleResult(), path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	loaded, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if loaded.Summary.OverallStatus != validation.StatusFail {
		t.Errorf("expected FAIL, got %s", loaded.Summary.OverallStatus)
	}
	if len(loaded.Summary.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(loaded.Summary.Outcomes))
	}
	// Details decode generically; differences become []any.
	if lines := detailLines(loaded.Summary.Outcomes[2].Details); len(lines) != 1 {
		t.Errorf("differences = %v", lines)
	}
}

func TestEncodeJSONKeys(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, sampleResult()); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"overall_status"`, `"total_rules_run"`, `"total_discrepancies"`, `"detailed_results"`, `"rule_type"`, `"persistence_status"`} {
		if !strings.Contains(buf.String(), key) {
			t.Errorf("JSON missing key %s", key)
		}
	}
}

func TestFormatHistory(t *testing.T) {
	if got := FormatHistory(nil); !strings.Contains(got, "No validation runs") {
		t.Errorf("empty history = %q", got)
	}

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	text := FormatHistory([]persist.Entry{
		{ID: "a", Name: "first", OverallStatus: validation.StatusSuccess, CompletedAt: base},
		{ID: "b", Name: "second", OverallStatus: validation.StatusError, TotalDiscrepancies: 1, CompletedAt: base.Add(time.Hour)},
	})
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "b ") || !strings.Contains(lines[1], "ERROR") {
		t.Errorf("newest run should be first: %q", lines[1])
	}
}
