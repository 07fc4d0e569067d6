package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/reloquent/parity/internal/persist"
	"github.com/reloquent/parity/internal/validation"
)

// WriteJSON writes the validation result as indented JSON to path.
func WriteJSON(result *validation.Result, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON reads a validation result written by WriteJSON.
func ReadJSON(path string) (*validation.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	r := &validation.Result{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}

// EncodeJSON writes v as indented JSON to w.
func EncodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatText renders a validation result as human-readable text.
func FormatText(result *validation.Result) string {
	var b strings.Builder
	b.WriteString(FormatSummary(result.Summary))

	b.WriteString(fmt.Sprintf("\nPersistence: %s", result.Persistence.Status))
	if result.Persistence.Message != "" {
		b.WriteString(fmt.Sprintf(" (%s)", result.Persistence.Message))
	}
	b.WriteString("\n")
	return b.String()
}

// FormatSummary renders a summary without persistence information.
func FormatSummary(s *validation.Summary) string {
	var b strings.Builder

	b.WriteString("=== Parity Validation Report ===\n")
	b.WriteString(fmt.Sprintf("Name:      %s\n", s.Name))
	b.WriteString(fmt.Sprintf("ID:        %s\n", s.ID))
	b.WriteString(fmt.Sprintf("Source:    %s\n", s.SourceTable))
	b.WriteString(fmt.Sprintf("Target:    %s\n", s.TargetTable))
	b.WriteString(fmt.Sprintf("Completed: %s (%s)\n\n", s.CompletedAt.Format(time.RFC3339),
		s.CompletedAt.Sub(s.StartedAt).Round(time.Millisecond)))

	b.WriteString(fmt.Sprintf("Overall: %s (%d rules, %d discrepancies)\n\n",
		s.OverallStatus, s.TotalRulesRun, s.TotalDiscrepancies))

	b.WriteString("Rules:\n")
	for i, o := range s.Outcomes {
		label := string(o.RuleKind)
		if o.Column != "" {
			label += "(" + o.Column + ")"
		}
		b.WriteString(fmt.Sprintf("  %d. [%s] %s\n", i+1, o.Status, label))
		if msg := o.Message(); msg != "" {
			b.WriteString(fmt.Sprintf("     %s\n", msg))
		}
		for _, line := range detailLines(o.Details) {
			b.WriteString(fmt.Sprintf("     - %s\n", line))
		}
	}
	return b.String()
}

// detailLines lists schema differences, the only multi-valued detail worth
// printing inline.
func detailLines(details map[string]any) []string {
	switch diffs := details["differences"].(type) {
	case []string:
		return diffs
	case []any:
		lines := make([]string, 0, len(diffs))
		for _, d := range diffs {
			lines = append(lines, fmt.Sprint(d))
		}
		return lines
	}
	return nil
}

// FormatHistory renders a list of stored summaries as a table.
func FormatHistory(entries []persist.Entry) string {
	if len(entries) == 0 {
		return "No validation runs recorded.\n"
	}
	sorted := append([]persist.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CompletedAt.After(sorted[j].CompletedAt) })

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-36s  %-20s  %-7s  %5s  %s\n", "ID", "COMPLETED", "STATUS", "DISC", "NAME"))
	for _, e := range sorted {
		b.WriteString(fmt.Sprintf("%-36s  %-20s  %-7s  %5d  %s\n",
			e.ID, e.CompletedAt.UTC().Format(time.RFC3339), e.OverallStatus, e.TotalDiscrepancies, e.Name))
	}
	return b.String()
}
