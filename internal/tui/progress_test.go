package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/reloquent/parity/internal/rules"
	"github.com/reloquent/parity/internal/validation"
)

func testRules() []rules.Rule {
	return []rules.Rule{rules.Count(), rules.Sum("amount")}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewProgressModel(t *testing.T) {
	m := NewProgressModel("orders", testRules(), nil)
	if m.Done() || m.Cancelled() {
		t.Error("should not be done initially")
	}
	if m.Completed() != 0 {
		t.Errorf("completed = %d, want 0", m.Completed())
	}
	v := m.View()
	if !strings.Contains(v, "orders") || !strings.Contains(v, "sum:amount") {
		t.Errorf("view should list title and rules:\n%s", v)
	}
	if !strings.Contains(v, "0/2") {
		t.Error("view should show progress counter")
	}
}

func TestProgressModel_Outcomes(t *testing.T) {
	m := NewProgressModel("orders", testRules(), nil)

	next, _ := m.Update(OutcomeMsg{Index: 1, Outcome: validation.Outcome{
		RuleKind: rules.KindSum,
		Column:   "amount",
		Status:   validation.StatusFail,
		Details:  map[string]any{"message": "sums of amount do not match"},
	}})
	m = next.(ProgressModel)
	// duplicate and out of range indexes are ignored
	next, _ = m.Update(OutcomeMsg{Index: 1, Outcome: validation.Outcome{Status: validation.StatusSuccess}})
	m = next.(ProgressModel)
	next, _ = m.Update(OutcomeMsg{Index: 7})
	m = next.(ProgressModel)

	if m.Completed() != 1 {
		t.Fatalf("completed = %d, want 1", m.Completed())
	}
	v := m.View()
	if !strings.Contains(v, "FAIL") || !strings.Contains(v, "sums of amount do not match") {
		t.Errorf("view should show the failure:\n%s", v)
	}
}

func TestProgressModel_Done(t *testing.T) {
	m := NewProgressModel("orders", testRules(), nil)

	// enter does nothing while running
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(ProgressModel)
	if m.Done() {
		t.Fatal("enter should not finish a running validation")
	}

	result := &validation.Result{
		Summary: &validation.Summary{
			OverallStatus:      validation.StatusSuccess,
			TotalRulesRun:      2,
			TotalDiscrepancies: 0,
		},
		Persistence: validation.PersistenceStatus{Status: validation.PersistSuccess, Message: "saved"},
	}
	next, _ = m.Update(DoneMsg{Result: result})
	m = next.(ProgressModel)

	v := m.View()
	if !strings.Contains(v, "SUCCESS") || !strings.Contains(v, "saved") {
		t.Errorf("view should show summary:\n%s", v)
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(ProgressModel)
	if !m.Done() || m.Cancelled() {
		t.Error("enter should finish without cancelling")
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
	got, err := m.Result()
	if err != nil || got != result {
		t.Errorf("Result() = %v, %v", got, err)
	}
}

func TestProgressModel_Error(t *testing.T) {
	m := NewProgressModel("orders", testRules(), nil)
	next, _ := m.Update(DoneMsg{Err: errors.New("context canceled")})
	m = next.(ProgressModel)

	if !strings.Contains(m.View(), "aborted") {
		t.Error("view should show abort")
	}
	if _, err := m.Result(); err == nil {
		t.Error("expected error from Result")
	}
}

func TestProgressModel_CancelWhileRunning(t *testing.T) {
	called := false
	m := NewProgressModel("orders", testRules(), func() { called = true })

	next, _ := m.Update(key("q"))
	m = next.(ProgressModel)
	if !m.Done() || !m.Cancelled() {
		t.Error("q should cancel a running validation")
	}
	if !called {
		t.Error("cancel func should be called")
	}
}

func TestProgressModel_QuitAfterFinish(t *testing.T) {
	called := false
	m := NewProgressModel("orders", testRules(), func() { called = true })
	next, _ := m.Update(DoneMsg{Result: &validation.Result{Summary: &validation.Summary{}}})
	m = next.(ProgressModel)

	next, _ = m.Update(key("q"))
	m = next.(ProgressModel)
	if m.Cancelled() || called {
		t.Error("q after finish should not cancel")
	}
}

func TestProgressModel_WindowSize(t *testing.T) {
	m := NewProgressModel("orders", testRules(), nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	if next.(ProgressModel).width != 120 {
		t.Error("width not updated")
	}
}
