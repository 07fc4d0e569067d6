// Package tui renders validation progress in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/reloquent/parity/internal/rules"
	"github.com/reloquent/parity/internal/validation"
)

// OutcomeMsg reports one completed rule.
type OutcomeMsg struct {
	Index   int
	Outcome validation.Outcome
}

// DoneMsg reports the end of a validation run.
type DoneMsg struct {
	Result *validation.Result
	Err    error
}

// ProgressModel is the bubbletea model shown while a validation runs.
type ProgressModel struct {
	title     string
	rules     []rules.Rule
	outcomes  []*validation.Outcome
	completed int
	result    *validation.Result
	err       error
	spinner   spinner.Model
	finished  bool
	done      bool
	cancelled bool
	cancel    context.CancelFunc
	width     int
}

// NewProgressModel creates a progress model for the given rules. cancel, if
// set, is called when the user quits before the run finishes.
func NewProgressModel(title string, rs []rules.Rule, cancel context.CancelFunc) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return ProgressModel{
		title:    title,
		rules:    rs,
		outcomes: make([]*validation.Outcome, len(rs)),
		spinner:  s,
		cancel:   cancel,
		width:    100,
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if !m.finished {
				m.cancelled = true
				if m.cancel != nil {
					m.cancel()
				}
			}
			m.done = true
			return m, tea.Quit
		case "enter":
			if m.finished {
				m.done = true
				return m, tea.Quit
			}
		}

	case OutcomeMsg:
		if msg.Index >= 0 && msg.Index < len(m.outcomes) && m.outcomes[msg.Index] == nil {
			o := msg.Outcome
			m.outcomes[msg.Index] = &o
			m.completed++
		}
		return m, nil

	case DoneMsg:
		m.finished = true
		m.result = msg.Result
		m.err = msg.Err
		return m, nil

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	for i, r := range m.rules {
		o := m.outcomes[i]
		if o == nil {
			b.WriteString(fmt.Sprintf("  %s %s\n", m.spinner.View(), dimStyle.Render(r.String())))
			continue
		}
		status := string(o.Status)
		b.WriteString(fmt.Sprintf("  [%s] %s", statusStyle(status).Render(status), r.String()))
		if o.Status != validation.StatusSuccess {
			if msg := o.Message(); msg != "" {
				b.WriteString(dimStyle.Render("  " + msg))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errStyle.Render("  Validation aborted: " + m.err.Error()))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("  Press enter to exit"))
	case m.result != nil:
		s := m.result.Summary
		overall := string(s.OverallStatus)
		b.WriteString(fmt.Sprintf("  Overall: %s  %s\n",
			statusStyle(overall).Render(overall),
			dimStyle.Render(fmt.Sprintf("%d rules, %d discrepancies", s.TotalRulesRun, s.TotalDiscrepancies))))
		p := m.result.Persistence
		b.WriteString(fmt.Sprintf("  Persistence: %s %s\n",
			statusStyle(p.Status).Render(p.Status), dimStyle.Render(p.Message)))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("  Press enter to exit"))
	default:
		b.WriteString(fmt.Sprintf("  %s/%d rules complete  ",
			highlightStyle.Render(fmt.Sprint(m.completed)), len(m.rules)))
		b.WriteString(dimStyle.Render("q: cancel"))
	}
	b.WriteString("\n")

	return b.String()
}

// Done returns true when the model is finished.
func (m ProgressModel) Done() bool {
	return m.done
}

// Cancelled returns true if the user quit before the run finished.
func (m ProgressModel) Cancelled() bool {
	return m.cancelled
}

// Completed returns the number of rules that have reported an outcome.
func (m ProgressModel) Completed() int {
	return m.completed
}

// Result returns the validation result once the run has finished.
func (m ProgressModel) Result() (*validation.Result, error) {
	return m.result, m.err
}

// RunFunc executes a validation, reporting each outcome through onOutcome.
type RunFunc func(ctx context.Context, onOutcome func(int, validation.Outcome)) (*validation.Result, error)

// Run shows live progress for run until the user dismisses the view.
func Run(ctx context.Context, title string, rs []rules.Rule, run RunFunc) (*validation.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(title, rs, cancel))
	go func() {
		result, err := run(ctx, func(i int, o validation.Outcome) {
			p.Send(OutcomeMsg{Index: i, Outcome: o})
		})
		p.Send(DoneMsg{Result: result, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("running progress view: %w", err)
	}
	m := final.(ProgressModel)
	if m.Cancelled() {
		return nil, context.Canceled
	}
	return m.Result()
}
