package persist

import (
	"context"
	"sync"

	"github.com/reloquent/parity/internal/validation"
)

// MockSink is a test double implementing Store and History in memory.
type MockSink struct {
	Err error

	mu        sync.Mutex
	summaries []*validation.Summary
	Closed    bool
}

func (m *MockSink) Persist(_ context.Context, s *validation.Summary) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, s)
	return "stored in memory", nil
}

// Summaries returns everything persisted so far, oldest first.
func (m *MockSink) Summaries() []*validation.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*validation.Summary(nil), m.summaries...)
}

func (m *MockSink) List(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = limitOrDefault(limit)
	entries := []Entry{}
	for i := len(m.summaries) - 1; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, EntryOf(m.summaries[i]))
	}
	return entries, nil
}

func (m *MockSink) Get(_ context.Context, id string) (*validation.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.summaries {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockSink) Close() error {
	m.Closed = true
	return nil
}
