package gateway

import (
	"context"
	"fmt"
	"sync"
)

// Call records one Execute invocation on a MockClient.
type Call struct {
	Query      string
	Connection string
}

// MockClient is a test double for the Client interface. Results and Errors
// are looked up by MockKey(connection, query) first and then by query alone.
type MockClient struct {
	Results map[string]*QueryResult
	Errors  map[string]error
	// ConnectionErrors fails every query on the named connection.
	ConnectionErrors map[string]error
	// Handler, when set, answers every call.
	Handler func(ctx context.Context, query, connection string) (*QueryResult, error)

	mu     sync.Mutex
	calls  []Call
	Closed bool
}

// MockKey builds a connection-scoped lookup key.
func MockKey(connection, query string) string {
	return connection + "|" + query
}

func (m *MockClient) Execute(ctx context.Context, query, connection string) (*QueryResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Query: query, Connection: connection})
	m.mu.Unlock()

	if m.Handler != nil {
		return m.Handler(ctx, query, connection)
	}
	if err, ok := m.ConnectionErrors[connection]; ok {
		return nil, &Error{Connection: connection, Query: query, Cause: err}
	}
	for _, key := range []string{MockKey(connection, query), query} {
		if err, ok := m.Errors[key]; ok {
			return nil, &Error{Connection: connection, Query: query, Cause: err}
		}
		if r, ok := m.Results[key]; ok {
			return r, nil
		}
	}
	return nil, &Error{Connection: connection, Query: query, Cause: fmt.Errorf("no result configured for query %q", query)}
}

// Calls returns a copy of the recorded calls.
func (m *MockClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockClient) Close() error {
	m.Closed = true
	return nil
}

// Scalar builds a single-row, single-column result.
func Scalar(column string, v any) *QueryResult {
	return &QueryResult{Columns: []string{column}, Rows: [][]any{{v}}}
}
