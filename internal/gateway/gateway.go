// Package gateway executes queries against named database connections,
// either through a remote query service or directly over SQL drivers.
package gateway

import (
	"context"
	"fmt"
	"strings"
)

// QueryResult is a tabular query result. Rows is never nil on success.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ColumnIndex returns the position of the named column, matched
// case-insensitively, or -1.
func (r *QueryResult) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// Client executes a query verbatim against a named connection. An empty
// connection selects the client's default.
type Client interface {
	Execute(ctx context.Context, query, connection string) (*QueryResult, error)
	Close() error
}

// Error reports a failed query execution. StatusCode is set when the remote
// service answered with a non-2xx status.
type Error struct {
	Connection string
	Query      string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	conn := e.Connection
	if conn == "" {
		conn = "default"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway query on %s failed with status %d: %v", conn, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("gateway query on %s failed: %v", conn, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
