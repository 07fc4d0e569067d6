package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/reloquent/parity/internal/config"
)

// Router dispatches each query to the client registered for its connection
// name, falling back to a default client for unknown names.
type Router struct {
	clients  map[string]Client
	fallback Client
}

// NewRouter creates a router. fallback may be nil.
func NewRouter(fallback Client) *Router {
	return &Router{clients: make(map[string]Client), fallback: fallback}
}

// Register routes connection to c.
func (r *Router) Register(connection string, c Client) {
	r.clients[connection] = c
}

// Connections returns the registered connection names, sorted.
func (r *Router) Connections() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute implements Client.
func (r *Router) Execute(ctx context.Context, query, connection string) (*QueryResult, error) {
	if c, ok := r.clients[connection]; ok {
		return c.Execute(ctx, query, connection)
	}
	if r.fallback != nil {
		return r.fallback.Execute(ctx, query, connection)
	}
	return nil, &Error{
		Connection: connection,
		Query:      query,
		Cause:      fmt.Errorf("no gateway configured for connection %q", connection),
	}
}

// Close closes every client.
func (r *Router) Close() error {
	var errs []error
	for _, name := range r.Connections() {
		if err := r.clients[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
		}
	}
	if r.fallback != nil {
		if err := r.fallback.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing gateway: %w", err))
		}
	}
	return errors.Join(errs...)
}

// New builds the client described by the configuration: the HTTP gateway
// as the default route plus one SQL client per configured connection.
func New(gw config.GatewayConfig, conns map[string]config.ConnectionConfig) (*Router, error) {
	var fallback Client
	if gw.BaseURL != "" {
		fallback = NewHTTPClient(gw.BaseURL, gw.APIKey, gw.Timeout, WithRateLimit(gw.RequestsPerSecond))
	}
	router := NewRouter(fallback)
	for name, conn := range conns {
		c, err := NewSQLClient(name, conn.Driver, conn.DSN)
		if err != nil {
			return nil, err
		}
		router.Register(name, c)
	}
	if fallback == nil && len(conns) == 0 {
		return nil, errors.New("no gateway base_url or connections configured")
	}
	return router, nil
}
