package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	// MySQL driver
	_ "github.com/go-sql-driver/mysql"
	// Oracle driver
	_ "github.com/sijms/go-ora/v2"
)

// Supported SQL drivers.
const (
	DriverPostgres = "postgresql"
	DriverOracle   = "oracle"
	DriverMySQL    = "mysql"
)

// SQLClient executes queries directly against one database. It connects
// lazily on first use.
type SQLClient struct {
	name   string
	driver string
	dsn    string

	mu   sync.Mutex
	pool *pgxpool.Pool
	db   *sql.DB
}

// NewSQLClient creates a client for a named connection.
func NewSQLClient(name, driver, dsn string) (*SQLClient, error) {
	switch driver {
	case DriverPostgres, DriverOracle, DriverMySQL:
	default:
		return nil, fmt.Errorf("unsupported driver %q for connection %s", driver, name)
	}
	return &SQLClient{name: name, driver: driver, dsn: dsn}, nil
}

// Execute implements Client. The connection argument is informational; the
// client always queries its own database.
func (c *SQLClient) Execute(ctx context.Context, query, connection string) (*QueryResult, error) {
	if connection == "" {
		connection = c.name
	}
	if err := c.connect(ctx); err != nil {
		return nil, &Error{Connection: connection, Query: query, Cause: err}
	}

	var (
		result *QueryResult
		err    error
	)
	if c.driver == DriverPostgres {
		result, err = c.queryPostgres(ctx, query)
	} else {
		result, err = c.queryDB(ctx, query)
	}
	if err != nil {
		return nil, &Error{Connection: connection, Query: query, Cause: err}
	}
	return result, nil
}

func (c *SQLClient) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool != nil || c.db != nil {
		return nil
	}

	if c.driver == DriverPostgres {
		cfg, err := pgxpool.ParseConfig(c.dsn)
		if err != nil {
			return fmt.Errorf("parsing connection string: %w", err)
		}
		cfg.MaxConns = 4
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("pinging PostgreSQL: %w", err)
		}
		c.pool = pool
		return nil
	}

	db, err := sql.Open(c.driver, c.dsn)
	if err != nil {
		return fmt.Errorf("opening %s connection: %w", c.driver, err)
	}
	db.SetMaxOpenConns(4)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("pinging %s: %w", c.driver, err)
	}
	c.db = db
	return nil
}

func (c *SQLClient) queryPostgres(ctx context.Context, query string) (*QueryResult, error) {
	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	result := &QueryResult{Columns: make([]string, len(descs)), Rows: [][]any{}}
	for i, d := range descs {
		result.Columns[i] = d.Name
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i := range vals {
			vals[i] = normalizeSQL(vals[i], "")
		}
		result.Rows = append(result.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}

func (c *SQLClient) queryDB(ctx context.Context, query string) (*QueryResult, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("getting columns: %w", err)
	}
	result := &QueryResult{Columns: make([]string, len(types)), Rows: [][]any{}}
	for i, t := range types {
		result.Columns[i] = t.Name()
	}

	for rows.Next() {
		vals := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, t := range types {
			vals[i] = normalizeSQL(vals[i], t.DatabaseTypeName())
		}
		result.Rows = append(result.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}

// Close releases the connection pool.
func (c *SQLClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
	if c.db != nil {
		err := c.db.Close()
		c.db = nil
		return err
	}
	return nil
}
