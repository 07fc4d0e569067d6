package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reloquent/parity/internal/validation"
)

// PostgresSink stores summaries in a PostgreSQL table with the full summary
// in a JSONB column.
type PostgresSink struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresSink connects and creates the table if needed. table may be
// schema qualified.
func NewPostgresSink(ctx context.Context, dsn, table string) (*PostgresSink, error) {
	if table == "" {
		table = "validation_summaries"
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging PostgreSQL: %w", err)
	}

	p := &PostgresSink{pool: pool, table: pgx.Identifier(strings.Split(table, ".")).Sanitize()}
	if err := p.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresSink) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	validation_name TEXT NOT NULL,
	source_table TEXT NOT NULL,
	target_table TEXT NOT NULL,
	overall_status TEXT NOT NULL,
	total_rules_run INT NOT NULL,
	total_discrepancies INT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL,
	summary JSONB NOT NULL
)`, p.table)
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating summary table: %w", err)
	}
	return nil
}

func (p *PostgresSink) fail(op string, err error) error {
	return &Error{Backend: "postgres", Op: op, Cause: err}
}

// Persist implements validation.Sink.
func (p *PostgresSink) Persist(ctx context.Context, s *validation.Summary) (string, error) {
	doc, err := json.Marshal(s)
	if err != nil {
		return "", p.fail("persist", fmt.Errorf("marshaling summary: %w", err))
	}
	_, err = p.pool.Exec(ctx, fmt.Sprintf(`INSERT INTO %s
	(id, validation_name, source_table, target_table, overall_status, total_rules_run, total_discrepancies, started_at, completed_at, summary)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, p.table),
		s.ID, s.Name, string(s.SourceTable), string(s.TargetTable), string(s.OverallStatus),
		s.TotalRulesRun, s.TotalDiscrepancies, s.StartedAt, s.CompletedAt, doc)
	if err != nil {
		return "", p.fail("persist", fmt.Errorf("inserting summary: %w", err))
	}
	return fmt.Sprintf("inserted into %s", p.table), nil
}

// List returns the most recent summaries first.
func (p *PostgresSink) List(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := p.pool.Query(ctx, fmt.Sprintf(`SELECT id::text, validation_name, source_table, target_table,
	overall_status, total_rules_run, total_discrepancies, completed_at
	FROM %s ORDER BY completed_at DESC LIMIT $1`, p.table), limitOrDefault(limit))
	if err != nil {
		return nil, p.fail("list", fmt.Errorf("querying summaries: %w", err))
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var status string
		if err := rows.Scan(&e.ID, &e.Name, &e.SourceTable, &e.TargetTable, &status,
			&e.TotalRulesRun, &e.TotalDiscrepancies, &e.CompletedAt); err != nil {
			return nil, p.fail("list", fmt.Errorf("scanning row: %w", err))
		}
		e.OverallStatus = validation.Status(status)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, p.fail("list", fmt.Errorf("iterating rows: %w", err))
	}
	return entries, nil
}

// Get returns the summary with the given ID.
func (p *PostgresSink) Get(ctx context.Context, id string) (*validation.Summary, error) {
	var doc []byte
	err := p.pool.QueryRow(ctx, fmt.Sprintf("SELECT summary FROM %s WHERE id::text = $1", p.table), id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, p.fail("get", fmt.Errorf("querying summary: %w", err))
	}
	s := &validation.Summary{}
	if err := json.Unmarshal(doc, s); err != nil {
		return nil, p.fail("get", fmt.Errorf("parsing summary: %w", err))
	}
	return s, nil
}

func (p *PostgresSink) Close() error {
	p.pool.Close()
	return nil
}
