// Package persist stores validation summaries and, for some backends, reads
// them back.
package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reloquent/parity/internal/config"
	"github.com/reloquent/parity/internal/validation"
)

// ErrNotFound is returned by History.Get for an unknown summary ID.
var ErrNotFound = errors.New("summary not found")

// Error reports a failure to store or read a summary.
type Error struct {
	Backend string
	Op      string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Store is a sink that holds resources.
type Store interface {
	validation.Sink
	Close() error
}

// History reads previously stored summaries.
type History interface {
	List(ctx context.Context, limit int) ([]Entry, error)
	Get(ctx context.Context, id string) (*validation.Summary, error)
}

// Entry is the listing form of a stored summary.
type Entry struct {
	ID                 string            `json:"id"`
	Name               string            `json:"validation_name"`
	SourceTable        string            `json:"source_table"`
	TargetTable        string            `json:"target_table"`
	OverallStatus      validation.Status `json:"overall_status"`
	TotalRulesRun      int               `json:"total_rules_run"`
	TotalDiscrepancies int               `json:"total_discrepancies"`
	CompletedAt        time.Time         `json:"completed_at"`
}

// EntryOf returns the listing form of s.
func EntryOf(s *validation.Summary) Entry {
	return Entry{
		ID:                 s.ID,
		Name:               s.Name,
		SourceTable:        string(s.SourceTable),
		TargetTable:        string(s.TargetTable),
		OverallStatus:      s.OverallStatus,
		TotalRulesRun:      s.TotalRulesRun,
		TotalDiscrepancies: s.TotalDiscrepancies,
		CompletedAt:        s.CompletedAt,
	}
}

// Open creates the store selected by cfg.Type. Type "none" returns a nil
// store and no error.
func Open(ctx context.Context, cfg config.PersistenceConfig) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Type {
	case "", "file":
		store = NewFileSink(cfg.Directory)
	case "postgres":
		var p *PostgresSink
		if p, err = NewPostgresSink(ctx, cfg.DSN, cfg.Table); err == nil {
			store = p
		}
	case "mongodb":
		var m *MongoSink
		if m, err = NewMongoSink(ctx, cfg.ConnectionString, cfg.Database, cfg.Collection); err == nil {
			store = m
		}
	case "kafka":
		store = NewKafkaSink(cfg.Brokers, cfg.Topic)
	case "bolt":
		var b *BoltSink
		if b, err = OpenBoltSink(cfg.Path); err == nil {
			store = b
		}
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported persistence type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s persistence: %w", cfg.Type, err)
	}
	return store, nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
