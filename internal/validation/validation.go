// Package validation runs declarative comparison rules against a source and
// a target table and aggregates the outcomes into a summary.
package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/reloquent/parity/internal/gateway"
	"github.com/reloquent/parity/internal/rules"
)

const (
	DefaultQueryTimeout = 2 * time.Minute
	MaxConcurrency      = 16
)

// Persistence outcomes.
const (
	PersistSuccess = "success"
	PersistError   = "error"
	PersistSkipped = "skipped"
)

// Sink stores a completed summary and returns a status message.
type Sink interface {
	Persist(ctx context.Context, s *Summary) (string, error)
}

// Request describes one validation run.
type Request struct {
	ID               string         `json:"id,omitempty"` // generated when empty
	Name             string         `json:"name,omitempty"`
	SourceConnection string         `json:"source_connection"`
	TargetConnection string         `json:"target_connection"`
	SourceTable      rules.TableRef `json:"source_table"`
	TargetTable      rules.TableRef `json:"target_table"`
	Rules            []rules.Rule   `json:"rules"`
}

// Summary is the aggregated result of a run. Outcomes follow rule order.
type Summary struct {
	ID                 string         `json:"id"`
	Name               string         `json:"validation_name"`
	SourceTable        rules.TableRef `json:"source_table"`
	TargetTable        rules.TableRef `json:"target_table"`
	OverallStatus      Status         `json:"overall_status"`
	TotalRulesRun      int            `json:"total_rules_run"`
	TotalDiscrepancies int            `json:"total_discrepancies"`
	Outcomes           []Outcome      `json:"detailed_results"`
	StartedAt          time.Time      `json:"started_at"`
	CompletedAt        time.Time      `json:"completed_at"`
}

// PersistenceStatus reports what happened when the summary was stored.
type PersistenceStatus struct {
	Status  string `json:"status"` // success, error, skipped
	Message string `json:"message,omitempty"`
}

// Result is returned by Validate.
type Result struct {
	Summary     *Summary          `json:"summary"`
	Persistence PersistenceStatus `json:"persistence_status"`
}

// Validator runs rules through a gateway and hands the summary to a sink.
type Validator struct {
	Gateway      gateway.Client
	Sink         Sink          // nil skips persistence
	Concurrency  int           // rules evaluated at once, default 1
	QueryTimeout time.Duration // per gateway call, default 2m
	Logger       *slog.Logger
	// Callback is invoked once per completed rule. Calls are serialized but
	// arrive in completion order, not rule order.
	Callback func(index int, outcome Outcome)

	mu sync.Mutex
}

// Validate evaluates every rule of req and persists the summary. Only a
// *MissingParametersError or a context error is returned; every other
// failure is recorded in the summary.
func (v *Validator) Validate(ctx context.Context, req Request) (*Result, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	log := v.logger()

	summary := &Summary{
		ID:          req.ID,
		Name:        req.Name,
		SourceTable: req.SourceTable,
		TargetTable: req.TargetTable,
		StartedAt:   time.Now().UTC(),
	}
	if summary.ID == "" {
		summary.ID = uuid.NewString()
	}
	if summary.Name == "" {
		summary.Name = fmt.Sprintf("%s vs %s", req.SourceTable, req.TargetTable)
	}
	log.Info("starting validation", "id", summary.ID, "name", summary.Name,
		"source", req.SourceTable, "target", req.TargetTable, "rules", len(req.Rules))

	outcomes := make([]Outcome, len(req.Rules))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency())
	for i, r := range req.Rules {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o := v.runRule(gctx, req, r)
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = o
			log.Debug("rule evaluated", "index", i, "rule", r.String(), "status", o.Status)
			v.notify(i, o)
			return nil
		})
	}
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("running rules: %w", err)
	}
	if err := ctx.Err(); err != nil {
		log.Warn("validation canceled", "id", summary.ID, "error", err)
		return nil, err
	}

	summary.Outcomes = outcomes
	summary.TotalRulesRun = len(outcomes)
	summary.OverallStatus = Aggregate(outcomes)
	summary.TotalDiscrepancies = Discrepancies(outcomes)
	summary.CompletedAt = time.Now().UTC()
	log.Info("validation complete", "id", summary.ID, "status", summary.OverallStatus,
		"rules", summary.TotalRulesRun, "discrepancies", summary.TotalDiscrepancies,
		"duration", summary.CompletedAt.Sub(summary.StartedAt))

	return &Result{Summary: summary, Persistence: v.persist(ctx, summary)}, nil
}

func checkRequest(req Request) error {
	var missing []string
	if strings.TrimSpace(string(req.SourceTable)) == "" {
		missing = append(missing, "source_table")
	}
	if strings.TrimSpace(string(req.TargetTable)) == "" {
		missing = append(missing, "target_table")
	}
	if len(req.Rules) == 0 {
		missing = append(missing, "rules")
	}
	if len(missing) > 0 {
		return &MissingParametersError{Missing: missing}
	}
	return nil
}

// runRule builds the rule's queries, runs both sides concurrently and
// evaluates the results. Invalid rules never reach the gateway.
func (v *Validator) runRule(ctx context.Context, req Request, r rules.Rule) Outcome {
	q, err := rules.BuildQueries(r, req.SourceTable, req.TargetTable)
	if err != nil {
		return errorOutcome(r, err.Error())
	}

	var (
		src, tgt Side
		wg       sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		tgt = v.query(ctx, q.Target, req.TargetConnection)
	}()
	src = v.query(ctx, q.Source, req.SourceConnection)
	wg.Wait()

	return Evaluate(r, src, tgt)
}

func (v *Validator) query(ctx context.Context, query, connection string) Side {
	if v.Gateway == nil {
		return Side{Err: &gateway.Error{Connection: connection, Query: query, Cause: errors.New("no gateway configured")}}
	}
	timeout := v.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := v.Gateway.Execute(ctx, query, connection)
	return Side{Result: res, Err: err}
}

func (v *Validator) persist(ctx context.Context, s *Summary) PersistenceStatus {
	if v.Sink == nil {
		return PersistenceStatus{Status: PersistSkipped, Message: "no persistence sink configured"}
	}
	msg, err := v.Sink.Persist(ctx, s)
	if err != nil {
		v.logger().Warn("persisting summary failed", "id", s.ID, "error", err)
		return PersistenceStatus{Status: PersistError, Message: err.Error()}
	}
	return PersistenceStatus{Status: PersistSuccess, Message: msg}
}

func (v *Validator) notify(index int, o Outcome) {
	if v.Callback == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Callback(index, o)
}

func (v *Validator) concurrency() int {
	switch {
	case v.Concurrency <= 0:
		return 1
	case v.Concurrency > MaxConcurrency:
		return MaxConcurrency
	}
	return v.Concurrency
}

func (v *Validator) logger() *slog.Logger {
	if v.Logger != nil {
		return v.Logger
	}
	return slog.Default()
}
