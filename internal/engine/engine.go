// Package engine wires configuration, the query gateway and persistence
// into validation runs shared by the CLI, TUI and API server.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/reloquent/parity/internal/config"
	"github.com/reloquent/parity/internal/gateway"
	"github.com/reloquent/parity/internal/persist"
	"github.com/reloquent/parity/internal/rules"
	"github.com/reloquent/parity/internal/validation"
)

// Engine is the validation engine shared by all interfaces.
type Engine struct {
	Config  *config.Config
	Logger  *slog.Logger
	Gateway gateway.Client
	Store   persist.Store // nil when persistence is disabled

	mu         sync.Mutex
	lastResult *validation.Result
}

// New creates a new Engine with the given config and logger.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Config: cfg, Logger: logger}
}

// Open builds the gateway and the persistence store from the configuration.
// Components already set on the engine are kept.
func (e *Engine) Open(ctx context.Context) error {
	if e.Gateway == nil {
		gw, err := gateway.New(e.Config.Gateway, e.Config.Connections)
		if err != nil {
			return fmt.Errorf("creating gateway: %w", err)
		}
		e.Gateway = gw
	}
	if e.Store == nil {
		store, err := persist.Open(ctx, e.Config.Persistence)
		if err != nil {
			return err
		}
		e.Store = store
	}
	return nil
}

// Close releases the gateway and the store.
func (e *Engine) Close() error {
	var errs []error
	if e.Gateway != nil {
		errs = append(errs, e.Gateway.Close())
	}
	if e.Store != nil {
		errs = append(errs, e.Store.Close())
	}
	return errors.Join(errs...)
}

// Request builds a validation request from a rules file, falling back to
// the configured source and target endpoints for anything the file leaves
// unset. An empty path uses validation.rules_file.
func (e *Engine) Request(rulesFile string) (validation.Request, error) {
	if rulesFile == "" {
		rulesFile = e.Config.Validation.RulesFile
	}
	req := validation.Request{}
	if rulesFile != "" {
		f, err := rules.LoadFile(config.ExpandHome(rulesFile))
		if err != nil {
			return req, err
		}
		req.Name = f.Name
		req.SourceConnection = f.Source.Connection
		req.SourceTable = f.Source.Table
		req.TargetConnection = f.Target.Connection
		req.TargetTable = f.Target.Table
		req.Rules = f.Rules
	}
	e.applyEndpointDefaults(&req)
	return req, nil
}

func (e *Engine) applyEndpointDefaults(req *validation.Request) {
	if req.SourceConnection == "" {
		req.SourceConnection = e.Config.Source.Connection
	}
	if req.TargetConnection == "" {
		req.TargetConnection = e.Config.Target.Connection
	}
	if req.SourceTable == "" {
		req.SourceTable = rules.TableRef(e.Config.Source.Table)
	}
	if req.TargetTable == "" {
		req.TargetTable = rules.TableRef(e.Config.Target.Table)
	}
}

// Validate runs one validation. onOutcome, if set, receives each rule as it
// completes.
func (e *Engine) Validate(ctx context.Context, req validation.Request, onOutcome func(int, validation.Outcome)) (*validation.Result, error) {
	e.applyEndpointDefaults(&req)

	v := &validation.Validator{
		Gateway:      e.Gateway,
		Concurrency:  e.Config.Validation.Concurrency,
		QueryTimeout: e.Config.Validation.QueryTimeout,
		Logger:       e.Logger,
		Callback:     onOutcome,
	}
	if e.Store != nil {
		v.Sink = e.Store
	}

	result, err := v.Validate(ctx, req)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.lastResult = result
	e.mu.Unlock()
	return result, nil
}

// LastResult returns the most recent result produced by this engine.
func (e *Engine) LastResult() *validation.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastResult
}

// History returns the store's history reader, if it has one.
func (e *Engine) History() (persist.History, bool) {
	if e.Store == nil {
		return nil, false
	}
	h, ok := e.Store.(persist.History)
	return h, ok
}
