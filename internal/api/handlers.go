package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/reloquent/parity/internal/persist"
	"github.com/reloquent/parity/internal/rules"
	"github.com/reloquent/parity/internal/validation"
	"github.com/reloquent/parity/internal/ws"
)

const maxRequestBytes = 1 << 20

func (s *Server) handleRunValidation(w http.ResponseWriter, r *http.Request) {
	var body ValidationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&body); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	req := validation.Request{
		ID:               uuid.NewString(),
		Name:             body.Name,
		SourceConnection: body.SourceConnection,
		TargetConnection: body.TargetConnection,
		SourceTable:      rules.TableRef(body.SourceTable),
		TargetTable:      rules.TableRef(body.TargetTable),
		Rules:            body.Rules,
	}

	var onOutcome func(int, validation.Outcome)
	if s.hub != nil {
		s.hub.BroadcastJSON(ws.MsgValidationStarted, map[string]any{
			"validation_id": req.ID,
			"source_table":  req.SourceTable,
			"target_table":  req.TargetTable,
			"rules":         len(req.Rules),
		})
		onOutcome = func(i int, o validation.Outcome) {
			s.hub.BroadcastRuleOutcome(req.ID, i, len(req.Rules), o)
		}
	}

	result, err := s.engine.Validate(r.Context(), req, onOutcome)
	if errors.Is(err, validation.ErrMissingParameters) {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Warn("validation aborted", "error", err)
		errorResponse(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	if s.hub != nil {
		s.hub.BroadcastJSON(ws.MsgValidationComplete, result)
	}
	jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleListValidations(w http.ResponseWriter, r *http.Request) {
	history, ok := s.engine.History()
	if !ok {
		errorResponse(w, http.StatusNotImplemented, "configured persistence does not support history")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errorResponse(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := history.List(r.Context(), limit)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, HistoryResponse{Validations: entries})
}

func (s *Server) handleGetValidation(w http.ResponseWriter, r *http.Request) {
	history, ok := s.engine.History()
	if !ok {
		errorResponse(w, http.StatusNotImplemented, "configured persistence does not support history")
		return
	}

	summary, err := history.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, persist.ErrNotFound) {
		errorResponse(w, http.StatusNotFound, "validation not found")
		return
	}
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, summary)
}

func (s *Server) handleLatestValidation(w http.ResponseWriter, r *http.Request) {
	result := s.engine.LastResult()
	if result == nil {
		errorResponse(w, http.StatusNotFound, "no validation has run since the server started")
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleRuleKinds(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, RuleKinds)
}
