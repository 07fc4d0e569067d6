package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/reloquent/parity/internal/config"
	"github.com/reloquent/parity/internal/engine"
	"github.com/reloquent/parity/internal/gateway"
	"github.com/reloquent/parity/internal/persist"
	"github.com/reloquent/parity/internal/validation"
)

// testServer creates a Server backed by a mock gateway and an in-memory sink.
func testServer(t *testing.T, opts ...Option) (*Server, *engine.Engine, *persist.MockSink) {
	t.Helper()
	cfg := config.Default()
	eng := engine.New(cfg, slog.Default())
	eng.Gateway = &gateway.MockClient{Results: map[string]*gateway.QueryResult{
		"SELECT COUNT(*) FROM sales.orders":       gateway.Scalar("count", int64(10)),
		"SELECT COUNT(*) FROM dw.sales.orders":    gateway.Scalar("count", int64(9)),
		"SELECT SUM(amount) FROM sales.orders":    gateway.Scalar("sum", int64(100)),
		"SELECT SUM(amount) FROM dw.sales.orders": gateway.Scalar("sum", int64(100)),
	}}
	sink := &persist.MockSink{}
	eng.Store = sink
	return New(eng, slog.Default(), 0, opts...), eng, sink
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := testServer(t)
	w := do(t, s, "GET", "/api/health", nil)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want %q", resp["status"], "ok")
	}
}

func TestRunValidation(t *testing.T) {
	s, eng, sink := testServer(t)

	w := do(t, s, "POST", "/api/validations", map[string]any{
		"name":         "orders",
		"source_table": "sales.orders",
		"target_table": "dw.sales.orders",
		"rules": []map[string]string{
			{"type": "count"},
			{"type": "sum", "column": "amount"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}

	var result validation.Result
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.Summary.OverallStatus != validation.StatusFail {
		t.Errorf("overall = %s, want FAIL", result.Summary.OverallStatus)
	}
	if result.Summary.TotalRulesRun != 2 || result.Summary.TotalDiscrepancies != 1 {
		t.Errorf("totals = %d/%d", result.Summary.TotalRulesRun, result.Summary.TotalDiscrepancies)
	}
	if result.Persistence.Status != validation.PersistSuccess {
		t.Errorf("persistence = %+v", result.Persistence)
	}
	if len(sink.Summaries()) != 1 {
		t.Error("summary should be persisted")
	}
	if eng.LastResult() == nil {
		t.Error("engine should remember the result")
	}
}

func TestRunValidation_BadRequests(t *testing.T) {
	s, _, sink := testServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"invalid json", "{not json"},
		{"missing rules", map[string]any{"source_table": "a", "target_table": "b"}},
		{"missing tables", map[string]any{"rules": []map[string]string{{"type": "count"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, "POST", "/api/validations", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body)
			}
			var resp map[string]string
			json.NewDecoder(w.Body).Decode(&resp)
			if resp["error"] == "" {
				t.Error("expected error message")
			}
		})
	}
	if len(sink.Summaries()) != 0 {
		t.Error("rejected requests should not be persisted")
	}
}

func TestListAndGetValidations(t *testing.T) {
	s, _, _ := testServer(t)

	w := do(t, s, "GET", "/api/validations", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("empty list status = %d", w.Code)
	}
	var list HistoryResponse
	json.NewDecoder(w.Body).Decode(&list)
	if list.Validations == nil || len(list.Validations) != 0 {
		t.Errorf("expected empty list, got %+v", list.Validations)
	}

	do(t, s, "POST", "/api/validations", map[string]any{
		"source_table": "sales.orders",
		"target_table": "dw.sales.orders",
		"rules":        []map[string]string{{"type": "count"}},
	})

	w = do(t, s, "GET", "/api/validations?limit=5", nil)
	json.NewDecoder(w.Body).Decode(&list)
	if len(list.Validations) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(list.Validations))
	}
	id := list.Validations[0].ID

	w = do(t, s, "GET", "/api/validations/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var summary validation.Summary
	json.NewDecoder(w.Body).Decode(&summary)
	if summary.ID != id {
		t.Errorf("summary ID = %q, want %q", summary.ID, id)
	}

	if w := do(t, s, "GET", "/api/validations/does-not-exist", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", w.Code)
	}
	if w := do(t, s, "GET", "/api/validations?limit=-1", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
}

func TestValidationsWithoutHistory(t *testing.T) {
	s, eng, _ := testServer(t)
	eng.Store = nil

	if w := do(t, s, "GET", "/api/validations", nil); w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
	if w := do(t, s, "GET", "/api/validations/abc", nil); w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
}

func TestLatestValidation(t *testing.T) {
	s, _, _ := testServer(t)
	if w := do(t, s, "GET", "/api/validations/latest", nil); w.Code != http.StatusNotFound {
		t.Errorf("before any run: status = %d, want 404", w.Code)
	}

	do(t, s, "POST", "/api/validations", map[string]any{
		"source_table": "sales.orders",
		"target_table": "dw.sales.orders",
		"rules":        []map[string]string{{"type": "count"}},
	})
	if w := do(t, s, "GET", "/api/validations/latest", nil); w.Code != http.StatusOK {
		t.Errorf("after run: status = %d, want 200", w.Code)
	}
}

func TestRuleKinds(t *testing.T) {
	s, _, _ := testServer(t)
	w := do(t, s, "GET", "/api/rules/kinds", nil)
	var kinds []RuleKindInfo
	json.NewDecoder(w.Body).Decode(&kinds)
	if len(kinds) != 4 {
		t.Errorf("expected 4 kinds, got %d", len(kinds))
	}
}

func TestCORSDevMode(t *testing.T) {
	s, _, _ := testServer(t, WithDevMode(true))
	w := do(t, s, "OPTIONS", "/api/validations", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := requestLogger(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errorResponse(w, http.StatusServiceUnavailable, "gateway down")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/validations", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", w.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "status=503") || !strings.Contains(out, "level=WARN") {
		t.Errorf("log line should carry status at warn level: %s", out)
	}

	buf.Reset()
	requestLogger(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/health", nil))
	if !strings.Contains(buf.String(), "status=200") || !strings.Contains(buf.String(), "level=DEBUG") {
		t.Errorf("implicit 200 should be logged at debug: %s", buf.String())
	}
}
