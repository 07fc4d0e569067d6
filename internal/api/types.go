package api

import (
	"github.com/reloquent/parity/internal/persist"
	"github.com/reloquent/parity/internal/rules"
)

// ValidationRequest is the request body for POST /api/validations. Empty
// connection and table fields fall back to the server configuration.
type ValidationRequest struct {
	Name             string       `json:"name,omitempty"`
	SourceConnection string       `json:"source_connection"`
	TargetConnection string       `json:"target_connection"`
	SourceTable      string       `json:"source_table"`
	TargetTable      string       `json:"target_table"`
	Rules            []rules.Rule `json:"rules"`
}

// HistoryResponse is the response for GET /api/validations.
type HistoryResponse struct {
	Validations []persist.Entry `json:"validations"`
}

// RuleKindInfo describes one supported rule kind.
type RuleKindInfo struct {
	Type           string `json:"type"`
	RequiresColumn bool   `json:"requires_column"`
	Description    string `json:"description"`
}

// RuleKinds lists the supported rule kinds.
var RuleKinds = []RuleKindInfo{
	{Type: string(rules.KindCount), Description: "row counts are equal"},
	{Type: string(rules.KindSum), RequiresColumn: true, Description: "sum of column is equal"},
	{Type: string(rules.KindSchema), Description: "column names, types and nullability are equal"},
	{Type: string(rules.KindRowHash), RequiresColumn: true, Description: "digest of all rows ordered by column is equal"},
}
