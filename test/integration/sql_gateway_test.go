//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/reloquent/parity/internal/config"
	"github.com/reloquent/parity/internal/gateway"
	"github.com/reloquent/parity/internal/rules"
	"github.com/reloquent/parity/internal/validation"
)

func setupTables(t *testing.T) {
	t.Helper()
	execSQL(t,
		`DROP TABLE IF EXISTS parity_src, parity_tgt`,
		`CREATE TABLE parity_src (id INT PRIMARY KEY, amount NUMERIC(10,2), note TEXT)`,
		`CREATE TABLE parity_tgt (id INT PRIMARY KEY, amount NUMERIC(10,2), note VARCHAR(50))`,
		`INSERT INTO parity_src VALUES (1, 10.50, 'a'), (2, 20.25, 'b'), (3, 30.00, NULL)`,
		`INSERT INTO parity_tgt VALUES (1, 10.50, 'a'), (2, 20.25, 'b'), (3, 31.00, NULL)`,
	)
	t.Cleanup(func() { execSQL(t, `DROP TABLE IF EXISTS parity_src, parity_tgt`) })
}

func TestSQLGateway_Validate(t *testing.T) {
	skipIfNoPostgres(t)
	setupTables(t)

	router, err := gateway.New(config.GatewayConfig{}, map[string]config.ConnectionConfig{
		"pg": {Driver: "postgresql", DSN: pgConnString(t)},
	})
	if err != nil {
		t.Fatalf("building gateway: %v", err)
	}
	defer router.Close()

	v := &validation.Validator{Gateway: router, Concurrency: 4}
	result, err := v.Validate(context.Background(), validation.Request{
		SourceConnection: "pg",
		TargetConnection: "pg",
		SourceTable:      "parity_src",
		TargetTable:      "parity_tgt",
		Rules: []rules.Rule{
			rules.Count(),
			rules.Sum("amount"),
			rules.Schema(),
			rules.RowHash("id"),
		},
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	want := []validation.Status{
		validation.StatusSuccess, // 3 rows each side
		validation.StatusFail,    // 60.75 vs 61.75
		validation.StatusFail,    // note is text vs character varying
		validation.StatusFail,    // row 3 differs
	}
	for i, o := range result.Summary.Outcomes {
		if o.Status != want[i] {
			t.Errorf("rule %d (%s): status = %s, want %s: %v", i, o.RuleKind, o.Status, want[i], o.Details)
		}
	}
	if result.Summary.OverallStatus != validation.StatusFail {
		t.Errorf("overall = %s, want FAIL", result.Summary.OverallStatus)
	}
	if result.Persistence.Status != validation.PersistSkipped {
		t.Errorf("persistence = %+v, want skipped", result.Persistence)
	}
}

func TestSQLGateway_QueryError(t *testing.T) {
	skipIfNoPostgres(t)

	client, err := gateway.NewSQLClient("pg", gateway.DriverPostgres, pgConnString(t))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	_, err = client.Execute(context.Background(), "SELECT COUNT(*) FROM parity_missing_table", "pg")
	var gwErr *gateway.Error
	if err == nil {
		t.Fatal("expected error for missing table")
	}
	if !asGatewayError(err, &gwErr) || gwErr.Connection != "pg" {
		t.Errorf("expected *gateway.Error for pg, got %v", err)
	}
}
