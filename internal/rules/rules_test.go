package rules

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestKindNormalize(t *testing.T) {
	tests := []struct {
		in   Kind
		want Kind
	}{
		{"count", KindCount},
		{" SUM ", KindSum},
		{"Schema", KindSchema},
		{"ROW_HASH", KindRowHash},
		{"checksum", "checksum"},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRuleValidate(t *testing.T) {
	if err := Count().Validate(); err != nil {
		t.Errorf("count: unexpected error %v", err)
	}
	if err := Sum("amount").Validate(); err != nil {
		t.Errorf("sum: unexpected error %v", err)
	}
	if err := (Rule{Kind: "Schema"}).Validate(); err != nil {
		t.Errorf("schema: unexpected error %v", err)
	}

	err := Sum("").Validate()
	var specErr *SpecError
	if !errors.As(err, &specErr) {
		t.Fatalf("expected *SpecError, got %T", err)
	}
	if !strings.Contains(specErr.Error(), "column") {
		t.Errorf("message %q should mention column", specErr.Error())
	}

	err = RowHash(" ").Validate()
	if !errors.As(err, &specErr) {
		t.Errorf("row_hash without key: expected *SpecError, got %T", err)
	}

	err = (Rule{Kind: "checksum"}).Validate()
	var kindErr *UnsupportedKindError
	if !errors.As(err, &kindErr) {
		t.Fatalf("expected *UnsupportedKindError, got %T", err)
	}
	if !strings.Contains(kindErr.Error(), "checksum") {
		t.Errorf("message %q should name the kind", kindErr.Error())
	}
}

func TestParseAndString(t *testing.T) {
	tests := []struct {
		in   string
		want Rule
	}{
		{"count", Count()},
		{"SUM:amount", Sum("amount")},
		{"row_hash: id", RowHash("id")},
		{"schema", Schema()},
	}
	for _, tt := range tests {
		got := Parse(tt.in)
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if s := Sum("amount").String(); s != "sum:amount" {
		t.Errorf("String() = %q", s)
	}
}

func TestTableRefName(t *testing.T) {
	tests := []struct {
		ref  TableRef
		want string
	}{
		{"orders", "orders"},
		{"sales.orders", "orders"},
		{"project.dataset.orders", "orders"},
		{`public."Orders"`, "Orders"},
		{"db.`line_items`", "line_items"},
	}
	for _, tt := range tests {
		if got := tt.ref.Name(); got != tt.want {
			t.Errorf("%q.Name() = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestBuildQueries(t *testing.T) {
	src, tgt := TableRef("sales.orders"), TableRef("dw.sales.orders")

	q, err := BuildQueries(Count(), src, tgt)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if q.Source != "SELECT COUNT(*) FROM sales.orders" || q.Target != "SELECT COUNT(*) FROM dw.sales.orders" {
		t.Errorf("count queries = %+v", q)
	}

	q, err = BuildQueries(Sum("amount"), src, tgt)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if q.Source != "SELECT SUM(amount) FROM sales.orders" {
		t.Errorf("sum source = %q", q.Source)
	}

	q, err = BuildQueries(Schema(), src, tgt)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.Contains(q.Source, "table_name = 'orders'") || !strings.Contains(q.Target, "table_name = 'orders'") {
		t.Errorf("schema queries should filter on trailing segment: %+v", q)
	}
	if !strings.HasSuffix(q.Source, "ORDER BY column_name") {
		t.Errorf("schema query should order by column_name: %q", q.Source)
	}

	q, err = BuildQueries(RowHash("id"), src, tgt)
	if err != nil {
		t.Fatalf("row_hash: %v", err)
	}
	if q.Target != "SELECT * FROM dw.sales.orders ORDER BY id" {
		t.Errorf("row_hash target = %q", q.Target)
	}

	if _, err := BuildQueries(Sum(""), src, tgt); err == nil {
		t.Error("expected error for sum without column")
	}
	if _, err := BuildQueries(Rule{Kind: "bogus"}, src, tgt); err == nil {
		t.Error("expected error for unsupported kind")
	}
}

func TestSchemaQueryEscapesQuotes(t *testing.T) {
	q := SchemaQuery("x.o'brien")
	if !strings.Contains(q, "'o''brien'") {
		t.Errorf("quote not doubled: %q", q)
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `name: orders nightly
source:
  connection: src_mysql
  table: sales.orders
target:
  connection: dw
  table: dw.sales.orders
rules:
  - type: count
  - type: SUM
    column: amount
  - type: checksum
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if f.Name != "orders nightly" {
		t.Errorf("name = %q", f.Name)
	}
	if f.Source.Connection != "src_mysql" || f.Target.Table != "dw.sales.orders" {
		t.Errorf("endpoints = %+v / %+v", f.Source, f.Target)
	}
	if len(f.Rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(f.Rules))
	}
	if f.Rules[1].Kind != "SUM" || f.Rules[1].Column != "amount" {
		t.Errorf("rule[1] = %+v", f.Rules[1])
	}
	// Unsupported kinds load and are reported at evaluation time.
	if f.Rules[2].Kind != "checksum" {
		t.Errorf("rule[2] = %+v", f.Rules[2])
	}
}

func TestParseFileJSONList(t *testing.T) {
	f, err := ParseFile([]byte(`[{"type": "count"}, {"type": "sum", "column": "total"}]`))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(f.Rules) != 2 || f.Rules[1] != Sum("total") {
		t.Errorf("rules = %+v", f.Rules)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := ParseFile([]byte("rules: [unclosed")); err == nil {
		t.Error("expected error for invalid YAML")
	}
}
