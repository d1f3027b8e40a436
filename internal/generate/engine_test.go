package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fbrzx/dw-simulator/internal/columnar"
	"github.com/fbrzx/dw-simulator/internal/config"
	"github.com/fbrzx/dw-simulator/internal/schema"
)

func shopSchema(t *testing.T) *schema.Experiment {
	t.Helper()
	maxLen := 64
	exp := &schema.Experiment{
		Name: "shop",
		Tables: []*schema.Table{
			{Name: "customers", Rows: 100, Columns: []*schema.Column{
				{Name: "customer_id", Type: schema.TypeInteger, Unique: true, Required: true},
				{Name: "email", Type: schema.TypeString, MaxLength: &maxLen, Generator: "internet.email"},
			}},
			{Name: "orders", Rows: 250, Columns: []*schema.Column{
				{Name: "order_id", Type: schema.TypeInteger, Unique: true, Required: true},
				{Name: "customer_id", Type: schema.TypeInteger, Required: true,
					ForeignKey: &schema.ForeignKey{Table: "customers", Column: "customer_id"}},
			}},
		},
	}
	if err := exp.Validate(); err != nil {
		t.Fatalf("fixture schema invalid: %v", err)
	}
	return exp
}

func testEngine(batchSize int) *Engine {
	return NewEngine(&config.Config{OutputRoot: "unused", BatchSize: batchSize})
}

func readTable(t *testing.T, tr TableResult, tbl *schema.Table) [][]any {
	t.Helper()
	var rows [][]any
	for _, path := range tr.Files {
		batch, err := columnar.Read(context.Background(), path, tbl)
		if err != nil {
			t.Fatalf("reading %s: %v", path, err)
		}
		rows = append(rows, batch...)
	}
	return rows
}

func TestGenerateEndToEnd(t *testing.T) {
	exp := shopSchema(t)
	seed := int64(42)
	eng := testEngine(40)

	res, err := eng.Generate(context.Background(), Request{
		Schema:     exp,
		OutputRoot: t.TempDir(),
		Seed:       &seed,
	})
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	if res.Seed != 42 {
		t.Errorf("seed = %d, want 42", res.Seed)
	}
	if len(res.Tables) != 2 || res.Tables[0].Name != "customers" || res.Tables[1].Name != "orders" {
		t.Fatalf("unexpected table order: %+v", res.Tables)
	}

	customers := res.Tables[0]
	orders := res.Tables[1]
	if customers.Rows != 100 || orders.Rows != 250 {
		t.Fatalf("row counts = %d/%d, want 100/250", customers.Rows, orders.Rows)
	}

	// 100 rows at batch size 40 means 40+40+20; 250 means six full
	// batches plus a 10-row remainder.
	if len(customers.Files) != 3 {
		t.Errorf("customers written in %d files, want 3", len(customers.Files))
	}
	if len(orders.Files) != 7 {
		t.Errorf("orders written in %d files, want 7", len(orders.Files))
	}
	for i, path := range orders.Files {
		want := fmt.Sprintf("batch-%05d.parquet", i)
		if filepath.Base(path) != want {
			t.Errorf("file %d named %s, want %s", i, filepath.Base(path), want)
		}
	}

	customerRows := readTable(t, customers, exp.Table("customers"))
	orderRows := readTable(t, orders, exp.Table("orders"))
	if len(customerRows) != 100 || len(orderRows) != 250 {
		t.Fatalf("read back %d/%d rows, want 100/250", len(customerRows), len(orderRows))
	}

	customerIDs := map[int64]bool{}
	for _, row := range customerRows {
		customerIDs[row[0].(int64)] = true
	}
	if len(customerIDs) != 100 {
		t.Errorf("expected 100 distinct customer ids, got %d", len(customerIDs))
	}

	orderIDs := map[int64]bool{}
	for _, row := range orderRows {
		orderIDs[row[0].(int64)] = true
		if !customerIDs[row[1].(int64)] {
			t.Fatalf("order references customer_id %v that was never generated", row[1])
		}
	}
	if len(orderIDs) != 250 {
		t.Errorf("expected 250 distinct order ids, got %d", len(orderIDs))
	}
}

func TestGenerateIsDeterministicForSameSeed(t *testing.T) {
	exp := shopSchema(t)
	seed := int64(42)
	eng := testEngine(40)

	var roots [2]string
	for i := range roots {
		roots[i] = t.TempDir()
		if _, err := eng.Generate(context.Background(), Request{Schema: exp, OutputRoot: roots[i], Seed: &seed}); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	for _, rel := range []string{
		filepath.Join("customers", "batch-00000.parquet"),
		filepath.Join("customers", "batch-00002.parquet"),
		filepath.Join("orders", "batch-00006.parquet"),
	} {
		a, err := os.ReadFile(filepath.Join(roots[0], rel))
		if err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(filepath.Join(roots[1], rel))
		if err != nil {
			t.Fatal(err)
		}
		if string(a) != string(b) {
			t.Errorf("%s differs between identically seeded runs", rel)
		}
	}
}

func TestGenerateDifferentSeedsDiverge(t *testing.T) {
	exp := shopSchema(t)
	eng := testEngine(100)

	seen := map[string]bool{}
	for _, s := range []int64{1, 2} {
		seed := s
		root := t.TempDir()
		if _, err := eng.Generate(context.Background(), Request{Schema: exp, OutputRoot: root, Seed: &seed}); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(filepath.Join(root, "customers", "batch-00000.parquet"))
		if err != nil {
			t.Fatal(err)
		}
		seen[string(data)] = true
	}
	if len(seen) != 2 {
		t.Error("different seeds produced identical batch files")
	}
}

func TestGenerateRowOverridesAreCaseInsensitive(t *testing.T) {
	exp := shopSchema(t)
	seed := int64(1)
	eng := testEngine(50)

	res, err := eng.Generate(context.Background(), Request{
		Schema:       exp,
		OutputRoot:   t.TempDir(),
		Seed:         &seed,
		RowOverrides: map[string]int{"CUSTOMERS": 7, "Orders": 12},
	})
	if err != nil {
		t.Fatal(err)
	}
	counts := res.RowCounts()
	if counts["customers"] != 7 || counts["orders"] != 12 {
		t.Errorf("row counts = %v, want customers=7 orders=12", counts)
	}
}

func TestGenerateRejectsUnknownOverride(t *testing.T) {
	exp := shopSchema(t)
	seed := int64(1)
	eng := testEngine(50)

	_, err := eng.Generate(context.Background(), Request{
		Schema:       exp,
		OutputRoot:   t.TempDir(),
		Seed:         &seed,
		RowOverrides: map[string]int{"invoices": 10},
	})
	if err == nil || !strings.Contains(err.Error(), `unknown table "invoices"`) {
		t.Errorf("expected unknown-table error, got: %v", err)
	}
}

func TestGenerateRejectsNonPositiveRowTarget(t *testing.T) {
	exp := shopSchema(t)
	seed := int64(1)
	eng := testEngine(50)

	_, err := eng.Generate(context.Background(), Request{
		Schema:       exp,
		OutputRoot:   t.TempDir(),
		Seed:         &seed,
		RowOverrides: map[string]int{"orders": 0},
	})
	if err == nil {
		t.Fatal("expected error for zero row target")
	}
	var genErr *Error
	if !errors.As(err, &genErr) || genErr.Table != "orders" {
		t.Errorf("expected *Error naming orders, got: %v", err)
	}
}

func TestGenerateHonoursCancellation(t *testing.T) {
	exp := shopSchema(t)
	seed := int64(1)
	eng := testEngine(10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Generate(ctx, Request{Schema: exp, OutputRoot: t.TempDir(), Seed: &seed})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

func TestGenerateDefaultOutputRootsAreDistinct(t *testing.T) {
	exp := shopSchema(t)
	seed := int64(1)
	eng := NewEngine(&config.Config{OutputRoot: t.TempDir(), BatchSize: 50})

	roots := map[string]bool{}
	for i := 0; i < 2; i++ {
		res, err := eng.Generate(context.Background(), Request{
			Schema:       exp,
			Seed:         &seed,
			RowOverrides: map[string]int{"customers": 2, "orders": 2},
		})
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		roots[res.OutputRoot] = true
	}
	if len(roots) != 2 {
		t.Error("back-to-back runs derived the same output root")
	}
}

func TestResolveSeed(t *testing.T) {
	fixed := int64(99)
	if got := ResolveSeed(&fixed); got != 99 {
		t.Errorf("ResolveSeed(&99) = %d", got)
	}
	if ResolveSeed(nil) == 0 {
		t.Error("nil seed should draw from the clock")
	}
}
