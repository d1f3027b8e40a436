package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/fbrzx/dw-simulator/internal/columnar"
	"github.com/fbrzx/dw-simulator/internal/generate"
	"github.com/fbrzx/dw-simulator/internal/schema"
)

// dialect captures the per-backend differences the shared DDL builder needs.
type dialect struct {
	quote   func(string) string
	typeFor func(*schema.Column) string
}

func createTableSQL(d dialect, exp *schema.Experiment, tbl *schema.Table) string {
	phys := PhysicalName(exp.Name, tbl.Name)

	var defs []string
	for _, col := range tbl.Columns {
		def := fmt.Sprintf("%s %s", d.quote(col.Name), d.typeFor(col))
		if !col.Nullable() {
			def += " NOT NULL"
		}
		if col.Unique {
			def += " UNIQUE"
		}
		defs = append(defs, def)
	}

	for _, pair := range tbl.ForeignKeys() {
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			d.quote(pair.Column.Name),
			d.quote(PhysicalName(exp.Name, pair.FK.Table)),
			d.quote(pair.FK.Column)))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", d.quote(phys), strings.Join(defs, ",\n  "))
}

func columnNames(tbl *schema.Table) []string {
	names := make([]string, len(tbl.Columns))
	for i, col := range tbl.Columns {
		names[i] = col.Name
	}
	return names
}

// orderedTables resolves the experiment's dependency order and returns the
// tables in that order, so parents load before dependents.
func orderedTables(exp *schema.Experiment) ([]*schema.Table, error) {
	order, err := exp.GenerationOrder()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve load order: %w", err)
	}
	tables := make([]*schema.Table, 0, len(order))
	for _, name := range order {
		tables = append(tables, exp.Table(name))
	}
	return tables, nil
}

// forEachBatch walks a generation result in dependency order, reads each
// batch file independently and hands its rows to fn. At most one batch of
// rows is resident at a time.
func forEachBatch(ctx context.Context, exp *schema.Experiment, res *generate.Result, fn func(tbl *schema.Table, rows [][]any) error) (int64, error) {
	byName := make(map[string]generate.TableResult, len(res.Tables))
	for _, tr := range res.Tables {
		byName[tr.Name] = tr
	}

	tables, err := orderedTables(exp)
	if err != nil {
		return 0, err
	}

	var loaded int64
	for _, tbl := range tables {
		tr, ok := byName[tbl.Name]
		if !ok {
			return loaded, fmt.Errorf("generation result has no batches for table %q", tbl.Name)
		}
		for _, path := range tr.Files {
			rows, err := columnar.Read(ctx, path, tbl)
			if err != nil {
				return loaded, err
			}
			if err := fn(tbl, rows); err != nil {
				return loaded, fmt.Errorf("failed to load batch %s: %w", path, err)
			}
			loaded += int64(len(rows))
		}
	}
	return loaded, nil
}
