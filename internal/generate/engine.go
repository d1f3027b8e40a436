package generate

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/fbrzx/dw-simulator/internal/columnar"
	"github.com/fbrzx/dw-simulator/internal/config"
	"github.com/fbrzx/dw-simulator/internal/schema"
)

// Request describes one generation run.
type Request struct {
	Schema *schema.Experiment

	// OutputRoot overrides the configured output directory. Empty means a
	// schema/timestamp-derived default under the configured root.
	OutputRoot string

	// RowOverrides replaces per-table target row counts; keys are matched
	// case-insensitively against table names.
	RowOverrides map[string]int

	// Seed fixes the random source. Identical schema, overrides and seed
	// produce bit-identical batch files. Nil draws a fresh seed, which is
	// recorded in the Result for reproduction.
	Seed *int64
}

type TableResult struct {
	Name  string   `json:"name"`
	Rows  int      `json:"rows"`
	Files []string `json:"files"`
}

type Result struct {
	Experiment string        `json:"experiment"`
	OutputRoot string        `json:"output_root"`
	Seed       int64         `json:"seed"`
	Tables     []TableResult `json:"tables"`
}

func (r *Result) RowCounts() map[string]int {
	counts := make(map[string]int, len(r.Tables))
	for _, tr := range r.Tables {
		counts[tr.Name] = tr.Rows
	}
	return counts
}

// Engine turns a validated experiment schema into batch-chunked columnar
// files. Generation is single-threaded and proceeds table by table in
// dependency order, holding at most one batch of rows in memory.
type Engine struct {
	cfg       *config.Config
	providers *ProviderRegistry
}

func NewEngine(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg, providers: NewProviderRegistry()}
}

// Providers exposes the registry so callers can install extra rules.
func (e *Engine) Providers() *ProviderRegistry {
	return e.providers
}

// Generate runs the whole request. Any per-column failure aborts the run;
// there is no partial success. The context is checked between batches, so
// cancellation takes effect at the next batch boundary.
func (e *Engine) Generate(ctx context.Context, req Request) (*Result, error) {
	exp := req.Schema
	if exp == nil {
		return nil, fmt.Errorf("generation request carries no schema")
	}

	order, err := exp.GenerationOrder()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve generation order: %w", err)
	}

	seed := ResolveSeed(req.Seed)
	rng := rand.New(rand.NewSource(seed))

	root := req.OutputRoot
	if root == "" {
		// The uuid fragment keeps back-to-back runs within the same
		// second from sharing a directory.
		root = filepath.Join(e.cfg.OutputRoot,
			fmt.Sprintf("%s-%s-%s", exp.Name,
				time.Now().UTC().Format("20060102T150405Z"), uuid.NewString()[:8]))
	}

	overrides := make(map[string]int, len(req.RowOverrides))
	for name, rows := range req.RowOverrides {
		overrides[strings.ToLower(name)] = rows
	}
	for name := range req.RowOverrides {
		if lookupTable(exp, name) == nil {
			return nil, fmt.Errorf("row override references unknown table %q", name)
		}
	}

	pools := valuePools{}
	tracked := referencedColumns(exp)

	result := &Result{Experiment: exp.Name, OutputRoot: root, Seed: seed}

	color.Cyan("⚙️  Generating experiment %s (seed %d)", exp.Name, seed)

	for _, tableName := range order {
		tbl := exp.Table(tableName)

		rows := tbl.Rows
		if override, ok := overrides[strings.ToLower(tableName)]; ok {
			rows = override
		}
		if rows <= 0 {
			return nil, &Error{Table: tableName, Msg: fmt.Sprintf("target row count must be positive, got %d", rows)}
		}

		tr, err := e.generateTable(ctx, tbl, rows, rng, pools, tracked[tableName], root)
		if err != nil {
			return nil, err
		}
		result.Tables = append(result.Tables, *tr)
		color.Green("  ✅ %s: %d rows in %d batch file(s)", tableName, tr.Rows, len(tr.Files))
	}

	return result, nil
}

func (e *Engine) generateTable(ctx context.Context, tbl *schema.Table, rows int, rng *rand.Rand, pools valuePools, tracked map[string]bool, root string) (*TableResult, error) {
	dir := filepath.Join(root, tbl.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	gen := newTableGenerator(tbl, rng, e.providers, pools, tracked)
	tr := &TableResult{Name: tbl.Name}

	batchSize := e.cfg.BatchSize
	for batchIdx, remaining := 0, rows; remaining > 0; batchIdx++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled before batch %d of table %q: %w", batchIdx, tbl.Name, err)
		}

		n := batchSize
		if remaining < n {
			n = remaining
		}

		batch := make([][]any, 0, n)
		for i := 0; i < n; i++ {
			row, err := gen.row()
			if err != nil {
				return nil, err
			}
			batch = append(batch, row)
		}

		path := filepath.Join(dir, fmt.Sprintf("batch-%05d.parquet", batchIdx))
		if err := columnar.Write(path, tbl, batch); err != nil {
			return nil, fmt.Errorf("failed to write batch file %s: %w", path, err)
		}

		tr.Files = append(tr.Files, path)
		tr.Rows += n
		remaining -= n
	}

	return tr, nil
}

// ResolveSeed returns the fixed seed when set, otherwise draws one from the
// system clock so the run stays reproducible once its seed is recorded.
func ResolveSeed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	return time.Now().UnixNano()
}

// referencedColumns maps each table to the set of its columns that some
// foreign key points at. Only those columns accumulate value pools, keeping
// memory proportional to what FK sampling actually needs.
func referencedColumns(exp *schema.Experiment) map[string]map[string]bool {
	tracked := make(map[string]map[string]bool, len(exp.Tables))
	for _, tbl := range exp.Tables {
		tracked[tbl.Name] = make(map[string]bool)
	}
	for _, tbl := range exp.Tables {
		for _, pair := range tbl.ForeignKeys() {
			if cols, ok := tracked[pair.FK.Table]; ok {
				cols[pair.FK.Column] = true
			}
		}
	}
	return tracked
}

func lookupTable(exp *schema.Experiment, name string) *schema.Table {
	for _, tbl := range exp.Tables {
		if strings.EqualFold(tbl.Name, name) {
			return tbl
		}
	}
	return nil
}
