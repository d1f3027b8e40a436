package generate

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/fbrzx/dw-simulator/internal/schema"
)

const (
	// nullProbability is the chance an optional column emits NULL.
	nullProbability = 0.05

	// uniqueRetryBudget bounds collision retries for unique columns. When
	// it is exhausted the run fails with an error naming the column, which
	// turns "this schema cannot reach its row target" into an explicit
	// diagnosis instead of an endless loop.
	uniqueRetryBudget = 1000

	defaultNumericMin = 0
	defaultNumericMax = 1000000
)

// Error is a fatal generation failure. It aborts the whole run.
type Error struct {
	Table  string
	Column string
	Msg    string
}

func (e *Error) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("generation failed for table %q: %s", e.Table, e.Msg)
	}
	return fmt.Sprintf("generation failed for table %q column %q: %s", e.Table, e.Column, e.Msg)
}

// valuePools holds the generated values of unique columns that downstream
// foreign keys sample from, keyed "table.column". Values are appended in
// emission order so sampling stays deterministic under a fixed seed.
type valuePools map[string][]any

func poolKey(table, column string) string {
	return table + "." + column
}

type tableGenerator struct {
	table     *schema.Table
	rng       *rand.Rand
	providers *ProviderRegistry

	pools   valuePools
	tracked map[string]bool // columns whose values feed a pool

	counters map[string]int64
	seen     map[string]map[any]struct{}
}

func newTableGenerator(tbl *schema.Table, rng *rand.Rand, providers *ProviderRegistry, pools valuePools, tracked map[string]bool) *tableGenerator {
	g := &tableGenerator{
		table:     tbl,
		rng:       rng,
		providers: providers,
		pools:     pools,
		tracked:   tracked,
		counters:  make(map[string]int64),
		seen:      make(map[string]map[any]struct{}),
	}
	for _, col := range tbl.Columns {
		if col.Unique {
			g.seen[col.Name] = make(map[any]struct{})
		}
	}
	return g
}

// row produces one value per column, in declared column order.
func (g *tableGenerator) row() ([]any, error) {
	values := make([]any, len(g.table.Columns))
	for i, col := range g.table.Columns {
		v, err := g.value(col)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (g *tableGenerator) value(col *schema.Column) (any, error) {
	if col.Nullable() && g.rng.Float64() < nullProbability {
		return nil, nil
	}

	var v any
	var err error
	if col.Unique {
		v, err = g.uniqueValue(col)
	} else {
		v, err = g.candidate(col)
	}
	if err != nil {
		return nil, err
	}

	if v != nil && g.tracked[col.Name] {
		key := poolKey(g.table.Name, col.Name)
		g.pools[key] = append(g.pools[key], v)
	}
	return v, nil
}

func (g *tableGenerator) uniqueValue(col *schema.Column) (any, error) {
	seen := g.seen[col.Name]
	for attempt := 0; attempt < uniqueRetryBudget; attempt++ {
		v, err := g.candidate(col)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		if _, dup := seen[v]; !dup {
			seen[v] = struct{}{}
			return v, nil
		}
	}
	return nil, &Error{
		Table:  g.table.Name,
		Column: col.Name,
		Msg:    fmt.Sprintf("could not produce a new unique value after %d attempts", uniqueRetryBudget),
	}
}

// candidate draws one value of the column's type, ignoring uniqueness.
func (g *tableGenerator) candidate(col *schema.Column) (any, error) {
	if col.ForeignKey != nil {
		return g.sampleForeignKey(col)
	}

	switch col.Type {
	case schema.TypeInteger:
		if col.Unique {
			g.counters[col.Name]++
			return g.counters[col.Name], nil
		}
		if col.Distribution != nil {
			return int64(math.Round(g.sampleDistribution(col))), nil
		}
		lo, hi := numericBounds(col)
		return int64(lo) + g.rng.Int63n(int64(hi)-int64(lo)+1), nil

	case schema.TypeFloat:
		if col.Unique {
			g.counters[col.Name]++
			return float64(g.counters[col.Name]), nil
		}
		if col.Distribution != nil {
			return g.sampleDistribution(col), nil
		}
		lo, hi := numericBounds(col)
		return lo + g.rng.Float64()*(hi-lo), nil

	case schema.TypeDate:
		start, end := col.DateBounds()
		days := int(end.Sub(start).Hours() / 24)
		if days <= 0 {
			return start, nil
		}
		return start.AddDate(0, 0, g.rng.Intn(days+1)), nil

	case schema.TypeBoolean:
		return g.rng.Intn(2) == 1, nil

	case schema.TypeString:
		return g.stringValue(col)

	default:
		return nil, &Error{Table: g.table.Name, Column: col.Name, Msg: fmt.Sprintf("unhandled data type %q", col.Type)}
	}
}

func (g *tableGenerator) stringValue(col *schema.Column) (any, error) {
	var s string
	if col.Generator != "" {
		fn, err := g.providers.Resolve(col.Generator)
		if err != nil {
			return nil, &Error{Table: g.table.Name, Column: col.Name, Msg: err.Error()}
		}
		s = fn(g.rng)
	} else {
		s = fmt.Sprintf("%s_%d", words[g.rng.Intn(len(words))], g.rng.Intn(100000))
	}

	if maxLen := col.EffectiveMaxLength(); len(s) > maxLen {
		s = string([]rune(s)[:maxLen])
	}
	return s, nil
}

// sampleForeignKey draws a value from the referenced table's pool. A
// required FK with no pool means the dependency resolver failed; that is a
// bug, not a data problem, so it fails fast.
func (g *tableGenerator) sampleForeignKey(col *schema.Column) (any, error) {
	fk := col.ForeignKey
	pool := g.pools[poolKey(fk.Table, fk.Column)]
	if len(pool) == 0 {
		if col.Nullable() {
			return nil, nil
		}
		return nil, &Error{
			Table:  g.table.Name,
			Column: col.Name,
			Msg:    fmt.Sprintf("no generated values for foreign key target %s.%s; table was not generated first", fk.Table, fk.Column),
		}
	}
	return pool[g.rng.Intn(len(pool))], nil
}

func numericBounds(col *schema.Column) (float64, float64) {
	lo, hi := float64(defaultNumericMin), float64(defaultNumericMax)
	if col.MinValue != nil {
		lo = *col.MinValue
	}
	if col.MaxValue != nil {
		hi = *col.MaxValue
	}
	return lo, hi
}

func (g *tableGenerator) sampleDistribution(col *schema.Column) float64 {
	d := col.Distribution
	lo, hi := numericBounds(col)

	var v float64
	switch d.Kind {
	case "normal":
		v = g.rng.NormFloat64()*d.StdDev + d.Mean
	case "exponential":
		v = lo + g.rng.ExpFloat64()/d.Lambda
	case "beta":
		v = lo + johnkBeta(g.rng, d.Alpha, d.Beta)*(hi-lo)
	}

	return math.Min(math.Max(v, lo), hi)
}

// johnkBeta samples Beta(alpha, beta) on [0,1] using Johnk's algorithm.
func johnkBeta(r *rand.Rand, alpha, beta float64) float64 {
	for i := 0; i < 100; i++ {
		x := math.Pow(r.Float64(), 1/alpha)
		y := math.Pow(r.Float64(), 1/beta)
		if x+y <= 1 && x+y > 0 {
			return x / (x + y)
		}
	}
	// Degenerate parameters; fall back to the mean of the distribution.
	return alpha / (alpha + beta)
}
