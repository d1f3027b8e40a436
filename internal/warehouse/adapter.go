// Package warehouse materializes experiments in a relational backend and
// loads generated batch files into the physical tables. It is a glue layer:
// all row production happens upstream in the generation engine.
package warehouse

import (
	"context"
	"fmt"

	"github.com/fbrzx/dw-simulator/internal/generate"
	"github.com/fbrzx/dw-simulator/internal/schema"
)

type Adapter interface {
	Connect(ctx context.Context, url string) error
	Close() error

	// CreateTables creates the experiment's physical tables in dependency
	// order so FK constraints can be declared up front.
	CreateTables(ctx context.Context, exp *schema.Experiment) error

	// LoadBatches streams every batch file of a generation result into the
	// physical tables, one batch at a time, and reports rows loaded.
	LoadBatches(ctx context.Context, exp *schema.Experiment, res *generate.Result) (int64, error)

	// DropExperiment removes the experiment's physical tables, dependents
	// first.
	DropExperiment(ctx context.Context, exp *schema.Experiment) error
}

func New(provider string) (Adapter, error) {
	switch provider {
	case "postgresql", "postgres":
		return NewPostgresAdapter(), nil
	case "mysql":
		return NewMySQLAdapter(), nil
	case "sqlite", "sqlite3":
		return NewSQLiteAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported warehouse provider: %s", provider)
	}
}

// PhysicalName derives the warehouse table name for an experiment table.
func PhysicalName(experiment, table string) string {
	return experiment + "_" + table
}
