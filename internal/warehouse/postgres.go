package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/fbrzx/dw-simulator/internal/generate"
	"github.com/fbrzx/dw-simulator/internal/schema"
)

type PostgresAdapter struct {
	pool *pgxpool.Pool
}

func NewPostgresAdapter() *PostgresAdapter {
	return &PostgresAdapter{}
}

func (p *PostgresAdapter) Connect(ctx context.Context, url string) error {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return fmt.Errorf("failed to parse connection URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	p.pool = pool
	return nil
}

func (p *PostgresAdapter) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func (p *PostgresAdapter) dialect() dialect {
	return dialect{
		quote: pq.QuoteIdentifier,
		typeFor: func(col *schema.Column) string {
			switch col.Type {
			case schema.TypeInteger:
				return "BIGINT"
			case schema.TypeFloat:
				return "DOUBLE PRECISION"
			case schema.TypeDate:
				return "DATE"
			case schema.TypeBoolean:
				return "BOOLEAN"
			default:
				return fmt.Sprintf("VARCHAR(%d)", col.EffectiveMaxLength())
			}
		},
	}
}

func (p *PostgresAdapter) CreateTables(ctx context.Context, exp *schema.Experiment) error {
	tables, err := orderedTables(exp)
	if err != nil {
		return err
	}
	d := p.dialect()
	for _, tbl := range tables {
		if _, err := p.pool.Exec(ctx, createTableSQL(d, exp, tbl)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", PhysicalName(exp.Name, tbl.Name), err)
		}
	}
	return nil
}

// LoadBatches uses the COPY protocol, one COPY per batch file.
func (p *PostgresAdapter) LoadBatches(ctx context.Context, exp *schema.Experiment, res *generate.Result) (int64, error) {
	return forEachBatch(ctx, exp, res, func(tbl *schema.Table, rows [][]any) error {
		_, err := p.pool.CopyFrom(ctx,
			pgx.Identifier{PhysicalName(exp.Name, tbl.Name)},
			columnNames(tbl),
			pgx.CopyFromRows(rows))
		return err
	})
}

func (p *PostgresAdapter) DropExperiment(ctx context.Context, exp *schema.Experiment) error {
	tables, err := orderedTables(exp)
	if err != nil {
		return err
	}
	// Reverse order so dependents drop before their FK targets.
	for i := len(tables) - 1; i >= 0; i-- {
		phys := PhysicalName(exp.Name, tables[i].Name)
		if _, err := p.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", pq.QuoteIdentifier(phys))); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", phys, err)
		}
	}
	return nil
}
