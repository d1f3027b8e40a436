package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/fbrzx/dw-simulator/internal/generate"
	"github.com/fbrzx/dw-simulator/internal/schema"
)

// maxInsertParams keeps multi-row INSERTs under every backend's placeholder
// limit (sqlite defaults to 999).
const maxInsertParams = 900

// sqlAdapter is the shared database/sql implementation behind the MySQL and
// SQLite adapters; only driver name, quoting and type mapping differ.
type sqlAdapter struct {
	driverName string
	db         *sql.DB
	d          dialect
}

func NewMySQLAdapter() Adapter {
	return &sqlAdapter{
		driverName: "mysql",
		d: dialect{
			quote: func(name string) string { return "`" + name + "`" },
			typeFor: func(col *schema.Column) string {
				switch col.Type {
				case schema.TypeInteger:
					return "BIGINT"
				case schema.TypeFloat:
					return "DOUBLE"
				case schema.TypeDate:
					return "DATE"
				case schema.TypeBoolean:
					return "BOOLEAN"
				default:
					return fmt.Sprintf("VARCHAR(%d)", col.EffectiveMaxLength())
				}
			},
		},
	}
}

func NewSQLiteAdapter() Adapter {
	return &sqlAdapter{
		driverName: "sqlite3",
		d: dialect{
			quote: func(name string) string { return `"` + name + `"` },
			typeFor: func(col *schema.Column) string {
				switch col.Type {
				case schema.TypeInteger:
					return "INTEGER"
				case schema.TypeFloat:
					return "REAL"
				case schema.TypeDate:
					return "DATE"
				case schema.TypeBoolean:
					return "BOOLEAN"
				default:
					return "TEXT"
				}
			},
		},
	}
}

func (a *sqlAdapter) Connect(ctx context.Context, url string) error {
	db, err := sql.Open(a.driverName, url)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	a.db = db
	return nil
}

func (a *sqlAdapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *sqlAdapter) CreateTables(ctx context.Context, exp *schema.Experiment) error {
	tables, err := orderedTables(exp)
	if err != nil {
		return err
	}
	for _, tbl := range tables {
		if _, err := a.db.ExecContext(ctx, createTableSQL(a.d, exp, tbl)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", PhysicalName(exp.Name, tbl.Name), err)
		}
	}
	return nil
}

// LoadBatches issues chunked multi-row INSERTs built with squirrel.
func (a *sqlAdapter) LoadBatches(ctx context.Context, exp *schema.Experiment, res *generate.Result) (int64, error) {
	return forEachBatch(ctx, exp, res, func(tbl *schema.Table, rows [][]any) error {
		phys := a.d.quote(PhysicalName(exp.Name, tbl.Name))
		cols := make([]string, len(tbl.Columns))
		for i, col := range tbl.Columns {
			cols[i] = a.d.quote(col.Name)
		}

		chunkRows := maxInsertParams / len(cols)
		if chunkRows < 1 {
			chunkRows = 1
		}

		for start := 0; start < len(rows); start += chunkRows {
			end := start + chunkRows
			if end > len(rows) {
				end = len(rows)
			}

			builder := squirrel.Insert(phys).Columns(cols...)
			for _, row := range rows[start:end] {
				builder = builder.Values(row...)
			}

			query, args, err := builder.ToSql()
			if err != nil {
				return fmt.Errorf("failed to build insert: %w", err)
			}
			if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
}

func (a *sqlAdapter) DropExperiment(ctx context.Context, exp *schema.Experiment) error {
	tables, err := orderedTables(exp)
	if err != nil {
		return err
	}
	for i := len(tables) - 1; i >= 0; i-- {
		phys := PhysicalName(exp.Name, tables[i].Name)
		if _, err := a.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", a.d.quote(phys))); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", phys, err)
		}
	}
	return nil
}
