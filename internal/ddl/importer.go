// Package ddl turns SQL CREATE TABLE statements into an experiment schema.
// All parsing is delegated to the TiDB SQL parser; this package only walks
// the AST and maps types onto the generator's five column types.
package ddl

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/mysql"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"github.com/fbrzx/dw-simulator/internal/schema"
)

// Import parses SQL DDL and builds a validated experiment. Every table gets
// defaultRows as its target row count; callers adjust per table afterwards
// if needed. Tables whose primary key is composite get the key recorded as
// a composite-key group plus an injected sequential surrogate key column.
func Import(sqlText, experimentName string, defaultRows int) (*schema.Experiment, error) {
	p := parser.New()
	stmts, _, err := p.Parse(sqlText, "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to parse DDL: %w", err)
	}

	exp := &schema.Experiment{Name: experimentName}

	for _, stmt := range stmts {
		create, ok := stmt.(*ast.CreateTableStmt)
		if !ok {
			continue // only CREATE TABLE contributes to the schema
		}
		tbl, err := importTable(create, defaultRows)
		if err != nil {
			return nil, err
		}
		exp.Tables = append(exp.Tables, tbl)
	}

	if len(exp.Tables) == 0 {
		return nil, fmt.Errorf("DDL contains no CREATE TABLE statements")
	}

	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return exp, nil
}

func importTable(create *ast.CreateTableStmt, defaultRows int) (*schema.Table, error) {
	tbl := &schema.Table{
		Name: create.Table.Name.O,
		Rows: defaultRows,
	}

	for _, colDef := range create.Cols {
		col, err := importColumn(tbl.Name, colDef)
		if err != nil {
			return nil, err
		}
		tbl.Columns = append(tbl.Columns, col)
	}

	for _, constraint := range create.Constraints {
		if err := applyConstraint(tbl, constraint); err != nil {
			return nil, err
		}
	}

	return tbl, nil
}

func importColumn(table string, def *ast.ColumnDef) (*schema.Column, error) {
	dataType, maxLen, err := mapFieldType(table, def)
	if err != nil {
		return nil, err
	}

	col := &schema.Column{
		Name:      def.Name.Name.O,
		Type:      dataType,
		MaxLength: maxLen,
	}

	for _, opt := range def.Options {
		switch opt.Tp {
		case ast.ColumnOptionNotNull:
			col.Required = true
		case ast.ColumnOptionPrimaryKey:
			col.Unique = true
			col.Required = true
		case ast.ColumnOptionUniqKey:
			col.Unique = true
		case ast.ColumnOptionReference:
			fk, err := referenceTarget(table, col.Name, opt.Refer)
			if err != nil {
				return nil, err
			}
			col.ForeignKey = fk
		}
	}

	return col, nil
}

func mapFieldType(table string, def *ast.ColumnDef) (schema.DataType, *int, error) {
	tp := def.Tp
	flen := tp.GetFlen()

	switch tp.GetType() {
	case mysql.TypeTiny:
		// tinyint(1) is the conventional MySQL boolean
		if flen == 1 {
			return schema.TypeBoolean, nil, nil
		}
		return schema.TypeInteger, nil, nil
	case mysql.TypeShort, mysql.TypeInt24, mysql.TypeLong, mysql.TypeLonglong, mysql.TypeYear:
		return schema.TypeInteger, nil, nil
	case mysql.TypeFloat, mysql.TypeDouble, mysql.TypeNewDecimal:
		return schema.TypeFloat, nil, nil
	case mysql.TypeVarchar, mysql.TypeString, mysql.TypeVarString:
		var maxLen *int
		if flen > 0 {
			l := flen
			maxLen = &l
		}
		return schema.TypeString, maxLen, nil
	case mysql.TypeBlob, mysql.TypeTinyBlob, mysql.TypeMediumBlob, mysql.TypeLongBlob, mysql.TypeJSON:
		return schema.TypeString, nil, nil
	case mysql.TypeDate, mysql.TypeNewDate, mysql.TypeDatetime, mysql.TypeTimestamp:
		return schema.TypeDate, nil, nil
	default:
		return "", nil, fmt.Errorf("table %q column %q: unsupported SQL type %s",
			table, def.Name.Name.O, tp.String())
	}
}

func applyConstraint(tbl *schema.Table, constraint *ast.Constraint) error {
	switch constraint.Tp {
	case ast.ConstraintPrimaryKey:
		if len(constraint.Keys) == 1 {
			markColumn(tbl, constraint.Keys[0].Column.Name.O, true)
			return nil
		}
		return addCompositeKey(tbl, constraint)

	case ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
		if len(constraint.Keys) == 1 {
			col := tbl.Column(constraint.Keys[0].Column.Name.O)
			if col != nil {
				col.Unique = true
			}
			return nil
		}
		group := make([]string, len(constraint.Keys))
		for i, key := range constraint.Keys {
			group[i] = key.Column.Name.O
		}
		tbl.CompositeKeys = append(tbl.CompositeKeys, group)
		return nil

	case ast.ConstraintForeignKey:
		if len(constraint.Keys) != 1 {
			return fmt.Errorf("table %q: composite foreign keys are not supported", tbl.Name)
		}
		colName := constraint.Keys[0].Column.Name.O
		col := tbl.Column(colName)
		if col == nil {
			return fmt.Errorf("table %q: foreign key constraint references unknown column %q", tbl.Name, colName)
		}
		fk, err := referenceTarget(tbl.Name, colName, constraint.Refer)
		if err != nil {
			return err
		}
		col.ForeignKey = fk
		return nil
	}
	return nil
}

func markColumn(tbl *schema.Table, name string, required bool) {
	if col := tbl.Column(name); col != nil {
		col.Unique = true
		if required {
			col.Required = true
		}
	}
}

// addCompositeKey records a multi-column primary key and injects a
// sequential surrogate key column so single-column uniqueness (and FK
// targeting) keeps working.
func addCompositeKey(tbl *schema.Table, constraint *ast.Constraint) error {
	group := make([]string, len(constraint.Keys))
	for i, key := range constraint.Keys {
		group[i] = key.Column.Name.O
	}
	tbl.CompositeKeys = append(tbl.CompositeKeys, group)

	name := "surrogate_id"
	if tbl.Column(name) != nil {
		name = tbl.Name + "_surrogate_id"
	}
	tbl.Columns = append(tbl.Columns, &schema.Column{
		Name:     name,
		Type:     schema.TypeInteger,
		Unique:   true,
		Required: true,
	})
	return nil
}

func referenceTarget(table, column string, refer *ast.ReferenceDef) (*schema.ForeignKey, error) {
	if refer == nil || refer.Table == nil || len(refer.IndexPartSpecifications) != 1 {
		return nil, fmt.Errorf("table %q column %q: malformed REFERENCES clause", table, column)
	}
	return &schema.ForeignKey{
		Table:  refer.Table.Name.O,
		Column: refer.IndexPartSpecifications[0].Column.Name.O,
	}, nil
}

// NormalizeName derives a SQL-safe experiment name from a file name.
func NormalizeName(fileName string) string {
	name := strings.TrimSuffix(fileName, ".sql")
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "exp_" + name
	}
	return name
}
