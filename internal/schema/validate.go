package schema

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// validIdentifier matches SQL-safe table/column names.
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var reservedWords = map[string]bool{
	"select": true, "insert": true, "update": true, "delete": true,
	"from": true, "where": true, "table": true, "index": true,
	"create": true, "drop": true, "alter": true, "join": true,
	"group": true, "order": true, "by": true, "having": true,
	"union": true, "between": true, "values": true, "into": true,
	"user": true, "default": true, "primary": true, "foreign": true,
	"key": true, "references": true, "constraint": true, "null": true,
	"not": true, "and": true, "or": true, "as": true, "on": true,
	"grant": true, "revoke": true, "column": true, "view": true,
}

// ValidationError aggregates every schema violation found in one pass.
// Callers always see the full list, never just the first problem.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed with %d violation(s):\n  - %s",
		len(e.Violations), strings.Join(e.Violations, "\n  - "))
}

func IsValidIdentifier(name string) bool {
	return validIdentifier.MatchString(name)
}

func IsReservedWord(name string) bool {
	return reservedWords[strings.ToLower(name)]
}

// Validate checks the experiment against every structural rule and returns a
// *ValidationError listing all violations, or nil. As a side effect it
// populates each table's non-blocking feasibility warnings.
func (e *Experiment) Validate() error {
	var v []string

	v = append(v, checkIdentifier("experiment", e.Name)...)
	if len(e.Tables) == 0 {
		v = append(v, "experiment must declare at least one table")
	}

	seenTables := map[string]bool{}
	for _, tbl := range e.Tables {
		if tbl == nil {
			v = append(v, "experiment contains an empty table definition")
			continue
		}
		if seenTables[strings.ToLower(tbl.Name)] {
			v = append(v, fmt.Sprintf("duplicate table name %q", tbl.Name))
		}
		seenTables[strings.ToLower(tbl.Name)] = true
		v = append(v, e.validateTable(tbl)...)
	}

	// Referential checks need the full table set, so they run after the
	// per-table pass.
	for _, tbl := range e.Tables {
		if tbl != nil {
			v = append(v, e.validateForeignKeys(tbl)...)
		}
	}

	if len(v) == 0 {
		if _, err := buildOrder(e.Tables); err != nil {
			v = append(v, err.Error())
		}
	}

	if len(v) > 0 {
		return &ValidationError{Violations: v}
	}

	for _, tbl := range e.Tables {
		tbl.Warnings = feasibilityWarnings(tbl)
	}
	return nil
}

func checkIdentifier(kind, name string) []string {
	if name == "" {
		return []string{fmt.Sprintf("%s name must not be empty", kind)}
	}
	var v []string
	if !IsValidIdentifier(name) {
		v = append(v, fmt.Sprintf("%s name %q is not a valid SQL identifier", kind, name))
	}
	if IsReservedWord(name) {
		v = append(v, fmt.Sprintf("%s name %q is a reserved SQL keyword", kind, name))
	}
	return v
}

func (e *Experiment) validateTable(tbl *Table) []string {
	var v []string
	v = append(v, checkIdentifier("table", tbl.Name)...)

	if tbl.Rows <= 0 {
		v = append(v, fmt.Sprintf("table %q: target row count must be positive, got %d", tbl.Name, tbl.Rows))
	}
	if len(tbl.Columns) == 0 {
		v = append(v, fmt.Sprintf("table %q must declare at least one column", tbl.Name))
	}

	seenCols := map[string]bool{}
	for _, col := range tbl.Columns {
		if col == nil {
			v = append(v, fmt.Sprintf("table %q contains an empty column definition", tbl.Name))
			continue
		}
		lower := strings.ToLower(col.Name)
		if seenCols[lower] {
			v = append(v, fmt.Sprintf("table %q: duplicate column name %q", tbl.Name, col.Name))
		}
		seenCols[lower] = true
		v = append(v, validateColumn(tbl.Name, col)...)
	}

	for i, group := range tbl.CompositeKeys {
		if len(group) == 0 {
			v = append(v, fmt.Sprintf("table %q: composite key group %d is empty", tbl.Name, i))
			continue
		}
		for _, name := range group {
			if !seenCols[strings.ToLower(name)] {
				v = append(v, fmt.Sprintf("table %q: composite key group %d references unknown column %q", tbl.Name, i, name))
			}
		}
	}

	return v
}

func validateColumn(table string, col *Column) []string {
	var v []string
	v = append(v, checkIdentifier(fmt.Sprintf("table %q column", table), col.Name)...)

	where := fmt.Sprintf("table %q column %q", table, col.Name)

	switch col.Type {
	case TypeInteger, TypeFloat:
		if col.MaxLength != nil {
			v = append(v, fmt.Sprintf("%s: max_length applies only to string columns", where))
		}
		if col.StartDate != "" || col.EndDate != "" {
			v = append(v, fmt.Sprintf("%s: date bounds apply only to date columns", where))
		}
		if col.MinValue != nil && col.MaxValue != nil && *col.MinValue > *col.MaxValue {
			v = append(v, fmt.Sprintf("%s: min_value %v exceeds max_value %v", where, *col.MinValue, *col.MaxValue))
		}
		v = append(v, validateDistribution(where, col.Distribution)...)
	case TypeString:
		if col.MinValue != nil || col.MaxValue != nil {
			v = append(v, fmt.Sprintf("%s: numeric bounds apply only to numeric columns", where))
		}
		if col.StartDate != "" || col.EndDate != "" {
			v = append(v, fmt.Sprintf("%s: date bounds apply only to date columns", where))
		}
		if col.MaxLength != nil && *col.MaxLength <= 0 {
			v = append(v, fmt.Sprintf("%s: max_length must be positive, got %d", where, *col.MaxLength))
		}
		if col.Distribution != nil {
			v = append(v, fmt.Sprintf("%s: distributions apply only to numeric columns", where))
		}
	case TypeDate:
		if col.MinValue != nil || col.MaxValue != nil {
			v = append(v, fmt.Sprintf("%s: numeric bounds apply only to numeric columns", where))
		}
		if col.MaxLength != nil {
			v = append(v, fmt.Sprintf("%s: max_length applies only to string columns", where))
		}
		if col.Distribution != nil {
			v = append(v, fmt.Sprintf("%s: distributions apply only to numeric columns", where))
		}
		v = append(v, validateDateBounds(where, col)...)
	case TypeBoolean:
		if col.MinValue != nil || col.MaxValue != nil || col.MaxLength != nil || col.StartDate != "" || col.EndDate != "" || col.Distribution != nil {
			v = append(v, fmt.Sprintf("%s: boolean columns accept no range, length, date or distribution settings", where))
		}
	case "":
		v = append(v, fmt.Sprintf("%s: data type must be set", where))
	default:
		v = append(v, fmt.Sprintf("%s: unknown data type %q", where, col.Type))
	}

	return v
}

func validateDateBounds(where string, col *Column) []string {
	var v []string
	var start, end time.Time
	var err error
	if col.StartDate != "" {
		if start, err = time.Parse("2006-01-02", col.StartDate); err != nil {
			v = append(v, fmt.Sprintf("%s: start_date %q is not a valid YYYY-MM-DD date", where, col.StartDate))
		}
	}
	if col.EndDate != "" {
		if end, err = time.Parse("2006-01-02", col.EndDate); err != nil {
			v = append(v, fmt.Sprintf("%s: end_date %q is not a valid YYYY-MM-DD date", where, col.EndDate))
		}
	}
	if col.StartDate != "" && col.EndDate != "" && len(v) == 0 && start.After(end) {
		v = append(v, fmt.Sprintf("%s: start_date %s is after end_date %s", where, col.StartDate, col.EndDate))
	}
	return v
}

func validateDistribution(where string, d *Distribution) []string {
	if d == nil {
		return nil
	}
	switch d.Kind {
	case "normal":
		if d.StdDev <= 0 {
			return []string{fmt.Sprintf("%s: normal distribution requires stddev > 0", where)}
		}
	case "exponential":
		if d.Lambda <= 0 {
			return []string{fmt.Sprintf("%s: exponential distribution requires lambda > 0", where)}
		}
	case "beta":
		if d.Alpha <= 0 || d.Beta <= 0 {
			return []string{fmt.Sprintf("%s: beta distribution requires alpha > 0 and beta > 0", where)}
		}
	default:
		return []string{fmt.Sprintf("%s: unknown distribution kind %q", where, d.Kind)}
	}
	return nil
}

func (e *Experiment) validateForeignKeys(tbl *Table) []string {
	var v []string
	for _, pair := range tbl.ForeignKeys() {
		where := fmt.Sprintf("table %q column %q", tbl.Name, pair.Column.Name)
		target := e.Table(pair.FK.Table)
		if target == nil {
			v = append(v, fmt.Sprintf("%s: foreign key references unknown table %q", where, pair.FK.Table))
			continue
		}
		refCol := target.Column(pair.FK.Column)
		if refCol == nil {
			v = append(v, fmt.Sprintf("%s: foreign key references unknown column %q.%q", where, pair.FK.Table, pair.FK.Column))
			continue
		}
		if !refCol.Unique {
			v = append(v, fmt.Sprintf("%s: foreign key target %q.%q must be unique", where, pair.FK.Table, pair.FK.Column))
		}
		if refCol.Type != pair.Column.Type {
			v = append(v, fmt.Sprintf("%s: foreign key type %s does not match target %q.%q type %s",
				where, pair.Column.Type, pair.FK.Table, pair.FK.Column, refCol.Type))
		}
	}
	return v
}
