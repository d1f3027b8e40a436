package schema

import "time"

// DataType enumerates the column types the generator understands.
type DataType string

const (
	TypeInteger DataType = "integer"
	TypeFloat   DataType = "float"
	TypeString  DataType = "string"
	TypeDate    DataType = "date"
	TypeBoolean DataType = "boolean"
)

const (
	DefaultMaxLength = 255
	DefaultDateStart = "2020-01-01"
	DefaultDateEnd   = "2025-12-31"
)

// Experiment is a named collection of table schemas. It is constructed once
// at parse time and never mutated; regeneration only produces new batches.
type Experiment struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Warehouse   string   `json:"warehouse,omitempty" yaml:"warehouse,omitempty"`
	Tables      []*Table `json:"tables" yaml:"tables"`
}

type Table struct {
	Name          string     `json:"name" yaml:"name"`
	Rows          int        `json:"rows" yaml:"rows"`
	Columns       []*Column  `json:"columns" yaml:"columns"`
	CompositeKeys [][]string `json:"composite_keys,omitempty" yaml:"composite_keys,omitempty"`

	// Warnings holds non-blocking generation-feasibility advisories
	// populated during validation.
	Warnings []string `json:"-" yaml:"-"`
}

type Column struct {
	Name      string   `json:"name" yaml:"name"`
	Type      DataType `json:"type" yaml:"type"`
	Unique    bool     `json:"unique,omitempty" yaml:"unique,omitempty"`
	Required  bool     `json:"required,omitempty" yaml:"required,omitempty"`
	MinValue  *float64 `json:"min_value,omitempty" yaml:"min_value,omitempty"`
	MaxValue  *float64 `json:"max_value,omitempty" yaml:"max_value,omitempty"`
	MaxLength *int     `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	StartDate string   `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty" yaml:"end_date,omitempty"`

	// Generator names an external data-provider rule by dotted path,
	// e.g. "internet.email".
	Generator string `json:"generator,omitempty" yaml:"generator,omitempty"`

	Distribution *Distribution `json:"distribution,omitempty" yaml:"distribution,omitempty"`
	ForeignKey   *ForeignKey   `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
}

// ForeignKey points a column at a unique column of another table. Nullable,
// when set, overrides the column's own required flag for dependency
// purposes: a nullable FK never forces generation order.
type ForeignKey struct {
	Table    string `json:"table" yaml:"table"`
	Column   string `json:"column" yaml:"column"`
	Nullable *bool  `json:"nullable,omitempty" yaml:"nullable,omitempty"`
}

// Distribution sketches how numeric values should be drawn. Parameters are
// validated per kind; sampling clamps to the column's declared bounds.
type Distribution struct {
	Kind   string  `json:"kind" yaml:"kind"` // normal, exponential or beta
	Mean   float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	StdDev float64 `json:"stddev,omitempty" yaml:"stddev,omitempty"`
	Lambda float64 `json:"lambda,omitempty" yaml:"lambda,omitempty"`
	Alpha  float64 `json:"alpha,omitempty" yaml:"alpha,omitempty"`
	Beta   float64 `json:"beta,omitempty" yaml:"beta,omitempty"`
}

// ColumnFK pairs a column with its foreign key, as derived from a table.
type ColumnFK struct {
	Column *Column
	FK     *ForeignKey
}

func (t *Table) ForeignKeys() []ColumnFK {
	var fks []ColumnFK
	for _, col := range t.Columns {
		if col.ForeignKey != nil {
			fks = append(fks, ColumnFK{Column: col, FK: col.ForeignKey})
		}
	}
	return fks
}

func (t *Table) Column(name string) *Column {
	for _, col := range t.Columns {
		if col.Name == name {
			return col
		}
	}
	return nil
}

func (e *Experiment) Table(name string) *Table {
	for _, tbl := range e.Tables {
		if tbl.Name == name {
			return tbl
		}
	}
	return nil
}

// Nullable reports whether the generator may emit NULL for this column. An
// FK nullability override wins over the column's required flag.
func (c *Column) Nullable() bool {
	if c.ForeignKey != nil && c.ForeignKey.Nullable != nil {
		return *c.ForeignKey.Nullable
	}
	return !c.Required
}

func (c *Column) EffectiveMaxLength() int {
	if c.MaxLength != nil {
		return *c.MaxLength
	}
	return DefaultMaxLength
}

// DateBounds returns the column's date range, falling back to the process
// defaults. Only meaningful for date columns; validation guarantees the
// declared values parse and are ordered.
func (c *Column) DateBounds() (time.Time, time.Time) {
	start, end := c.StartDate, c.EndDate
	if start == "" {
		start = DefaultDateStart
	}
	if end == "" {
		end = DefaultDateEnd
	}
	s, _ := time.Parse("2006-01-02", start)
	t, _ := time.Parse("2006-01-02", end)
	return s, t
}
