// Package columnar writes generated row batches as parquet files and reads
// them back one file at a time. Each batch file is independently readable,
// so loading never needs a whole table in memory.
package columnar

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/fbrzx/dw-simulator/internal/schema"
)

// ArrowSchema maps a table schema onto arrow fields. Dates are stored as
// date32 (days since epoch) so null handling and range checks survive the
// round trip.
func ArrowSchema(tbl *schema.Table) *arrow.Schema {
	fields := make([]arrow.Field, len(tbl.Columns))
	for i, col := range tbl.Columns {
		fields[i] = arrow.Field{
			Name:     col.Name,
			Type:     arrowType(col.Type),
			Nullable: col.Nullable(),
		}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(t schema.DataType) arrow.DataType {
	switch t {
	case schema.TypeInteger:
		return arrow.PrimitiveTypes.Int64
	case schema.TypeFloat:
		return arrow.PrimitiveTypes.Float64
	case schema.TypeDate:
		return arrow.FixedWidthTypes.Date32
	case schema.TypeBoolean:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

// Write stores one batch of rows (row-major, column order matching the table
// schema) as a single parquet file.
func Write(path string, tbl *schema.Table, rows [][]any) error {
	mem := memory.NewGoAllocator()
	arrowSchema := ArrowSchema(tbl)

	builders := make([]array.Builder, len(tbl.Columns))
	for i, f := range arrowSchema.Fields() {
		builders[i] = array.NewBuilder(mem, f.Type)
	}

	for _, row := range rows {
		if len(row) != len(builders) {
			return fmt.Errorf("row has %d values, table %q declares %d columns", len(row), tbl.Name, len(builders))
		}
		for i, v := range row {
			if err := appendValue(builders[i], tbl.Columns[i], v); err != nil {
				return err
			}
		}
	}

	cols := make([]arrow.Array, len(builders))
	for i, b := range builders {
		cols[i] = b.NewArray()
		b.Release()
	}
	record := array.NewRecord(arrowSchema, cols, int64(len(rows)))
	defer record.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create batch file: %w", err)
	}
	defer f.Close()

	writer, err := pqarrow.NewFileWriter(arrowSchema, f, nil,
		pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(mem)))
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write batch record: %w", err)
	}
	return writer.Close()
}

func appendValue(b array.Builder, col *schema.Column, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch builder := b.(type) {
	case *array.Int64Builder:
		i, ok := v.(int64)
		if !ok {
			return typeMismatch(col, v)
		}
		builder.Append(i)
	case *array.Float64Builder:
		f, ok := v.(float64)
		if !ok {
			return typeMismatch(col, v)
		}
		builder.Append(f)
	case *array.Date32Builder:
		t, ok := v.(time.Time)
		if !ok {
			return typeMismatch(col, v)
		}
		builder.Append(arrow.Date32FromTime(t))
	case *array.BooleanBuilder:
		bv, ok := v.(bool)
		if !ok {
			return typeMismatch(col, v)
		}
		builder.Append(bv)
	case *array.StringBuilder:
		s, ok := v.(string)
		if !ok {
			return typeMismatch(col, v)
		}
		builder.Append(s)
	default:
		return fmt.Errorf("column %q: unsupported arrow builder %T", col.Name, b)
	}
	return nil
}

func typeMismatch(col *schema.Column, v any) error {
	return fmt.Errorf("column %q declared %s but generator produced %T", col.Name, col.Type, v)
}

// Read loads one batch file back into row-major values. Dates come back as
// UTC midnight time.Time, integers as int64, matching what Write accepts.
func Read(ctx context.Context, path string, tbl *schema.Table) ([][]any, error) {
	mem := memory.NewGoAllocator()

	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file %s: %w", path, err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader for %s: %w", path, err)
	}

	table, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file %s: %w", path, err)
	}
	defer table.Release()

	if int(table.NumCols()) != len(tbl.Columns) {
		return nil, fmt.Errorf("batch file %s has %d columns, table %q declares %d", path, table.NumCols(), tbl.Name, len(tbl.Columns))
	}

	rows := make([][]any, table.NumRows())
	for i := range rows {
		rows[i] = make([]any, len(tbl.Columns))
	}

	for colIdx := 0; colIdx < int(table.NumCols()); colIdx++ {
		rowIdx := 0
		for _, chunk := range table.Column(colIdx).Data().Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				if chunk.IsNull(i) {
					rows[rowIdx][colIdx] = nil
				} else {
					rows[rowIdx][colIdx] = arrayValue(chunk, i)
				}
				rowIdx++
			}
		}
	}

	return rows, nil
}

func arrayValue(arr arrow.Array, i int) any {
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.Date32:
		return a.Value(i).ToTime()
	case *array.Boolean:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	default:
		return nil
	}
}
