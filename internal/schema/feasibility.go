package schema

import (
	"fmt"
	"math"
)

// wordPoolSize mirrors the generic word generator's vocabulary. Unique
// string columns without a provider directive cannot produce more distinct
// values than the vocabulary allows at the declared length.
const wordPoolSize = 8

// feasibilityWarnings estimates, for each unique column that has neither a
// provider directive nor explicit numeric bounds, how many distinct values
// the generator can realistically produce, and flags tables whose target row
// count exceeds that ceiling. Advisory only: it never blocks validation.
func feasibilityWarnings(tbl *Table) []string {
	var warnings []string
	for _, col := range tbl.Columns {
		if !col.Unique || col.Generator != "" {
			continue
		}
		if col.MinValue != nil || col.MaxValue != nil {
			continue
		}
		ceiling := distinctCeiling(col)
		if ceiling > 0 && int64(tbl.Rows) > ceiling {
			warnings = append(warnings, fmt.Sprintf(
				"column %q can produce at most ~%d distinct values but %d rows are requested; expect uniqueness failures",
				col.Name, ceiling, tbl.Rows))
		}
	}
	return warnings
}

// distinctCeiling returns an upper bound on distinct values for a column, or
// 0 when the ceiling is effectively unlimited.
func distinctCeiling(col *Column) int64 {
	switch col.Type {
	case TypeBoolean:
		return 2
	case TypeDate:
		start, end := col.DateBounds()
		return int64(end.Sub(start).Hours()/24) + 1
	case TypeString:
		// The word generator appends a numeric discriminator; a short
		// max_length truncates it away and collapses the value space.
		maxLen := col.EffectiveMaxLength()
		if maxLen >= 16 {
			return 0
		}
		digits := maxLen - 8
		if digits < 0 {
			digits = 0
		}
		return int64(wordPoolSize) * int64(math.Pow10(digits))
	default:
		// Unique numeric columns use a sequential counter.
		return 0
	}
}
