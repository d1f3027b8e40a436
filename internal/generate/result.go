package generate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fbrzx/dw-simulator/internal/schema"
)

// ResultFromDir reconstructs a generation result from an output directory,
// so batches from an earlier run can be loaded without re-generating. Batch
// files keep their zero-padded numbering, so lexical order is batch order.
func ResultFromDir(root string, exp *schema.Experiment) (*Result, error) {
	result := &Result{Experiment: exp.Name, OutputRoot: root}

	for _, tbl := range exp.Tables {
		dir := filepath.Join(root, tbl.Name)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read batch directory for table %q: %w", tbl.Name, err)
		}

		tr := TableResult{Name: tbl.Name}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".parquet") {
				continue
			}
			tr.Files = append(tr.Files, filepath.Join(dir, entry.Name()))
		}
		sort.Strings(tr.Files)

		if len(tr.Files) == 0 {
			return nil, fmt.Errorf("no batch files found for table %q under %s", tbl.Name, dir)
		}
		result.Tables = append(result.Tables, tr)
	}

	return result, nil
}
