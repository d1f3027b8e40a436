package schema

import (
	"fmt"
	"strings"
)

// GenerationOrder returns a table order in which every required foreign key
// target is generated before its dependents. Cycle detection runs over
// required FK edges only: a loop that includes a nullable edge is legal,
// since NULL is always an allowed value for it. Nullable edges still bias
// the order so their targets come first whenever the required edges permit
// it. Ties resolve in declaration order, so the result is deterministic for
// a given experiment regardless of how its tables are listed.
func (e *Experiment) GenerationOrder() ([]string, error) {
	return buildOrder(e.Tables)
}

type fkEdge struct {
	target   string
	column   string
	required bool
}

func buildOrder(tables []*Table) ([]string, error) {
	known := make(map[string]bool, len(tables))
	names := make([]string, 0, len(tables))
	for _, tbl := range tables {
		if tbl == nil {
			continue
		}
		known[tbl.Name] = true
		names = append(names, tbl.Name)
	}

	edges := make(map[string][]fkEdge, len(names))
	for _, tbl := range tables {
		if tbl == nil {
			continue
		}
		for _, pair := range tbl.ForeignKeys() {
			if pair.FK.Table == tbl.Name {
				continue // self-references never affect ordering
			}
			if !known[pair.FK.Table] {
				continue // dangling targets are a validation concern
			}
			edges[tbl.Name] = append(edges[tbl.Name], fkEdge{
				target:   pair.FK.Table,
				column:   pair.Column.Name,
				required: !pair.Column.Nullable(),
			})
		}
	}

	if err := checkRequiredCycles(names, edges); err != nil {
		return nil, err
	}

	placed := make(map[string]bool, len(names))
	order := make([]string, 0, len(names))
	for len(order) < len(names) {
		next := pickNext(names, edges, placed)
		placed[next] = true
		order = append(order, next)
	}
	return order, nil
}

// checkRequiredCycles walks the required-edge subgraph in declaration order
// and reports the first loop it finds. Nullable edges are not traversed, so
// they can never contribute to a reported cycle.
func checkRequiredCycles(names []string, edges map[string][]fkEdge) error {
	visited := make(map[string]bool, len(names))
	onStack := make(map[string]bool, len(names))
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		visited[name] = true
		onStack[name] = true
		stack = append(stack, name)

		for _, edge := range edges[name] {
			if !edge.required {
				continue
			}
			if onStack[edge.target] {
				return cycleError(stack, edge.target, name, edge.column)
			}
			if !visited[edge.target] {
				if err := visit(edge.target); err != nil {
					return err
				}
			}
		}

		onStack[name] = false
		stack = stack[:len(stack)-1]
		return nil
	}

	for _, name := range names {
		if visited[name] {
			continue
		}
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// pickNext selects the next table to generate: the first, in declaration
// order, whose required targets are all placed and whose nullable targets
// are placed too. When no table satisfies its nullable targets, the first
// one whose required targets are placed wins; those nullable references
// then fall back to NULL during generation.
func pickNext(names []string, edges map[string][]fkEdge, placed map[string]bool) string {
	fallback := ""
	for _, name := range names {
		if placed[name] {
			continue
		}
		requiredOK, nullableOK := true, true
		for _, edge := range edges[name] {
			if placed[edge.target] {
				continue
			}
			if edge.required {
				requiredOK = false
			} else {
				nullableOK = false
			}
		}
		if !requiredOK {
			continue
		}
		if nullableOK {
			return name
		}
		if fallback == "" {
			fallback = name
		}
	}
	return fallback
}

func cycleError(stack []string, target, from, column string) error {
	// Report the full loop, beginning and ending at the revisited table.
	start := 0
	for i, name := range stack {
		if name == target {
			start = i
			break
		}
	}
	path := append(append([]string{}, stack[start:]...), target)
	return fmt.Errorf("circular foreign key dependency: %s (via required FK %s.%s); make at least one FK in the cycle nullable",
		strings.Join(path, " -> "), from, column)
}
