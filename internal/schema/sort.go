package schema

import "fmt"

// SortTablesByDependency orders tables so that every table appears after all
// tables it references. Ties keep declaration order, which keeps the result
// deterministic. The registry's FK graph is acyclic, so a stall means a
// declaration bug and is returned as an error rather than broken heuristically.
func SortTablesByDependency(tables []*Table) ([]*Table, error) {
	var sorted []*Table
	processed := make(map[string]bool)

	for len(sorted) < len(tables) {
		added := false
		for _, t := range tables {
			if processed[t.Name] {
				continue
			}
			ready := true
			for _, dep := range t.Dependencies {
				if !processed[dep] {
					ready = false
					break
				}
			}
			if ready {
				sorted = append(sorted, t)
				processed[t.Name] = true
				added = true
			}
		}
		if !added {
			var stuck []string
			for _, t := range tables {
				if !processed[t.Name] {
					stuck = append(stuck, t.Name)
				}
			}
			return nil, fmt.Errorf("dependency cycle among tables %v", stuck)
		}
	}
	return sorted, nil
}
