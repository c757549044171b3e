package pipeline

import (
	"fmt"
	"strings"
)

// sortTopologically orders handler names so that every name appears after all
// of its direct and transitive dependencies. Names without a mutual ordering
// constraint keep their input order, so the result is reproducible across
// runs. A dependency on an unknown name or a dependency cycle is an error.
func sortTopologically(names []string, deps map[string][]string) ([]string, error) {
	known := make(map[string]bool, len(names))
	for _, name := range names {
		if known[name] {
			return nil, fmt.Errorf("duplicate handler name %q", name)
		}
		known[name] = true
	}

	indegree := make(map[string]int, len(names))
	for _, name := range names {
		for _, dep := range deps[name] {
			if !known[dep] {
				return nil, fmt.Errorf("handler %q depends on unknown handler %q", name, dep)
			}
			indegree[name]++
		}
	}

	placed := make(map[string]bool, len(names))
	order := make([]string, 0, len(names))
	for len(order) < len(names) {
		progressed := false
		for _, name := range names {
			if placed[name] || indegree[name] > 0 {
				continue
			}
			placed[name] = true
			order = append(order, name)
			progressed = true
			for _, other := range names {
				if placed[other] {
					continue
				}
				for _, dep := range deps[other] {
					if dep == name {
						indegree[other]--
					}
				}
			}
		}
		if !progressed {
			var remaining []string
			for _, name := range names {
				if !placed[name] {
					remaining = append(remaining, name)
				}
			}
			return nil, fmt.Errorf("dependency cycle among handlers: %s", strings.Join(remaining, ", "))
		}
	}

	return order, nil
}
