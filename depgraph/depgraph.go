// Package depgraph orders extracted constants so that every constant
// appears after all constants its value expression references.
//
// Constants referencing names absent from the input set are excluded,
// and the exclusion cascades to everything depending on them, directly
// or transitively. Cycles are tolerated: a constant revisited while
// its own dependencies are being resolved is treated as satisfied, so
// cyclic constants are retained with a permissive order around the
// cycle.
package depgraph

import (
	"fmt"
	"maps"
	"slices"

	"github.com/swephjs/swegen/digraphutils"
	"github.com/swephjs/swegen/header"
)

// Result of one resolver run. Ordered and Excluded partition the
// input set: every input constant appears in exactly one of the two.
type Result struct {
	Ordered []header.Constant
	// Excluded maps a constant name to the reason it was dropped.
	Excluded map[string]error
	// Cyclic lists constants that were revisited while in progress.
	// They are still present in Ordered.
	Cyclic []string
}

// Sort produces a dependency-respecting total order over consts.
func Sort(consts []header.Constant) Result {
	byName := make(map[string]header.Constant, len(consts))
	for _, c := range consts {
		byName[c.Name] = c
	}

	excluded := map[string]error{}
	invDeps := map[string][]string{}
	for _, c := range consts {
		for _, d := range c.Deps {
			if _, ok := byName[d]; !ok {
				if _, already := excluded[c.Name]; !already {
					excluded[c.Name] = fmt.Errorf("references unknown name %v", d)
				}
				continue
			}
			invDeps[d] = append(invDeps[d], c.Name)
		}
	}

	// Cascade exclusion to transitive dependents.
	roots := slices.Sorted(maps.Keys(excluded))
	for name := range digraphutils.Reachable(roots, func(n string) []string { return invDeps[n] }) {
		if _, ok := excluded[name]; !ok {
			excluded[name] = fmt.Errorf("transitively depends on an excluded constant")
		}
	}

	// Depth-first post-order traversal over the remaining constants.
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[string]int, len(consts))

	res := Result{Excluded: excluded}
	var visit func(name string)
	visit = func(name string) {
		switch state[name] {
		case done:
			return
		case inProgress:
			// cycle; treat the revisit as satisfied
			if !slices.Contains(res.Cyclic, name) {
				res.Cyclic = append(res.Cyclic, name)
			}
			return
		}
		state[name] = inProgress
		for _, d := range byName[name].Deps {
			if _, excl := excluded[d]; excl {
				continue
			}
			visit(d)
		}
		state[name] = done
		res.Ordered = append(res.Ordered, byName[name])
	}

	for _, c := range consts {
		if _, excl := excluded[c.Name]; excl {
			continue
		}
		visit(c.Name)
	}

	return res
}

// DOTCode renders the full dependency graph, including excluded
// constants, as graphviz DOT code for debugging.
func DOTCode(consts []header.Constant, excluded map[string]error) []byte {
	byName := make(map[string]header.Constant, len(consts))
	names := make([]string, 0, len(consts))
	for _, c := range consts {
		byName[c.Name] = c
		names = append(names, c.Name)
	}
	slices.Sort(names)

	edges := func(name string) []string {
		return slices.DeleteFunc(slices.Clone(byName[name].Deps), func(d string) bool {
			_, ok := byName[d]
			return !ok
		})
	}

	return digraphutils.DOTCode(
		names,
		edges,
		"const_deps",
		`node[shape=box, style=filled]`,
		func(name string) string {
			if err, ok := excluded[name]; ok {
				return fmt.Sprintf(`[fillcolor=salmon, label="%v\n%v"]`, name, err)
			}
			return fmt.Sprintf(`[fillcolor=lightgrey, label="%v"]`, name)
		},
	)
}
