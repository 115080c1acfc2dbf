package depgraph

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swephjs/swegen/header"
)

func c(name string, deps ...string) header.Constant {
	return header.Constant{Name: name, Value: "0", Deps: deps}
}

func position(t *testing.T, ordered []header.Constant, name string) int {
	t.Helper()
	i := slices.IndexFunc(ordered, func(c header.Constant) bool { return c.Name == name })
	require.NotEqual(t, -1, i, "constant %v not in order", name)
	return i
}

func TestSortDependencyOrder(t *testing.T) {
	require := require.New(t)

	res := Sort([]header.Constant{
		c("C", "A", "B"),
		c("B", "A"),
		c("A"),
		c("D"),
	})
	require.Empty(res.Excluded)
	require.Empty(res.Cyclic)
	require.Len(res.Ordered, 4)

	for _, cst := range res.Ordered {
		for _, d := range cst.Deps {
			require.Less(
				position(t, res.Ordered, d),
				position(t, res.Ordered, cst.Name),
				"%v must appear before %v", d, cst.Name,
			)
		}
	}
}

func TestSortExclusionClosure(t *testing.T) {
	require := require.New(t)

	res := Sort([]header.Constant{
		c("A"),
		c("X", "UNDEFINED_NAME"),
		c("Y", "X"),
		c("Z", "Y", "A"),
		c("B", "A"),
	})

	require.Len(res.Ordered, 2)
	require.Equal("A", res.Ordered[0].Name)
	require.Equal("B", res.Ordered[1].Name)

	require.Len(res.Excluded, 3)
	require.Contains(res.Excluded, "X")
	require.Contains(res.Excluded, "Y")
	require.Contains(res.Excluded, "Z")
	require.ErrorContains(res.Excluded["X"], "UNDEFINED_NAME")
}

func TestSortCycleTolerated(t *testing.T) {
	require := require.New(t)

	res := Sort([]header.Constant{
		c("P", "Q"),
		c("Q", "P"),
		c("R", "P"),
	})

	// cyclic constants are retained, not excluded
	require.Empty(res.Excluded)
	require.Len(res.Ordered, 3)
	require.NotEmpty(res.Cyclic)
	// non-cyclic dependents still come after their dependency
	require.Less(position(t, res.Ordered, "P"), position(t, res.Ordered, "R"))
}

func TestSortVisitsEachConstantOnce(t *testing.T) {
	require := require.New(t)

	res := Sort([]header.Constant{
		c("A"),
		c("B", "A"),
		c("C", "A", "B"),
		c("D", "A", "A", "B"),
	})
	require.Len(res.Ordered, 4)

	seen := map[string]int{}
	for _, cst := range res.Ordered {
		seen[cst.Name]++
	}
	for name, n := range seen {
		require.Equal(1, n, "constant %v emitted %v times", name, n)
	}
}

func TestDOTCode(t *testing.T) {
	require := require.New(t)

	consts := []header.Constant{c("A"), c("B", "A"), c("X", "MISSING")}
	res := Sort(consts)
	dot := string(DOTCode(consts, res.Excluded))
	require.Contains(dot, "digraph const_deps")
	require.Contains(dot, `label="A"`)
	require.Contains(dot, "salmon")
}
