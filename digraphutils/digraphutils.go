// Package digraphutils provides utilities for directed graphs,
// represented as a mapping from node keys to edges.
package digraphutils

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/swephjs/swegen/textutils"
)

// Reachable returns the set of nodes reachable from roots by
// repeatedly following edges. Roots themselves are included.
func Reachable[K comparable](roots []K, edges func(K) []K) map[K]struct{} {
	reachable := map[K]struct{}{}
	nodes := slices.Clone(roots)
	var newNodes []K
	for len(nodes) > 0 {
		for _, node := range nodes {
			if _, ok := reachable[node]; ok {
				continue
			}
			reachable[node] = struct{}{}
			newNodes = append(newNodes, edges(node)...)
		}
		nodes, newNodes = newNodes, nodes[:0]
	}
	return reachable
}

// DOTCode generates graphviz DOT code to visualize a graph.
// nodes represents all nodes included in the graph. Edges pointing at
// nodes outside that set are dropped. name is the name of the digraph,
// prelude is DOT code inserted at the beginning, and nodeAttrs should
// return a string representing a node's attributes (in []).
func DOTCode[K comparable](nodes []K, edges func(K) []K, name, prelude string, nodeAttrs func(K) string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "digraph %v {\n", name)
	if prelude = strings.TrimSpace(prelude); prelude != "" {
		b.WriteString(textutils.IndentString(prelude, "  ", 1))
		b.WriteByte('\n')
	}
	nodeIDs := map[K]int{}
	for id, key := range nodes {
		fmt.Fprintf(&b, "  %v", id)
		if attrs := nodeAttrs(key); attrs != "" {
			b.WriteByte(' ')
			b.WriteString(attrs)
		}
		b.WriteByte('\n')
		nodeIDs[key] = id
	}
	for id, key := range nodes {
		edgs := slices.DeleteFunc(slices.Clone(edges(key)), func(k K) bool {
			_, ok := nodeIDs[k]
			return !ok
		})
		if len(edgs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %v -> {", id)
		for i, edg := range edgs {
			if i != 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%v", nodeIDs[edg])
		}
		fmt.Fprintf(&b, "}\n")
	}
	fmt.Fprintf(&b, "}\n")
	return b.Bytes()
}
