// Package graph models service registrations as a dependency graph and
// detects circular dependencies.
package graph

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// Key uniquely identifies a node in the graph.
type Key struct {
	Type reflect.Type
	Key  any // for keyed services
}

// String returns a string representation of the key.
func (k Key) String() string {
	if k.Key != nil {
		return fmt.Sprintf("%v[%v]", k.Type, k.Key)
	}
	return fmt.Sprintf("%v", k.Type)
}

// Graph is an adjacency-list dependency graph over service keys. It is built
// fresh for each analysis and never mutated concurrently, so it carries no
// locking.
type Graph struct {
	order []Key // node insertion order, for deterministic traversal
	nodes map[Key]struct{}
	edges map[Key][]Key
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[Key]struct{}),
		edges: make(map[Key][]Key),
	}
}

// AddNode adds a node if not already present.
func (g *Graph) AddNode(k Key) {
	if _, ok := g.nodes[k]; ok {
		return
	}
	g.nodes[k] = struct{}{}
	g.order = append(g.order, k)
}

// AddEdge adds a dependency edge from one node to another, creating missing
// nodes. Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to Key) {
	g.AddNode(from)
	g.AddNode(to)
	if slices.Contains(g.edges[from], to) {
		return
	}
	g.edges[from] = append(g.edges[from], to)
}

// Cycles finds every distinct cycle in the graph. Each starting node gets a
// fresh depth-first traversal with its own visited set; sharing visited state
// across starts can miss cycles only reachable through already-visited nodes.
// When the traversal revisits a node on the current path, the sub-path from
// that node's first occurrence is a cycle. Cycles found from multiple starts
// are deduplicated by canonical rotation. Worst case is O(V*(V+E)), which is
// fine for registration counts in a DI container.
func (g *Graph) Cycles() [][]Key {
	var cycles [][]Key
	seen := make(map[string]struct{})

	for _, start := range g.order {
		visited := make(map[Key]struct{})
		onPath := make(map[Key]int)
		var path []Key

		var dfs func(n Key)
		dfs = func(n Key) {
			if at, ok := onPath[n]; ok {
				cycle := slices.Clone(path[at:])
				sig := canonical(cycle)
				if _, dup := seen[sig]; !dup {
					seen[sig] = struct{}{}
					cycles = append(cycles, cycle)
				}
				return
			}
			if _, ok := visited[n]; ok {
				return
			}
			visited[n] = struct{}{}
			onPath[n] = len(path)
			path = append(path, n)

			for _, dep := range g.edges[n] {
				dfs(dep)
			}

			delete(onPath, n)
			path = path[:len(path)-1]
		}

		dfs(start)
	}

	return cycles
}

// canonical produces a rotation-invariant signature for a cycle so the same
// cycle discovered from different starting nodes compares equal.
func canonical(cycle []Key) string {
	if len(cycle) == 0 {
		return ""
	}

	min := 0
	for i := 1; i < len(cycle); i++ {
		if cycle[i].String() < cycle[min].String() {
			min = i
		}
	}

	var b strings.Builder
	for i := 0; i < len(cycle); i++ {
		b.WriteString(cycle[(min+i)%len(cycle)].String())
		b.WriteString(" -> ")
	}
	return b.String()
}
