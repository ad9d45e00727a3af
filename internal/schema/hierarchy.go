package schema

import (
	"fmt"
	"sort"
	"strings"
)

// HierarchyGraph represents the parent and extension relations between classes
type HierarchyGraph struct {
	nodes map[string]*MetaClass
	edges map[string][]string // class -> classes it depends on
}

// NewHierarchyGraph creates a new hierarchy graph keyed by class URI
func NewHierarchyGraph(classes map[string]*MetaClass) *HierarchyGraph {
	graph := &HierarchyGraph{
		nodes: classes,
		edges: make(map[string][]string),
	}

	for uri, class := range classes {
		for _, parent := range class.Parents {
			graph.edges[uri] = append(graph.edges[uri], parent.URI)
		}
		for _, target := range class.ExtensionOf {
			graph.edges[uri] = append(graph.edges[uri], target.URI)
		}
		sort.Strings(graph.edges[uri])
	}

	return graph
}

// DetectCycles detects circular inheritance or extension chains
func (g *HierarchyGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	recursionStack := make(map[string]bool)

	var dfs func(node string, path []string) bool
	dfs = func(node string, path []string) bool {
		visited[node] = true
		recursionStack[node] = true
		path = append(path, node)

		for _, neighbor := range g.edges[node] {
			if !visited[neighbor] {
				if dfs(neighbor, path) {
					return true
				}
			} else if recursionStack[neighbor] {
				for i, n := range path {
					if n == neighbor {
						cycle := make([]string, len(path)-i)
						copy(cycle, path[i:])
						cycles = append(cycles, cycle)
						break
					}
				}
				return true
			}
		}

		recursionStack[node] = false
		return false
	}

	for _, node := range g.sortedNodes() {
		if !visited[node] {
			dfs(node, []string{})
		}
	}

	return cycles
}

// TopologicalSort returns classes in dependency order (parents first)
func (g *HierarchyGraph) TopologicalSort() ([]string, error) {
	outDegree := make(map[string]int)
	for node := range g.nodes {
		count := 0
		for _, dep := range g.edges[node] {
			if _, known := g.nodes[dep]; known {
				count++
			}
		}
		outDegree[node] = count
	}

	reverseEdges := make(map[string][]string)
	for source, targets := range g.edges {
		for _, target := range targets {
			reverseEdges[target] = append(reverseEdges[target], source)
		}
	}

	queue := []string{}
	for _, node := range g.sortedNodes() {
		if outDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := []string{}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		dependents := reverseEdges[node]
		sort.Strings(dependents)
		for _, dependent := range dependents {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		if cycles := g.DetectCycles(); len(cycles) > 0 {
			return nil, fmt.Errorf("circular class hierarchy detected: %s", formatCycles(cycles))
		}
		return nil, fmt.Errorf("circular class hierarchy detected")
	}

	return result, nil
}

// GetDependencies returns the direct parents and extended classes of a class
func (g *HierarchyGraph) GetDependencies(uri string) []string {
	deps, exists := g.edges[uri]
	if !exists {
		return []string{}
	}
	return deps
}

// GetDependents returns all classes directly deriving from or extending a class
func (g *HierarchyGraph) GetDependents(uri string) []string {
	dependents := []string{}
	for _, node := range g.sortedNodes() {
		for _, dep := range g.edges[node] {
			if dep == uri {
				dependents = append(dependents, node)
				break
			}
		}
	}
	return dependents
}

func (g *HierarchyGraph) sortedNodes() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// formatCycles formats cycle information for error messages
func formatCycles(cycles [][]string) string {
	var b strings.Builder
	for i, cycle := range cycles {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("  Cycle %d: %s -> %s",
			i+1,
			strings.Join(cycle, " -> "),
			cycle[0]))
	}
	return b.String()
}
