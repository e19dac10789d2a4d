package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/bindgen/internal/ir"
)

// CycleError reports a loop in the class hierarchy or the module import
// graph. Either makes the resolve pass diverge, so both are errors.
type CycleError struct {
	Kind    string   `json:"kind"`    // "class" or "module"
	Path    []string `json:"path"`    // ["A", "B", "A"]
	Message string   `json:"message"` // Human-readable description
}

func (e CycleError) Error() string {
	return e.Message
}

// AnalyzeCycles runs Tarjan's strongly connected components algorithm over
// the super-class graph and the module import graph and reports every SCC
// with more than one node, or a single node with a self-loop.
//
// Nodes are visited in name order so the report is the same on every run.
// An acyclic spec returns an empty list.
func AnalyzeCycles(spec *ir.Spec) []CycleError {
	errs := []CycleError{}

	classes := make(dependencyGraph)
	for i := range spec.Classes {
		c := &spec.Classes[i]
		name := c.Name.String()
		classes[name] = []string{}
		for _, sup := range c.Supers {
			if sup >= 0 && int(sup) < len(spec.Classes) {
				classes[name] = append(classes[name], spec.Classes[sup].Name.String())
			}
		}
	}
	errs = append(errs, findCycles("class", classes)...)

	modules := make(dependencyGraph)
	for i := range spec.Modules {
		m := &spec.Modules[i]
		modules[m.Name] = []string{}
		for _, imp := range m.Imports {
			if imp >= 0 && int(imp) < len(spec.Modules) {
				modules[m.Name] = append(modules[m.Name], spec.Modules[imp].Name)
			}
		}
	}
	errs = append(errs, findCycles("module", modules)...)
	return errs
}

// dependencyGraph maps a node to the nodes it depends on.
type dependencyGraph map[string][]string

func findCycles(kind string, graph dependencyGraph) []CycleError {
	var errs []CycleError
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			errs = append(errs, sccToError(kind, scc, graph))
		}
	}
	return errs
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

func sortedNodes(graph dependencyGraph) []string {
	nodes := make([]string, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node SCCs without self-loops are not cycles.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is the root of an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, node := range sortedNodes(graph) {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sccToError(kind string, scc []string, graph dependencyGraph) CycleError {
	var path []string
	if len(scc) == 1 {
		path = []string{scc[0], scc[0]}
	} else {
		path = reconstructCyclePath(scc, graph)
	}
	what := "inheritance"
	if kind == "module" {
		what = "import"
	}
	return CycleError{
		Kind:    kind,
		Path:    path,
		Message: fmt.Sprintf("%s cycle: %s", what, strings.Join(path, " -> ")),
	}
}

// reconstructCyclePath follows edges inside the SCC from its first node
// until it gets back there.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	inSCC := make(map[string]bool, len(scc))
	for _, node := range scc {
		inSCC[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if inSCC[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
