package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/typefn/internal/ir"
)

// CycleWarning describes a group of mutually recursive type definitions.
//
// Level is "info" when some field on the cycle goes through an optional,
// list, map or union, which gives the types a finite value. A cycle made of
// plain record references only is reported as "warning": registry.Build
// rejects it with RECURSIVE_DEFINITION.
type CycleWarning struct {
	Path    []string `json:"path"` // e.g. ["Tree", "Forest", "Tree"]
	Message string   `json:"message"`
	Level   string   `json:"level"`
}

// AnalyzeCycles reports every strongly connected group of record types, in
// declaration order of each group's first member. It never fails: names
// that are not declared are ignored, validation reports them.
func AnalyzeCycles(schema ir.Schema) []CycleWarning {
	g := newTypeGraph(schema.Types)
	warnings := []CycleWarning{}
	for _, group := range g.components() {
		if len(group) == 1 && !g.hasEdge(group[0], group[0]) {
			continue
		}
		warnings = append(warnings, g.describe(group))
	}
	return warnings
}

// edge is a field-level reference between two declared types. Direct edges
// come from a field whose type is the named type itself.
type edge struct {
	to     string
	direct bool
}

type typeGraph struct {
	order []string
	pos   map[string]int
	edges map[string][]edge
}

func newTypeGraph(defs []ir.TypeDef) *typeGraph {
	g := &typeGraph{pos: make(map[string]int), edges: make(map[string][]edge)}
	for _, def := range defs {
		if _, dup := g.pos[def.Name]; dup {
			continue
		}
		g.pos[def.Name] = len(g.order)
		g.order = append(g.order, def.Name)
	}
	for _, def := range defs {
		for _, f := range def.Fields {
			for _, ref := range f.Type.References() {
				if _, declared := g.pos[ref]; !declared {
					continue
				}
				direct := f.Type.Kind == ir.TypeNamed && f.Type.Name == ref
				g.edges[def.Name] = append(g.edges[def.Name], edge{to: ref, direct: direct})
			}
		}
	}
	return g
}

func (g *typeGraph) hasEdge(from, to string) bool {
	return slices.ContainsFunc(g.edges[from], func(e edge) bool { return e.to == to })
}

// components returns the strongly connected components (Tarjan), each
// rotated to start at its earliest declared member and sorted by it.
func (g *typeGraph) components() [][]string {
	t := &tarjan{
		g:       g,
		index:   make(map[string]int),
		low:     make(map[string]int),
		onStack: make(map[string]bool),
	}
	for _, name := range g.order {
		if _, seen := t.index[name]; !seen {
			t.visit(name)
		}
	}

	for i, c := range t.out {
		first := 0
		for j, name := range c {
			if g.pos[name] < g.pos[c[first]] {
				first = j
			}
		}
		t.out[i] = append(c[first:], c[:first]...)
	}
	slices.SortFunc(t.out, func(a, b []string) int { return g.pos[a[0]] - g.pos[b[0]] })
	return t.out
}

type tarjan struct {
	g       *typeGraph
	next    int
	index   map[string]int
	low     map[string]int
	onStack map[string]bool
	stack   []string
	out     [][]string
}

func (t *tarjan) visit(v string) {
	t.index[v] = t.next
	t.low[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, e := range t.g.edges[v] {
		if _, seen := t.index[e.to]; !seen {
			t.visit(e.to)
			t.low[v] = min(t.low[v], t.low[e.to])
		} else if t.onStack[e.to] {
			t.low[v] = min(t.low[v], t.index[e.to])
		}
	}

	if t.low[v] != t.index[v] {
		return
	}
	var c []string
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		c = append(c, w)
		if w == v {
			break
		}
	}
	t.out = append(t.out, c)
}

func (g *typeGraph) describe(group []string) CycleWarning {
	path, direct := g.walk(group)

	w := CycleWarning{Path: path, Level: "info"}
	if len(group) == 1 {
		w.Message = fmt.Sprintf("Self-referential type: %s → %s", path[0], path[0])
	} else {
		w.Message = fmt.Sprintf("Mutually recursive types: %s", strings.Join(path, " → "))
	}
	if direct {
		w.Level = "warning"
		w.Message += " (no optional, list or map breaks the cycle)"
	}
	return w
}

// walk follows edges inside group from its first member back to it and
// reports whether every edge taken was direct. Direct edges are preferred
// so that an unguarded cycle is found when one exists on the walk.
func (g *typeGraph) walk(group []string) ([]string, bool) {
	members := make(map[string]bool, len(group))
	for _, name := range group {
		members[name] = true
	}

	start := group[0]
	path := []string{start}
	visited := map[string]bool{start: true}
	allDirect := true
	for cur := start; ; {
		var (
			next  edge
			found bool
		)
		for _, e := range g.edges[cur] {
			if !members[e.to] || (visited[e.to] && e.to != start) {
				continue
			}
			if !found || (e.direct && !next.direct) {
				next, found = e, true
			}
		}
		if !found {
			return path, false
		}
		allDirect = allDirect && next.direct
		path = append(path, next.to)
		if next.to == start {
			return path, allDirect
		}
		visited[next.to] = true
		cur = next.to
	}
}
