// Package subgraph carves minimal runnable slices out of workflow
// documents: the subgraph reachable from a set of roots, a single step as
// a standalone pipeline, or the process definition behind a step.
//
// All operations read the document through the types in pkg/workflow and
// return freshly assembled documents; the caller's document is never
// modified.
package subgraph

import (
	"github.com/ravi-parthasarathy/carver/pkg/workflow"
)

// kind classifies a node in the dependency graph. The zero value is
// kindUnclassified: an interior data link whose role is implied only by
// its edges. declare promotes a node from unclassified to a concrete
// kind at most once and never overwrites a concrete kind.
type kind int

const (
	kindUnclassified kind = iota
	kindInput
	kindOutput
	kindStep
)

func (k kind) String() string {
	switch k {
	case kindInput:
		return "input"
	case kindOutput:
		return "output"
	case kindStep:
		return "step"
	}
	return "unclassified"
}

// node is one vertex of the dependency graph.
type node struct {
	up   []string // dependencies
	down []string // dependents
	kind kind
}

// graph is the per-extraction node registry. Nodes are created lazily the
// first time a declaration or edge names them; order remembers the
// declaration sequence so later passes over the registry are
// deterministic.
type graph struct {
	nodes map[string]*node
	order []string
}

func newGraph() *graph {
	return &graph{nodes: make(map[string]*node)}
}

// declare records id in the registry and returns its node. A node already
// present keeps its kind unless it is still unclassified.
func (g *graph) declare(id string, k kind) *node {
	n, ok := g.nodes[id]
	if !ok {
		n = &node{kind: k}
		g.nodes[id] = n
		g.order = append(g.order, id)
		return n
	}
	if n.kind == kindUnclassified {
		n.kind = k
	}
	return n
}

// build populates a fresh registry from a pipeline document: declared
// inputs and outputs by name, and for every step one upstream edge per
// source identifier and one downstream edge per output port.
func build(doc *workflow.Document) *graph {
	g := newGraph()

	for _, inp := range doc.Inputs {
		g.declare(inp.ID, kindInput)
	}

	for _, out := range doc.Outputs {
		on := g.declare(out.ID, kindOutput)
		if out.OutputSource == nil {
			continue
		}
		for _, src := range out.OutputSource.IDs {
			on.up = append(on.up, src)
			sn := g.declare(src, kindUnclassified)
			sn.down = append(sn.down, out.ID)
		}
	}

	for _, st := range doc.Steps {
		stn := g.declare(st.ID, kindStep)
		for _, in := range st.In {
			if in.Source == nil {
				continue
			}
			for _, src := range in.Source.IDs {
				stn.up = append(stn.up, src)
				sn := g.declare(src, kindUnclassified)
				sn.down = append(sn.down, st.ID)
			}
		}
		for _, out := range st.Out {
			stn.down = append(stn.down, out.ID)
			on := g.declare(out.ID, kindUnclassified)
			on.up = append(on.up, st.ID)
		}
	}

	return g
}

// direction selects which adjacency list the walker follows.
type direction int

const (
	walkDown direction = iota // follow dependents
	walkUp                    // follow dependencies
)

// walk depth-first visits every node reachable from id in one direction,
// adding each to visited. An already-visited node stops the recursion, so
// a cyclic graph cannot loop the walker.
func (g *graph) walk(id string, dir direction, visited map[string]bool) {
	if visited[id] {
		return
	}
	visited[id] = true
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	next := n.down
	if dir == walkUp {
		next = n.up
	}
	for _, c := range next {
		g.walk(c, dir, visited)
	}
}
