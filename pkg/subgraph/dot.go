package subgraph

import (
	"fmt"
	"strconv"

	gographviz "github.com/awalterschulze/gographviz"

	"github.com/ravi-parthasarathy/carver/pkg/workflow"
)

// DOT renders wf's dependency graph in Graphviz DOT form: boxes for
// steps, ellipses for declared inputs and outputs, points for interior
// data links, and one directed edge per dependency. Nodes appear in
// declaration order, so the output is stable for a given document.
func DOT(wf *workflow.Workflow) (string, error) {
	g := build(wf.Doc)

	gv := gographviz.NewGraph()
	name := "workflow"
	if err := gv.SetName(name); err != nil {
		return "", fmt.Errorf("subgraph: dot graph: %w", err)
	}
	if err := gv.SetDir(true); err != nil {
		return "", fmt.Errorf("subgraph: dot graph: %w", err)
	}

	for _, id := range g.order {
		n := g.nodes[id]
		attrs := map[string]string{
			"shape": shapeFor(n.kind),
			"label": strconv.Quote(workflow.LocalName(id)),
		}
		if err := gv.AddNode(name, strconv.Quote(id), attrs); err != nil {
			return "", fmt.Errorf("subgraph: dot node %q: %w", id, err)
		}
	}
	for _, id := range g.order {
		for _, dst := range g.nodes[id].down {
			if err := gv.AddEdge(strconv.Quote(id), strconv.Quote(dst), true, nil); err != nil {
				return "", fmt.Errorf("subgraph: dot edge %q -> %q: %w", id, dst, err)
			}
		}
	}
	return gv.String(), nil
}

func shapeFor(k kind) string {
	switch k {
	case kindStep:
		return "box"
	case kindInput, kindOutput:
		return "ellipse"
	}
	return "point"
}
