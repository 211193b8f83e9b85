package subgraph

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ravi-parthasarathy/carver/pkg/workflow"
)

// Extract computes the minimal connected subgraph of wf reachable from
// roots and returns it as a self-contained document. Steps, inputs and
// outputs outside the slice are dropped in place, keeping the original
// record order; dependencies that would dangle outside the slice are
// rewired onto freshly synthesized top-level inputs appended at the end.
//
// A root of kind Output is walked upstream (everything that produces it);
// any other root is walked downstream (everything it feeds).
//
// The input document is never modified: every step record in the result
// is a fresh copy.
func Extract(roots []string, wf *workflow.Workflow, ld Loader) (*workflow.Document, error) {
	doc := wf.Doc
	if doc.Class != workflow.ClassWorkflow {
		return nil, &NotWorkflowError{Class: doc.Class}
	}

	g := build(doc)

	reached := make(map[string]bool)
	for _, r := range roots {
		n, ok := g.nodes[r]
		if !ok {
			return nil, fmt.Errorf("subgraph: root %q is not in the workflow graph", r)
		}
		if n.kind == kindOutput {
			g.walk(r, walkUp, reached)
		} else {
			g.walk(r, walkDown, reached)
		}
	}

	visited, rw, err := rewire(g, reached, wf, ld)
	if err != nil {
		return nil, err
	}

	out := doc.CloneShell()
	for _, inp := range doc.Inputs {
		if visited[inp.ID] {
			out.Inputs = append(out.Inputs, inp)
		}
	}
	for _, op := range doc.Outputs {
		if visited[op.ID] {
			out.Outputs = append(out.Outputs, op)
		}
	}
	for _, st := range doc.Steps {
		if !visited[st.ID] {
			continue
		}
		cp := st.Clone()
		for _, in := range cp.In {
			rw.substitute(in, visited)
		}
		out.Steps = append(out.Steps, cp)
	}
	if out.Inputs == nil {
		out.Inputs = []*workflow.InputParam{}
	}
	if out.Outputs == nil {
		out.Outputs = []*workflow.OutputParam{}
	}
	if out.Steps == nil {
		out.Steps = []*workflow.Step{}
	}
	for _, orig := range rw.order {
		e := rw.entries[orig]
		typ := e.typ
		if typ == nil {
			// The owning step's run target was an unloaded reference, so
			// no declared type could be mined for the port.
			typ = "Any"
		}
		out.Inputs = append(out.Inputs, &workflow.InputParam{ID: e.id, Type: typ})
	}

	slog.Info("extracted subgraph",
		"roots", len(roots),
		"steps", len(out.Steps),
		"synthesized_inputs", len(rw.order))
	return out, nil
}

// rewireEntry records the synthesized replacement for one dangling
// upstream identifier: the new input's identifier and its declared type.
type rewireEntry struct {
	id  string
	typ any
}

type rewireTable struct {
	entries map[string]rewireEntry
	order   []string
}

func (t *rewireTable) add(orig, id string, typ any) {
	if _, ok := t.entries[orig]; ok {
		return
	}
	t.entries[orig] = rewireEntry{id: id, typ: typ}
	t.order = append(t.order, orig)
}

// rewire widens the reached set into the final visited set and builds the
// substitution table for dependencies pointing outside it.
//
// Declared pipeline inputs are always retained: a surviving step keeps
// every binding to a top-level input even when the walk never reached it.
// Any other unreached dependency of a surviving step is flattened into a
// new top-level input, typed from the first input port of the owning step
// whose source mentions it. Unreached dependencies of a surviving output
// carry no typed port to mine and earn no table entry.
func rewire(g *graph, reached map[string]bool, wf *workflow.Workflow, ld Loader) (map[string]bool, *rewireTable, error) {
	visited := make(map[string]bool, len(reached))
	rw := &rewireTable{entries: make(map[string]rewireEntry)}

	for _, v := range g.order {
		if !reached[v] {
			continue
		}
		visited[v] = true
		n := g.nodes[v]
		if n.kind != kindStep && n.kind != kindOutput {
			continue
		}
		for _, u := range n.up {
			switch {
			case reached[u]:
				// Inside the slice; it joins visited on its own pass.
			case g.nodes[u].kind == kindInput:
				visited[u] = true
			case n.kind == kindStep:
				if _, ok := rw.entries[u]; ok {
					continue
				}
				name := flatten(u)
				_, ws, err := FindStep(wf.Steps, v, ld)
				if err != nil {
					return nil, nil, err
				}
				if ws == nil {
					return nil, nil, &RewireError{Step: v}
				}
				for _, port := range ws.Inputs {
					if port.Source != nil && port.Source.Contains(u) {
						slog.Debug("rewiring dangling source", "source", u, "input", name, "step", v)
						rw.add(u, name, port.Type)
						break
					}
				}
			}
		}
	}
	return visited, rw, nil
}

// flatten turns a dangling identifier into a top-level input name: path
// separators inside the fragment collapse to underscores.
func flatten(id string) string {
	base, frag, _ := strings.Cut(id, "#")
	return base + "#" + strings.ReplaceAll(frag, "/", "_")
}

// substitute rewrites a port's source against the table. A scalar source
// is replaced only on an exact match. A list source is rewritten
// element-wise: rewired identifiers are substituted, identifiers inside
// the extracted slice are kept, and dangling identifiers that earned no
// table entry are dropped.
func (t *rewireTable) substitute(in *workflow.StepInput, visited map[string]bool) {
	if in.Source == nil {
		return
	}
	if in.Source.Scalar {
		if e, ok := t.entries[in.Source.IDs[0]]; ok {
			in.Source = &workflow.SourceList{IDs: []string{e.id}, Scalar: true}
		}
		return
	}
	ids := make([]string, 0, len(in.Source.IDs))
	for _, s := range in.Source.IDs {
		if e, ok := t.entries[s]; ok {
			ids = append(ids, e.id)
			continue
		}
		if visited[s] {
			ids = append(ids, s)
		}
	}
	in.Source = &workflow.SourceList{IDs: ids}
}
