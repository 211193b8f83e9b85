package subgraph

import (
	"fmt"
	"strings"

	"github.com/ravi-parthasarathy/carver/pkg/workflow"
)

// ExtractStep lifts a single step out of wf as an independently runnable
// one-step pipeline. Every sourced input port of the step becomes a fresh
// top-level input (defaults carried over, link-merge directives dropped),
// and every output port becomes a top-level output wired back to the step
// through the canonical <parent>#<step>/<port> reference. Port types are
// left unconstrained; the layers that validate the result tighten them.
//
// The step record in the result is a copy; wf is left unmodified.
func ExtractStep(wf *workflow.Workflow, stepID string, ld Loader) (*workflow.Document, error) {
	raw, _, err := FindStep(wf.Steps, stepID, ld)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, &StepNotFoundError{ID: stepID}
	}

	sep := strings.LastIndex(raw.ID, "#")
	if sep < 0 {
		return nil, fmt.Errorf("subgraph: step id %q carries no fragment", raw.ID)
	}
	parentID, stepName := raw.ID[:sep], raw.ID[sep+1:]

	st := raw.Clone()
	out := wf.Doc.CloneShell()
	out.ID = parentID
	out.Steps = []*workflow.Step{st}
	out.Inputs = []*workflow.InputParam{}
	out.Outputs = []*workflow.OutputParam{}

	for _, in := range st.In {
		name := "#" + workflow.LocalName(in.ID)
		inp := &workflow.InputParam{ID: name, Type: "Any"}
		if in.Default != nil {
			inp.Default = in.Default
		}
		out.Inputs = append(out.Inputs, inp)

		in.Source = &workflow.SourceList{IDs: []string{name}, Scalar: true}
		// Link-merge semantics need the original multiple sources; the
		// isolated port is a plain pass-through.
		in.LinkMerge = ""
	}

	for _, op := range st.Out {
		name := workflow.LocalName(op.ID)
		out.Outputs = append(out.Outputs, &workflow.OutputParam{
			ID:   name,
			Type: "Any",
			OutputSource: &workflow.SourceList{
				IDs:    []string{fmt.Sprintf("%s#%s/%s", parentID, stepName, name)},
				Scalar: true,
			},
		})
	}

	return out, nil
}
