package subgraph

import (
	"fmt"

	"github.com/ravi-parthasarathy/carver/pkg/workflow"
)

// ResolveProcess maps a step identifier to the process definition the
// step runs, together with the live step object. A string run reference
// resolves through the loader's index of already-loaded documents;
// embedded and live definitions are returned as they are.
func ResolveProcess(wf *workflow.Workflow, stepID string, ld Loader) (workflow.Process, *workflow.WorkflowStep, error) {
	if ld == nil {
		return nil, nil, ErrMissingLoader
	}

	raw, ws, err := FindStep(wf.Steps, stepID, ld)
	if err != nil {
		return nil, nil, err
	}
	if raw == nil || ws == nil {
		return nil, nil, &StepNotFoundError{ID: stepID}
	}

	run := raw.Run
	switch {
	case run.Ref != "":
		proc, ok := ld.Resolved(run.Ref)
		if !ok {
			return nil, nil, &UnresolvedRefError{Ref: run.Ref}
		}
		return proc, ws, nil
	case run.Live != nil:
		return run.Live, ws, nil
	case run.Embedded != nil:
		if run.Embedded.Class == workflow.ClassWorkflow {
			nested, err := workflow.New(run.Embedded)
			if err != nil {
				return nil, nil, err
			}
			return nested, ws, nil
		}
		return &workflow.Tool{Doc: run.Embedded}, ws, nil
	}
	return nil, nil, fmt.Errorf("subgraph: step %q has no run target", stepID)
}
