package subgraph

import (
	"fmt"
	"strings"

	"github.com/ravi-parthasarathy/carver/pkg/workflow"
)

// Loader resolves external run references. It stands in for the document
// loading machinery outside this package: Load fetches and constructs the
// process behind a reference, Resolved consults the index of references
// that have already been loaded.
type Loader interface {
	Load(ref string) (workflow.Process, error)
	Resolved(ref string) (workflow.Process, bool)
}

// FindStep resolves stepID against steps, descending into nested
// workflows. It returns the raw step record and the live step object, or
// nil, nil when nothing matches at any depth.
//
// A step whose id is a strict prefix of the target owns the next scope:
// the search re-enters its run target with the remainder of the target.
// Each nested workflow has its own identifier namespace rooted at its own
// location, so for embedded and externally referenced workflows the
// remainder is rebased onto the nested document's top-level identifier
// before recursing; a live nested workflow is searched with the remainder
// as is.
func FindStep(steps []*workflow.WorkflowStep, stepID string, ld Loader) (*workflow.Step, *workflow.WorkflowStep, error) {
	for _, st := range steps {
		id := st.Tool.ID
		if id == stepID {
			return st.Tool, st, nil
		}
		if !strings.HasPrefix(stepID, id) || len(stepID) <= len(id)+1 {
			continue
		}
		if c := stepID[len(id)]; c != '/' && c != '#' {
			continue
		}
		suffix := stepID[len(id)+1:]

		run := st.Tool.Run
		switch {
		case run.Live != nil:
			raw, ws, err := FindStep(run.Live.Steps, suffix, ld)
			if raw != nil || err != nil {
				return raw, ws, err
			}
		case run.Embedded != nil && run.Embedded.Class == workflow.ClassWorkflow:
			nested, err := workflow.New(run.Embedded)
			if err != nil {
				return nil, nil, fmt.Errorf("subgraph: step %q: %w", id, err)
			}
			raw, ws, err := FindStep(nested.Steps, rebase(nested.Doc.ID, suffix), ld)
			if raw != nil || err != nil {
				return raw, ws, err
			}
		case run.Ref != "":
			if ld == nil {
				return nil, nil, ErrMissingLoader
			}
			proc, err := ld.Load(run.Ref)
			if err != nil {
				return nil, nil, fmt.Errorf("subgraph: step %q: load %q: %w", id, run.Ref, err)
			}
			nested, ok := proc.(*workflow.Workflow)
			if !ok {
				continue
			}
			raw, ws, err := FindStep(nested.Steps, rebase(nested.Doc.ID, suffix), ld)
			if raw != nil || err != nil {
				return raw, ws, err
			}
		}
	}
	return nil, nil, nil
}

// rebase joins a nested workflow's own top-level identifier with the step
// suffix carried over from the enclosing scope. A prefix that already
// holds a fragment extends with a path separator; otherwise the suffix
// becomes the fragment.
func rebase(prefix, suffix string) string {
	sep := "#"
	if strings.Contains(prefix, "#") {
		sep = "/"
	}
	return prefix + sep + suffix
}
