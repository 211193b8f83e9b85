package workflow

import "fmt"

// ClassWorkflow is the document class subgraph extraction operates on.
const ClassWorkflow = "Workflow"

// Process is a runnable unit a step can point at: a command-line tool or
// a nested workflow.
type Process interface {
	Document() *Document
}

// Tool is any non-workflow process.
type Tool struct {
	Doc *Document
}

func (t *Tool) Document() *Document { return t.Doc }

// Workflow is a live pipeline: the raw document plus the step objects
// constructed from it.
type Workflow struct {
	Doc   *Document
	Steps []*WorkflowStep
}

func (w *Workflow) Document() *Document { return w.Doc }

// WorkflowStep pairs a step's raw document record with its constructed
// form. Inputs carries the step's ports annotated with the types the run
// target declares for them; ports whose type cannot be seen without
// loading an external document stay untyped.
type WorkflowStep struct {
	Tool   *Step
	Inputs []*TypedPort
}

// TypedPort is a step input port with its resolved declared type.
type TypedPort struct {
	ID     string
	Source *SourceList
	Type   any
}

// New builds a live Workflow from a parsed document.
func New(doc *Document) (*Workflow, error) {
	if doc.Class != ClassWorkflow {
		return nil, fmt.Errorf("workflow: cannot construct a workflow from class %q", doc.Class)
	}
	w := &Workflow{Doc: doc}
	for _, st := range doc.Steps {
		w.Steps = append(w.Steps, newStep(st))
	}
	return w, nil
}

func newStep(st *Step) *WorkflowStep {
	ws := &WorkflowStep{Tool: st}

	// Port types come from the run target's declared inputs, matched by
	// local port name.
	var declared map[string]any
	if proc := st.Run.processDoc(); proc != nil {
		declared = make(map[string]any, len(proc.Inputs))
		for _, inp := range proc.Inputs {
			declared[LocalName(inp.ID)] = inp.Type
		}
	}

	for _, in := range st.In {
		port := &TypedPort{ID: in.ID, Source: in.Source}
		if declared != nil {
			if tp, ok := declared[LocalName(in.ID)]; ok {
				port.Type = tp
			}
		}
		ws.Inputs = append(ws.Inputs, port)
	}
	return ws
}

// processDoc returns the run target's document when it is available
// without touching a loader.
func (r *Run) processDoc() *Document {
	switch {
	case r.Embedded != nil:
		return r.Embedded
	case r.Live != nil:
		return r.Live.Doc
	}
	return nil
}
