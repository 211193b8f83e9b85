package subgraph

import (
	"errors"
	"fmt"
)

// ErrMissingLoader is returned when an operation needs the document
// loader and none was supplied.
var ErrMissingLoader = errors.New("subgraph: document loader is required")

// NotWorkflowError is returned when subgraph extraction is requested on a
// document whose class is not Workflow.
type NotWorkflowError struct {
	Class string
}

func (e *NotWorkflowError) Error() string {
	return fmt.Sprintf("subgraph: can only extract a subgraph from a Workflow document, got class %q", e.Class)
}

// StepNotFoundError reports a step identifier with no match anywhere in
// the (possibly nested) step tree.
type StepNotFoundError struct {
	ID string
}

func (e *StepNotFoundError) Error() string {
	return fmt.Sprintf("subgraph: step %q was not found", e.ID)
}

// RewireError reports a step node with a dangling dependency but no
// locatable step record: the graph and the document disagree.
type RewireError struct {
	Step string
}

func (e *RewireError) Error() string {
	return fmt.Sprintf("subgraph: cannot rewire: step %q was not found in the document", e.Step)
}

// UnresolvedRefError reports a run reference the loader holds no resolved
// object for.
type UnresolvedRefError struct {
	Ref string
}

func (e *UnresolvedRefError) Error() string {
	return fmt.Sprintf("subgraph: run reference %q has not been resolved by the loader", e.Ref)
}
