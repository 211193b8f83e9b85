// Package workflow models CWL-style pipeline documents: typed records for
// inputs, outputs and steps, plus the live objects a loader constructs
// from them. The YAML codec preserves top-level field order and carries
// fields the extractor does not interpret through a round trip untouched.
package workflow

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field is one uninterpreted mapping entry, kept verbatim in source order.
type Field struct {
	Name  string
	Value *yaml.Node
}

// Document is a parsed pipeline or process document.
type Document struct {
	Class      string
	ID         string
	CWLVersion string
	Inputs     []*InputParam
	Outputs    []*OutputParam
	Steps      []*Step

	// Extra holds top-level fields beyond the ones above (requirements,
	// hints, labels, ...). They pass through extraction verbatim.
	Extra []Field

	// order remembers every top-level key as it appeared in the source,
	// so a re-serialized document keeps its original field layout.
	order []string
}

// InputParam is a declared top-level input port.
type InputParam struct {
	ID      string
	Type    any
	Default any
	Extra   []Field
}

// OutputParam is a declared top-level output port.
type OutputParam struct {
	ID           string
	Type         any
	OutputSource *SourceList
	Extra        []Field
}

// Step is one unit of work in a pipeline.
type Step struct {
	ID    string
	In    []*StepInput
	Out   []StepOutput
	Run   Run
	Extra []Field
}

// StepInput is one entry of a step's in list. A nil Source means the port
// is unconnected or uses its default.
type StepInput struct {
	ID        string
	Source    *SourceList
	LinkMerge string
	Default   any
	Extra     []Field
}

// StepOutput is one entry of a step's out list: a bare identifier or a
// record carrying one.
type StepOutput struct {
	ID    string
	Extra []Field

	record bool
}

// SourceList is one or more upstream identifiers. The document may spell
// a source as a single scalar or as a sequence, and substitution rules
// differ between the two spellings, so the codec remembers which one it
// saw.
type SourceList struct {
	IDs    []string
	Scalar bool
}

// Run is a step's run field. Exactly one representation is set:
//
//	Ref      — string reference to an external document
//	Embedded — process map embedded in place
//	Live     — nested pipeline already constructed by a loader
type Run struct {
	Ref      string
	Embedded *Document
	Live     *Workflow
}

// Parse decodes one YAML pipeline or process document.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("workflow: parse document: %w", err)
	}
	return &d, nil
}

// LocalName returns the trailing path segment of an identifier:
// everything after the last fragment separator and the last slash.
func LocalName(id string) string {
	if i := strings.LastIndex(id, "#"); i >= 0 {
		id = id[i+1:]
	}
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	return id
}

// CloneShell returns a copy of d carrying its class, identifier, version
// and uninterpreted fields, with empty inputs, outputs and steps.
func (d *Document) CloneShell() *Document {
	return &Document{
		Class:      d.Class,
		ID:         d.ID,
		CWLVersion: d.CWLVersion,
		Extra:      append([]Field(nil), d.Extra...),
		order:      append([]string(nil), d.order...),
	}
}

// Clone returns a deep copy of the step record. Input records and their
// source lists are fresh; the run target and uninterpreted fields are
// shared, since extraction never rewrites them.
func (s *Step) Clone() *Step {
	out := &Step{
		ID:    s.ID,
		Run:   s.Run,
		Out:   append([]StepOutput(nil), s.Out...),
		Extra: append([]Field(nil), s.Extra...),
	}
	for _, in := range s.In {
		cp := *in
		if in.Source != nil {
			cp.Source = in.Source.Clone()
		}
		out.In = append(out.In, &cp)
	}
	return out
}

// Clone returns an independent copy of the list.
func (s *SourceList) Clone() *SourceList {
	return &SourceList{IDs: append([]string(nil), s.IDs...), Scalar: s.Scalar}
}

// Contains reports whether id appears in the list.
func (s *SourceList) Contains(id string) bool {
	for _, v := range s.IDs {
		if v == id {
			return true
		}
	}
	return false
}

// IsZero reports whether no run representation is set.
func (r *Run) IsZero() bool {
	return r.Ref == "" && r.Embedded == nil && r.Live == nil
}
