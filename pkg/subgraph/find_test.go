package subgraph_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ravi-parthasarathy/carver/pkg/subgraph"
	"github.com/ravi-parthasarathy/carver/pkg/workflow"
)

// stubLoader serves processes from a fixed map and records every load.
type stubLoader struct {
	procs map[string]workflow.Process
	loads []string
}

func (s *stubLoader) Load(ref string) (workflow.Process, error) {
	s.loads = append(s.loads, ref)
	p, ok := s.procs[ref]
	if !ok {
		return nil, fmt.Errorf("stub: unknown ref %q", ref)
	}
	return p, nil
}

func (s *stubLoader) Resolved(ref string) (workflow.Process, bool) {
	p, ok := s.procs[ref]
	return p, ok
}

// innerTool is the process definition shared by the nested fixtures.
const innerTool = `
class: CommandLineTool
id: "inner/run"
inputs:
  - id: "x"
    type: string
outputs:
  - id: "out"
    type: string
`

// nestedDoc builds a sub-workflow document with one step under the given
// top-level id; stepID is the step's full identifier inside it.
func nestedDoc(t *testing.T, wfID, stepID string) *workflow.Document {
	t.Helper()
	doc, err := workflow.Parse([]byte(fmt.Sprintf(`
class: Workflow
cwlVersion: v1.2
id: %q
inputs: []
outputs: []
steps:
  - id: %q
    in: []
    out: [%q]
    run:%s
`, wfID, stepID, stepID+"/out", indent(innerTool, "      "))))
	if err != nil {
		t.Fatalf("parse nested fixture: %v", err)
	}
	return doc
}

func indent(src, prefix string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, line := range strings.Split(strings.TrimSpace(src), "\n") {
		b.WriteString(prefix + line + "\n")
	}
	return b.String()
}

// outerWorkflow wraps a single step around the given run representation.
func outerWorkflow(t *testing.T, run workflow.Run) *workflow.Workflow {
	t.Helper()
	doc, err := workflow.Parse([]byte(`
class: Workflow
cwlVersion: v1.2
id: "wf"
inputs: []
outputs: []
steps:
  - id: "wf#outer"
    in: []
    out: ["wf#outer/result"]
`))
	if err != nil {
		t.Fatalf("parse outer fixture: %v", err)
	}
	doc.Steps[0].Run = run
	wf, err := workflow.New(doc)
	if err != nil {
		t.Fatalf("construct outer workflow: %v", err)
	}
	return wf
}

// ─── FindStep tests ───────────────────────────────────────────────────────────

func TestFindStep_ExactMatch(t *testing.T) {
	wf := mustWorkflow(t, linearWF)
	raw, ws, err := subgraph.FindStep(wf.Steps, "wf#B", nil)
	if err != nil {
		t.Fatalf("FindStep: %v", err)
	}
	if raw == nil || ws == nil {
		t.Fatal("step not found")
	}
	if raw.ID != "wf#B" {
		t.Errorf("raw.ID = %q, want wf#B", raw.ID)
	}
	if ws.Tool != raw {
		t.Error("live step does not wrap the returned raw record")
	}
}

func TestFindStep_NoMatch(t *testing.T) {
	wf := mustWorkflow(t, linearWF)
	raw, ws, err := subgraph.FindStep(wf.Steps, "wf#missing", nil)
	if err != nil {
		t.Fatalf("FindStep: %v", err)
	}
	if raw != nil || ws != nil {
		t.Errorf("FindStep = (%v, %v), want (nil, nil)", raw, ws)
	}
}

func TestFindStep_NoPartialIDMatch(t *testing.T) {
	// "wf#AB" must not match the step "wf#A": the target has to continue
	// past the step id by a separator.
	wf := mustWorkflow(t, linearWF)
	raw, _, err := subgraph.FindStep(wf.Steps, "wf#AB", nil)
	if err != nil {
		t.Fatalf("FindStep: %v", err)
	}
	if raw != nil {
		t.Errorf("FindStep matched %q for target wf#AB", raw.ID)
	}
}

func TestFindStep_RequiresSeparatorBeforeSuffix(t *testing.T) {
	// "wf#outerXinner" shares a prefix with the step "wf#outer" but the
	// next character is not a path separator, so the search must not
	// descend into the step's nested workflow.
	sub := nestedDoc(t, "sub", "sub#inner")
	wf := outerWorkflow(t, workflow.Run{Embedded: sub})

	raw, ws, err := subgraph.FindStep(wf.Steps, "wf#outerXinner", nil)
	if err != nil {
		t.Fatalf("FindStep: %v", err)
	}
	if raw != nil || ws != nil {
		t.Errorf("FindStep = (%v, %v), want (nil, nil)", raw, ws)
	}
}

func TestFindStep_EmbeddedWorkflow(t *testing.T) {
	sub := nestedDoc(t, "sub", "sub#inner")
	wf := outerWorkflow(t, workflow.Run{Embedded: sub})

	raw, ws, err := subgraph.FindStep(wf.Steps, "wf#outer/inner", nil)
	if err != nil {
		t.Fatalf("FindStep: %v", err)
	}
	if raw == nil || ws == nil {
		t.Fatal("nested step not found through embedded workflow")
	}
	if workflow.LocalName(raw.ID) != "inner" {
		t.Errorf("raw.ID = %q, want local name inner", raw.ID)
	}
}

func TestFindStep_LiveWorkflow(t *testing.T) {
	// A live nested workflow is searched with the plain suffix: its step
	// identifiers are already in the enclosing scope's terms.
	sub, err := workflow.New(nestedDoc(t, "sub", "inner"))
	if err != nil {
		t.Fatalf("construct nested workflow: %v", err)
	}
	wf := outerWorkflow(t, workflow.Run{Live: sub})

	raw, ws, err := subgraph.FindStep(wf.Steps, "wf#outer/inner", nil)
	if err != nil {
		t.Fatalf("FindStep: %v", err)
	}
	if raw == nil || ws == nil {
		t.Fatal("nested step not found through live workflow")
	}
	if workflow.LocalName(raw.ID) != "inner" {
		t.Errorf("raw.ID = %q, want local name inner", raw.ID)
	}
}

func TestFindStep_ExternalReference(t *testing.T) {
	sub, err := workflow.New(nestedDoc(t, "sub", "sub#inner"))
	if err != nil {
		t.Fatalf("construct nested workflow: %v", err)
	}
	ld := &stubLoader{procs: map[string]workflow.Process{"sub.cwl": sub}}
	wf := outerWorkflow(t, workflow.Run{Ref: "sub.cwl"})

	raw, ws, err := subgraph.FindStep(wf.Steps, "wf#outer/inner", ld)
	if err != nil {
		t.Fatalf("FindStep: %v", err)
	}
	if raw == nil || ws == nil {
		t.Fatal("nested step not found through external reference")
	}
	if workflow.LocalName(raw.ID) != "inner" {
		t.Errorf("raw.ID = %q, want local name inner", raw.ID)
	}
	if len(ld.loads) != 1 || ld.loads[0] != "sub.cwl" {
		t.Errorf("loader calls = %v, want exactly one load of sub.cwl", ld.loads)
	}
}

func TestFindStep_EquivalentAcrossRepresentations(t *testing.T) {
	// The same nested content must resolve to the same step regardless of
	// how the outer step's run is spelled.
	embedded := outerWorkflow(t, workflow.Run{Embedded: nestedDoc(t, "sub", "sub#inner")})

	liveSub, err := workflow.New(nestedDoc(t, "sub", "inner"))
	if err != nil {
		t.Fatalf("construct live sub: %v", err)
	}
	live := outerWorkflow(t, workflow.Run{Live: liveSub})

	refSub, err := workflow.New(nestedDoc(t, "sub", "sub#inner"))
	if err != nil {
		t.Fatalf("construct ref sub: %v", err)
	}
	ld := &stubLoader{procs: map[string]workflow.Process{"sub.cwl": refSub}}
	external := outerWorkflow(t, workflow.Run{Ref: "sub.cwl"})

	for name, tc := range map[string]struct {
		wf *workflow.Workflow
		ld subgraph.Loader
	}{
		"embedded": {embedded, nil},
		"live":     {live, nil},
		"external": {external, ld},
	} {
		t.Run(name, func(t *testing.T) {
			raw, ws, err := subgraph.FindStep(tc.wf.Steps, "wf#outer/inner", tc.ld)
			if err != nil {
				t.Fatalf("FindStep: %v", err)
			}
			if raw == nil || ws == nil {
				t.Fatal("step not found")
			}
			if workflow.LocalName(raw.ID) != "inner" {
				t.Errorf("local name = %q, want inner", workflow.LocalName(raw.ID))
			}
			if len(raw.Out) != 1 || workflow.LocalName(raw.Out[0].ID) != "out" {
				t.Errorf("out ports = %v, want one port named out", raw.Out)
			}
		})
	}
}

func TestFindStep_MissingLoaderForReference(t *testing.T) {
	wf := outerWorkflow(t, workflow.Run{Ref: "sub.cwl"})
	_, _, err := subgraph.FindStep(wf.Steps, "wf#outer/inner", nil)
	if err != subgraph.ErrMissingLoader {
		t.Errorf("err = %v, want ErrMissingLoader", err)
	}
}
