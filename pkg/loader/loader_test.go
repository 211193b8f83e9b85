package loader_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravi-parthasarathy/carver/pkg/loader"
	"github.com/ravi-parthasarathy/carver/pkg/subgraph"
	"github.com/ravi-parthasarathy/carver/pkg/workflow"
)

const mainCWL = `
class: Workflow
cwlVersion: v1.2
id: "main"
inputs:
  - id: "main#infile"
    type: File
outputs:
  - id: "main#result"
    type: File
    outputSource: "main#step/out"
steps:
  - id: "main#step"
    in:
      - id: "main#step/x"
        source: "main#infile"
    out: ["main#step/out"]
    run: tool.cwl
`

const toolCWL = `
class: CommandLineTool
id: "tool"
inputs:
  - id: "x"
    type: File
outputs:
  - id: "out"
    type: File
`

// writeFixtures lays out a workflow and its referenced tool in a fresh
// directory and returns the directory.
func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"main.cwl": mainCWL,
		"tool.cwl": toolCWL,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestLoadWorkflow(t *testing.T) {
	dir := writeFixtures(t)
	ld := loader.New(dir)

	wf, err := ld.LoadWorkflow(filepath.Join(dir, "main.cwl"))
	require.NoError(t, err)
	assert.Equal(t, "main", wf.Doc.ID)
	require.Len(t, wf.Steps, 1)
	assert.Equal(t, "tool.cwl", wf.Steps[0].Tool.Run.Ref)
}

func TestLoadWorkflow_ResolvesRunReferences(t *testing.T) {
	dir := writeFixtures(t)
	ld := loader.New(dir)

	wf, err := ld.LoadWorkflow(filepath.Join(dir, "main.cwl"))
	require.NoError(t, err)

	// The step's run reference is in the index straight after loading.
	indexed, ok := ld.Resolved("tool.cwl")
	require.True(t, ok, "run reference was not resolved at load time")

	// So process resolution works against a freshly loaded workflow.
	proc, ws, err := subgraph.ResolveProcess(wf, "main#step", ld)
	require.NoError(t, err)
	assert.Same(t, indexed, proc)
	require.NotNil(t, ws)
	assert.Equal(t, "main#step", ws.Tool.ID)
}

func TestLoadWorkflow_MissingRunReference(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.cwl")
	require.NoError(t, os.WriteFile(path, []byte(`
class: Workflow
id: "broken"
inputs: []
outputs: []
steps:
  - id: "broken#step"
    in: []
    out: []
    run: gone.cwl
`), 0o644))

	_, err := loader.New(dir).LoadWorkflow(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gone.cwl")
}

func TestLoadWorkflow_RejectsTool(t *testing.T) {
	dir := writeFixtures(t)
	ld := loader.New(dir)

	_, err := ld.LoadWorkflow(filepath.Join(dir, "tool.cwl"))
	assert.Error(t, err)
}

func TestLoadDocument_AssignsFileID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anon.cwl")
	require.NoError(t, os.WriteFile(path, []byte("class: CommandLineTool\ninputs: []\noutputs: []\n"), 0o644))

	doc, err := loader.New(dir).LoadDocument(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.ID, "file://"), "id = %q", doc.ID)
	assert.True(t, strings.HasSuffix(doc.ID, "/anon.cwl"), "id = %q", doc.ID)
}

func TestLoad_RelativeReference(t *testing.T) {
	dir := writeFixtures(t)
	ld := loader.New(dir)

	proc, err := ld.Load("tool.cwl")
	require.NoError(t, err)
	tool, ok := proc.(*workflow.Tool)
	require.True(t, ok, "proc = %T, want *workflow.Tool", proc)
	assert.Equal(t, "tool", tool.Doc.ID)
}

func TestLoad_WorkflowClass(t *testing.T) {
	dir := writeFixtures(t)
	ld := loader.New(dir)

	proc, err := ld.Load("main.cwl")
	require.NoError(t, err)
	_, ok := proc.(*workflow.Workflow)
	assert.True(t, ok, "proc = %T, want *workflow.Workflow", proc)
}

func TestLoad_CachesAndIndexes(t *testing.T) {
	dir := writeFixtures(t)
	ld := loader.New(dir)

	first, err := ld.Load("tool.cwl")
	require.NoError(t, err)
	second, err := ld.Load("tool.cwl")
	require.NoError(t, err)
	assert.Same(t, first, second, "repeated loads must return the cached object")

	indexed, ok := ld.Resolved("tool.cwl")
	require.True(t, ok)
	assert.Same(t, first, indexed)

	_, ok = ld.Resolved("never-loaded.cwl")
	assert.False(t, ok)
}

func TestLoad_FragmentStripped(t *testing.T) {
	dir := writeFixtures(t)
	ld := loader.New(dir)

	proc, err := ld.Load("tool.cwl#out")
	require.NoError(t, err)
	tool, ok := proc.(*workflow.Tool)
	require.True(t, ok)
	assert.Equal(t, "tool", tool.Doc.ID)
}

func TestLoad_MissingFile(t *testing.T) {
	ld := loader.New(t.TempDir())
	_, err := ld.Load("nope.cwl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.cwl")
}
