// Package loader reads workflow documents from the filesystem and
// constructs live process objects for them. FileLoader implements
// subgraph.Loader, standing in for the wider document-loading machinery
// (resolution, validation, schema salad) that lives outside this module.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ravi-parthasarathy/carver/pkg/workflow"
)

// FileLoader resolves run references against the local filesystem. A
// reference is a path, optionally with a #fragment, resolved relative to
// the loader's base directory. Every constructed process is cached in an
// index keyed by the exact reference string; Resolved serves lookups
// against that index.
//
// A FileLoader is not safe for concurrent use; extraction calls are
// synchronous and each should own its loader.
type FileLoader struct {
	base string
	idx  map[string]workflow.Process
}

// New returns a loader resolving relative references against base.
func New(base string) *FileLoader {
	return &FileLoader{base: base, idx: make(map[string]workflow.Process)}
}

// LoadDocument reads and parses one document. A document that declares no
// id is assigned its absolute file location.
func (l *FileLoader) LoadDocument(path string) (*workflow.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	doc, err := workflow.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	if doc.ID == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("loader: resolve %s: %w", path, err)
		}
		doc.ID = "file://" + filepath.ToSlash(abs)
	}
	return doc, nil
}

// LoadWorkflow reads a document, constructs the live workflow for it, and
// eagerly resolves every step's external run reference so the index can
// answer later lookups.
func (l *FileLoader) LoadWorkflow(path string) (*workflow.Workflow, error) {
	doc, err := l.LoadDocument(path)
	if err != nil {
		return nil, err
	}
	wf, err := workflow.New(doc)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	if err := l.resolveRuns(wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// resolveRuns loads the external run reference of every step, populating
// the index. Nested workflows resolve their own steps through Load.
func (l *FileLoader) resolveRuns(wf *workflow.Workflow) error {
	for _, st := range wf.Steps {
		ref := st.Tool.Run.Ref
		if ref == "" {
			continue
		}
		if _, err := l.Load(ref); err != nil {
			return err
		}
	}
	return nil
}

// Load implements subgraph.Loader. Repeated loads of the same reference
// return the cached object.
func (l *FileLoader) Load(ref string) (workflow.Process, error) {
	if p, ok := l.idx[ref]; ok {
		return p, nil
	}

	path, _, _ := strings.Cut(ref, "#")
	path = strings.TrimPrefix(path, "file://")
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.base, path)
	}

	doc, err := l.LoadDocument(path)
	if err != nil {
		return nil, fmt.Errorf("loader: resolve %q: %w", ref, err)
	}

	var proc workflow.Process
	if doc.Class == workflow.ClassWorkflow {
		wf, err := workflow.New(doc)
		if err != nil {
			return nil, fmt.Errorf("loader: resolve %q: %w", ref, err)
		}
		proc = wf
	} else {
		proc = &workflow.Tool{Doc: doc}
	}

	// Index before descending so a reference cycle terminates.
	l.idx[ref] = proc
	if wf, ok := proc.(*workflow.Workflow); ok {
		if err := l.resolveRuns(wf); err != nil {
			return nil, err
		}
	}
	return proc, nil
}

// Resolved implements subgraph.Loader: the index of references this
// loader has already turned into process objects.
func (l *FileLoader) Resolved(ref string) (workflow.Process, bool) {
	p, ok := l.idx[ref]
	return p, ok
}
