package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ravi-parthasarathy/carver/pkg/loader"
	"github.com/ravi-parthasarathy/carver/pkg/subgraph"
	"github.com/ravi-parthasarathy/carver/pkg/workflow"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	root := &cobra.Command{
		Use:   "carver",
		Short: "Carver — carve runnable slices out of workflow documents",
		Long: `Carver extracts self-contained pieces from CWL-style pipeline documents:
the subgraph reachable from chosen roots, a single step as a standalone
pipeline, or the process definition behind a step.

Extraction repairs dependencies that would dangle outside the slice by
synthesizing fresh top-level inputs, so the result is runnable on its own.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initLogger(logLevel, logFormat)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(extractCmd())
	root.AddCommand(stepCmd())
	root.AddCommand(processCmd())
	root.AddCommand(graphCmd())
	return root
}

// ─── extract ──────────────────────────────────────────────────────────────────

func extractCmd() *cobra.Command {
	var roots []string

	cmd := &cobra.Command{
		Use:   "extract <workflow.yaml>",
		Short: "Extract the subgraph reachable from the given roots",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if len(roots) == 0 {
				return fmt.Errorf("at least one --root is required")
			}
			wf, ld, err := loadWorkflow(args[0])
			if err != nil {
				return err
			}
			doc, err := subgraph.Extract(roots, wf, ld)
			if err != nil {
				return err
			}
			return writeYAML(doc)
		},
	}
	cmd.Flags().StringArrayVar(&roots, "root", nil, "root node identifier (repeatable)")
	return cmd
}

// ─── step ─────────────────────────────────────────────────────────────────────

func stepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "step <workflow.yaml> <step-id>",
		Short: "Extract one step as a standalone one-step pipeline",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			wf, ld, err := loadWorkflow(args[0])
			if err != nil {
				return err
			}
			doc, err := subgraph.ExtractStep(wf, args[1], ld)
			if err != nil {
				return err
			}
			return writeYAML(doc)
		},
	}
}

// ─── process ──────────────────────────────────────────────────────────────────

func processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <workflow.yaml> <step-id>",
		Short: "Print the process definition a step runs",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			wf, ld, err := loadWorkflow(args[0])
			if err != nil {
				return err
			}
			proc, _, err := subgraph.ResolveProcess(wf, args[1], ld)
			if err != nil {
				return err
			}
			return writeYAML(proc.Document())
		},
	}
}

// ─── graph ────────────────────────────────────────────────────────────────────

func graphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <workflow.yaml>",
		Short: "Print the dependency graph in Graphviz DOT form",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			wf, _, err := loadWorkflow(args[0])
			if err != nil {
				return err
			}
			dot, err := subgraph.DOT(wf)
			if err != nil {
				return err
			}
			fmt.Print(dot)
			return nil
		},
	}
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// loadWorkflow reads the document and returns the live workflow plus a
// loader rooted at the document's directory, so relative run references
// resolve against it.
func loadWorkflow(path string) (*workflow.Workflow, *loader.FileLoader, error) {
	ld := loader.New(filepath.Dir(path))
	wf, err := ld.LoadWorkflow(path)
	if err != nil {
		return nil, nil, err
	}
	return wf, ld, nil
}

func writeYAML(doc *workflow.Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("serialize result: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

// initLogger installs the default slog handler per the global flags.
func initLogger(level, format string) error {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}
