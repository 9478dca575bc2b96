package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/0xA-10/lilypad/pkg/lilypad"
	"github.com/0xA-10/lilypad/pkg/lilypad/bricks"
	"github.com/0xA-10/lilypad/pkg/lilypad/config"
	"github.com/0xA-10/lilypad/pkg/lilypad/observability"
	"github.com/0xA-10/lilypad/pkg/lilypad/tracestore"
)

type runFlags struct {
	clients     clientFlags
	sets        []string
	runID       string
	traceDB     string
	metricsFile string
	showTrace   bool
	raw         bool
}

func (a *app) newRunCommand() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run <definition>",
		Short: "Run a pipeline definition",
		Long: `Loads a YAML or JSON pipeline definition, assembles its bricks and runs
it once. The final context is printed as JSON.`,
		Example: `  lilypad run brief.yaml --set topic="tide pools"
  lilypad run brief.yaml --provider mock --mock-response "- a\n- b" --show-trace
  lilypad run brief.yaml --trace-db traces.db --metrics-file run.prom`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args[0], f)
		},
	}
	f.clients.register(cmd)
	cmd.Flags().StringArrayVar(&f.sets, "set", nil, "Initial value as key=value (repeatable)")
	cmd.Flags().StringVar(&f.runID, "run-id", "", "Fixed run id instead of a generated one")
	cmd.Flags().StringVar(&f.traceDB, "trace-db", "", "SQLite file that stores the run's trace")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics for the run to this file")
	cmd.Flags().BoolVar(&f.showTrace, "show-trace", false, "Print the Mermaid trace after the result")
	cmd.Flags().BoolVar(&f.raw, "raw", false, "Print the trace as plain markdown")
	return cmd
}

func (a *app) run(cmd *cobra.Command, path string, f *runFlags) error {
	def, err := config.FromFile(path)
	if err != nil {
		return err
	}
	if err := applySets(def, f.sets); err != nil {
		return err
	}
	client, err := f.clients.build()
	if err != nil {
		return err
	}

	opts := []lilypad.Option{lilypad.WithRunID(f.runID)}
	if f.traceDB != "" {
		store, err := tracestore.NewSQLiteStore(f.traceDB)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, lilypad.WithTraceSink(store))
	}
	var reg *prometheus.Registry
	if f.metricsFile != "" {
		reg = prometheus.NewRegistry()
		opts = append(opts, lilypad.WithMetrics(observability.NewPrometheusRecorder(reg)))
	}

	p, initial, err := bricks.Assemble(def, bricks.Default(), bricks.Deps{Client: client, Logger: a.logger}, opts...)
	if err != nil {
		return err
	}

	out, tree, runErr := p.RunTraced(cmd.Context(), initial)

	if reg != nil {
		if err := prometheus.WriteToTextfile(f.metricsFile, reg); err != nil {
			a.logger.Warn("write metrics", "file", f.metricsFile, "error", err)
		}
	}
	if runErr != nil {
		if f.showTrace {
			_ = printTrace(cmd, tree, f.raw)
		}
		return runErr
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	if f.showTrace {
		return printTrace(cmd, tree, f.raw)
	}
	return nil
}

// applySets merges key=value pairs into the definition's initial Ctx
// before assembly, so the contract check sees them.
func applySets(def *config.Definition, sets []string) error {
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return fmt.Errorf("--set %q: want key=value", kv)
		}
		if def.Initial == nil {
			def.Initial = make(map[string]any)
		}
		def.Initial[k] = v
	}
	return nil
}

func printTrace(cmd *cobra.Command, tree *lilypad.AlignmentTree, raw bool) error {
	if tree == nil {
		return nil
	}
	out, err := renderMarkdown("## Trace\n\n"+tree.Mermaid(), raw)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
