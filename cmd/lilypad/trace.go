package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xA-10/lilypad/pkg/lilypad/tracestore"
)

func newTraceCommand() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect stored run traces",
		Long:  `Reads traces saved by "lilypad run --trace-db".`,
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "traces.db", "SQLite trace store")

	var (
		q      tracestore.Query
		asJSON bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := tracestore.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			infos, err := store.List(cmd.Context(), q)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, infos)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tPIPELINE\tSTEPS\tSTATUS\tDURATION\tSTARTED")
			for _, info := range infos {
				status := "ok"
				if info.Failed() {
					status = "failed"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
					info.RunID,
					info.Pipeline,
					info.Steps,
					status,
					info.Duration.Round(time.Millisecond),
					info.StartedAt.Local().Format(time.DateTime),
				)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&q.Pipeline, "pipeline", "", "Only runs of this pipeline")
	list.Flags().BoolVar(&q.FailedOnly, "failed", false, "Only failed runs")
	list.Flags().IntVar(&q.Limit, "limit", 20, "Maximum runs to list (0 for all)")
	list.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	var raw, showJSON bool
	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run's steps and Mermaid trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := tracestore.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if showJSON {
				return writeJSON(cmd, rec)
			}
			md, err := tracestore.Markdown(rec)
			if err != nil {
				return err
			}
			out, err := renderMarkdown(md, raw)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	show.Flags().BoolVar(&raw, "raw", false, "Print plain markdown")
	show.Flags().BoolVar(&showJSON, "json", false, "Output the record as JSON")

	cmd.AddCommand(list, show)
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
