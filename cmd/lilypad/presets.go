package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/0xA-10/lilypad/pkg/lilypad"
	"github.com/0xA-10/lilypad/pkg/lilypad/presets"
)

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [name]",
		Short: "List the built-in rhythm presets",
		Long: `Without arguments lists every preset with its pattern and the number of
segments it needs. With a name prints that preset's pattern only.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				pattern, err := presets.Lookup(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), pattern)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSEGMENTS\tPATTERN")
			for _, name := range presets.Names() {
				pattern, _ := presets.Lookup(name)
				parsed, err := lilypad.ParsePattern(pattern)
				if err != nil {
					return fmt.Errorf("preset %s: %w", name, err)
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", name, parsed.Slots(), pattern)
			}
			return w.Flush()
		},
	}
}
