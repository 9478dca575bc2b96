package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xA-10/lilypad/pkg/lilypad"
	"github.com/0xA-10/lilypad/pkg/lilypad/bricks"
	"github.com/0xA-10/lilypad/pkg/lilypad/config"
	"github.com/0xA-10/lilypad/pkg/lilypad/llm"
)

func (a *app) newValidateCommand() *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "validate <definition>...",
		Short: "Check pipeline definitions without running them",
		Long: `Loads each definition, builds every brick and compiles the rhythm,
reporting arity, symbol and contract errors. No provider is called.
Keys passed with --set count as initial values for the contract check,
exactly as they do for run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				p, err := a.validate(path, sets)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s\n  %v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s  %s (%d steps)\n", path, p.Pattern(), p.Len())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d definitions invalid", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Initial value as key=value (repeatable)")
	return cmd
}

func (a *app) validate(path string, sets []string) (*lilypad.Pipeline, error) {
	def, err := config.FromFile(path)
	if err != nil {
		return nil, err
	}
	if err := applySets(def, sets); err != nil {
		return nil, err
	}
	// Assembly needs a client for llm bricks; it is never called.
	deps := bricks.Deps{Client: llm.NewMockClient(""), Logger: a.logger}
	p, _, err := bricks.Assemble(def, bricks.Default(), deps)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("definition valid", "file", path, "name", p.Name())
	return p, nil
}
