package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	lplog "github.com/0xA-10/lilypad/internal/log"
)

// app carries what every subcommand shares.
type app struct {
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{logger: lplog.New(lplog.FromEnv())}

	cmd := &cobra.Command{
		Use:   "lilypad",
		Short: "Compose LLM prompt chains from rhythm patterns",
		Long: `lilypad runs pipelines of segments shaped by a rhythm pattern such as
"D B S T800 D S". Each run records an alignment trace of every step.

Logging is configured with LILYPAD_LOG_LEVEL (debug, info, warn, error)
and LILYPAD_LOG_FORMAT (text, json). Provider rate limits come from
LILYPAD_OPENAI_RPS and LILYPAD_CLAUDE_RPS.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		a.newRunCommand(),
		a.newValidateCommand(),
		newPresetsCommand(),
		newTraceCommand(),
	)
	return cmd
}
