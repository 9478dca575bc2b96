package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xA-10/lilypad/pkg/lilypad/llm"
)

// EnvOpenAIKey holds the OpenAI API key for the auto provider.
const EnvOpenAIKey = "OPENAI_API_KEY"

type clientFlags struct {
	provider     string
	mockResponse string
	openAIModel  string
	claudePath   string
	timeout      time.Duration
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "auto", "LLM provider: auto or mock")
	cmd.Flags().StringVar(&f.mockResponse, "mock-response", "", "Reply returned by every call with --provider mock")
	cmd.Flags().StringVar(&f.openAIModel, "openai-model", llm.DefaultResponsesModel, "Default OpenAI model")
	cmd.Flags().StringVar(&f.claudePath, "claude-path", "claude", "Path to the claude binary")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 5*time.Minute, "Per-call provider timeout")
}

// build returns the client for the selected provider. With auto, models
// prefixed "claude" go to the Claude CLI and everything else to the OpenAI
// Responses API; without an OpenAI key every call goes to the Claude CLI.
// Both are throttled by the limits from the environment.
func (f *clientFlags) build() (llm.Client, error) {
	switch f.provider {
	case "mock":
		return llm.NewMockClient(f.mockResponse), nil
	case "auto", "":
	default:
		return nil, fmt.Errorf("unknown provider %q (want auto or mock)", f.provider)
	}

	limits := llm.LimitsFromEnv()
	claude := llm.WithRateLimit(
		llm.NewClaudeCLI(llm.WithClaudePath(f.claudePath), llm.WithTimeout(f.timeout)),
		limits.Claude,
	)
	key := os.Getenv(EnvOpenAIKey)
	if key == "" {
		return claude, nil
	}
	openai := llm.WithRateLimit(
		llm.NewResponsesClient(key, llm.WithResponsesModel(f.openAIModel), llm.WithRequestTimeout(f.timeout)),
		limits.OpenAI,
	)
	return llm.NewRouter(openai, llm.RoutePrefix("claude", claude)), nil
}
