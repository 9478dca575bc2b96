package llm_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lperrors "github.com/0xA-10/lilypad/pkg/lilypad/errors"
	"github.com/0xA-10/lilypad/pkg/lilypad/llm"
)

// fakeClaude writes an executable script standing in for the claude binary.
func fakeClaude(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestClaudeCLI_Complete_JSON(t *testing.T) {
	path := fakeClaude(t, `echo '{"type":"result","is_error":false,"result":"hi there","session_id":"sess-9","usage":{"input_tokens":3,"output_tokens":2}}'`)
	client := llm.NewClaudeCLI(llm.WithClaudePath(path), llm.WithModel("claude-3-7-sonnet"))

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, "sess-9", resp.SessionID)
	assert.Equal(t, 5, resp.Usage.TotalTokens)
	assert.Equal(t, "claude-3-7-sonnet", resp.Model)
}

func TestClaudeCLI_Complete_PassesArgs(t *testing.T) {
	// Echo the arguments back as plain text.
	path := fakeClaude(t, `echo "$@"`)
	client := llm.NewClaudeCLI(llm.WithClaudePath(path))

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{
		Model:     "claude-x",
		SessionID: "sess-1",
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "again"}},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "--model claude-x")
	assert.Contains(t, resp.Content, "--resume sess-1")
	assert.Contains(t, resp.Content, "-p again")
	assert.Contains(t, resp.Content, "--output-format json")
}

func TestClaudeCLI_Complete_RetryableFailure(t *testing.T) {
	path := fakeClaude(t, "echo 'API overloaded' >&2\nexit 1")
	client := llm.NewClaudeCLI(llm.WithClaudePath(path))

	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}},
	})
	require.Error(t, err)

	var llmErr *llm.Error
	require.True(t, errors.As(err, &llmErr))
	assert.True(t, llmErr.Retryable)
	assert.True(t, llm.IsRetryable(err))
}

func TestClaudeCLI_Complete_Timeout(t *testing.T) {
	path := fakeClaude(t, "exec sleep 5")
	client := llm.NewClaudeCLI(llm.WithClaudePath(path), llm.WithTimeout(50*time.Millisecond))

	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}},
	})
	require.Error(t, err)

	var timeoutErr *lperrors.TimeoutError
	assert.True(t, errors.As(err, &timeoutErr))
	assert.True(t, llm.IsRetryable(err))
}

func TestClaudeCLI_Complete_CallerCancel(t *testing.T) {
	path := fakeClaude(t, "exec sleep 5")
	client := llm.NewClaudeCLI(llm.WithClaudePath(path))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var llmErr *llm.Error
	require.True(t, errors.As(err, &llmErr))
	assert.False(t, llmErr.Retryable)
}

func TestClaudeCLI_Stream(t *testing.T) {
	path := fakeClaude(t, `echo '{"type":"content_block_delta","delta":{"type":"text_delta","text":"hel"}}'
echo '{"type":"content_block_delta","delta":{"type":"text_delta","text":"lo"}}'
echo '{"type":"result","result":"hello","session_id":"s-2","usage":{"input_tokens":1,"output_tokens":1}}'`)
	client := llm.NewClaudeCLI(llm.WithClaudePath(path))

	ch, err := client.Stream(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}},
	})
	require.NoError(t, err)

	resp, err := llm.Collect(ch)
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "s-2", resp.SessionID)
	assert.Equal(t, 2, resp.Usage.TotalTokens)
}

func TestClaudeCLI_Stream_ErrorResult(t *testing.T) {
	path := fakeClaude(t, `echo '{"type":"result","is_error":true,"result":"rate limit reached"}'`)
	client := llm.NewClaudeCLI(llm.WithClaudePath(path))

	ch, err := client.Stream(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}},
	})
	require.NoError(t, err)

	_, err = llm.Collect(ch)
	require.Error(t, err)
	assert.True(t, llm.IsRetryable(err))
}

func TestClaudeCLI_Complete_NonExistentBinary(t *testing.T) {
	client := llm.NewClaudeCLI(llm.WithClaudePath("/nonexistent/path/to/claude"))

	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "test"}},
	})
	assert.Error(t, err)
}

func TestClaudeCLI_Stream_NonExistentBinary(t *testing.T) {
	client := llm.NewClaudeCLI(llm.WithClaudePath("/nonexistent/path/to/claude"))

	_, err := client.Stream(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "test"}},
	})
	assert.Error(t, err)
}

func TestError(t *testing.T) {
	err := llm.NewError("complete", assert.AnError, true)
	assert.Contains(t, err.Error(), "llm complete")
	assert.True(t, err.Retryable)
	assert.Equal(t, assert.AnError, err.Unwrap())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"marked retryable", llm.NewError("complete", errors.New("x"), true), true},
		{"marked permanent", llm.NewError("complete", errors.New("x"), false), false},
		{"permanent wrapper over 429", llm.NewError("complete", &lperrors.HTTPError{StatusCode: 429}, false), true},
		{"bare 503", &lperrors.HTTPError{StatusCode: 503}, true},
		{"bare 401", &lperrors.HTTPError{StatusCode: 401}, false},
		{"plain error", errors.New("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, llm.IsRetryable(tt.err))
		})
	}
}

func TestTokenUsage_Add(t *testing.T) {
	usage := llm.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}
	usage.Add(llm.TokenUsage{InputTokens: 20, OutputTokens: 10, TotalTokens: 30})

	assert.Equal(t, 30, usage.InputTokens)
	assert.Equal(t, 15, usage.OutputTokens)
	assert.Equal(t, 45, usage.TotalTokens)
}
