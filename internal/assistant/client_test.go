package assistant

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLI_Generate(t *testing.T) {
	// The prompt lands after -c's script, where sh treats it as $0.
	cli := NewCLI("/bin/sh", 10*time.Second, "-c", "echo hello")

	out, err := cli.Generate(context.Background(), "ignored", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestCLI_Generate_NonZeroExit(t *testing.T) {
	cli := NewCLI("/bin/sh", 10*time.Second, "-c", "echo boom >&2; exit 3", "sh")

	_, err := cli.Generate(context.Background(), "ignored", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestCLI_Generate_MissingBinary(t *testing.T) {
	cli := NewCLI("/nonexistent/assistant", time.Second)

	_, err := cli.Generate(context.Background(), "prompt", "")
	assert.Error(t, err)
}

func TestCLI_Generate_Timeout(t *testing.T) {
	cli := NewCLI("/bin/sh", 100*time.Millisecond, "-c", "sleep 5", "sh")

	start := time.Now()
	_, err := cli.Generate(context.Background(), "ignored", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestCLI_Generate_WorkDir(t *testing.T) {
	dir, err := os.MkdirTemp("", "assistant-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	cli := NewCLI("/bin/sh", 10*time.Second, "-c", "pwd", "sh")

	out, err := cli.Generate(context.Background(), "ignored", dir)
	require.NoError(t, err)
	assert.Contains(t, out, dir)

	// Missing directory falls back to the current one.
	out, err = cli.Generate(context.Background(), "ignored", "/does/not/exist")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestFake_QueueAndReplay(t *testing.T) {
	fake := NewFake("first").Queue("second", nil).Queue("", errors.New("down"))
	ctx := context.Background()

	out, err := fake.Generate(ctx, "p1", "w1")
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	out, err = fake.Generate(ctx, "p2", "")
	require.NoError(t, err)
	assert.Equal(t, "second", out)

	_, err = fake.Generate(ctx, "p3", "")
	assert.EqualError(t, err, "down")

	// Exhausted queue replays the last response.
	_, err = fake.Generate(ctx, "p4", "")
	assert.EqualError(t, err, "down")

	calls := fake.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, "p1", calls[0].Prompt)
	assert.Equal(t, "w1", calls[0].WorkDir)
	assert.Equal(t, 4, fake.CallCount())
}
