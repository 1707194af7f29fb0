// Package assistant wraps the external AI assistant CLI behind a small
// capability interface so the pipeline and chat responder can be tested
// without spawning processes.
package assistant

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Client produces a completion for a prompt. workDir, when it names an
// existing directory, becomes the working directory of the underlying
// process; otherwise the current directory is used.
type Client interface {
	Generate(ctx context.Context, prompt, workDir string) (string, error)
}

// CLI shells out to an assistant binary, passing the prompt as the final
// argument and reading the completion from stdout.
type CLI struct {
	bin     string
	args    []string
	timeout time.Duration
}

// NewCLI creates a CLI client. args are inserted before the prompt.
func NewCLI(bin string, timeout time.Duration, args ...string) *CLI {
	return &CLI{bin: bin, args: args, timeout: timeout}
}

// Generate runs the assistant binary and returns its trimmed stdout.
// A non-zero exit, a missing binary, or hitting the timeout all surface
// as errors.
func (c *CLI) Generate(ctx context.Context, prompt, workDir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	argv := append(append([]string{}, c.args...), prompt)
	cmd := exec.CommandContext(ctx, c.bin, argv...)
	cmd.WaitDelay = 5 * time.Second

	if info, err := os.Stat(workDir); workDir != "" && err == nil && info.IsDir() {
		cmd.Dir = workDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("assistant %s timed out after %s", c.bin, c.timeout)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("assistant %s failed: %s", c.bin, detail)
	}

	log.Debug().
		Str("bin", c.bin).
		Dur("elapsed", elapsed).
		Int("output_bytes", stdout.Len()).
		Msg("Assistant completed")

	return strings.TrimSpace(stdout.String()), nil
}
