package generation

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// IDMarker prefixes the stored idea ID on the generation command's stdout.
const IDMarker = "GENERATED_IDEA_ID:"

// Command runs the external generation program (the inspo-generate binary
// by default) and extracts the stored idea ID from its output. The HTTP
// generate endpoint and the scheduler share this contract.
type Command struct {
	argv    []string
	timeout time.Duration
}

// NewCommand builds a runner from a shell-less command line (fields split
// on whitespace).
func NewCommand(cmdLine string, timeout time.Duration) *Command {
	argv := strings.Fields(cmdLine)
	if len(argv) == 0 {
		argv = []string{"inspo-generate"}
	}
	return &Command{argv: argv, timeout: timeout}
}

// Run executes the generation command. It returns the generated idea's ID
// when the output carries the marker; found is false when the command
// succeeded but printed no marker.
func (c *Command) Run(ctx context.Context) (id int64, found bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.WaitDelay = 5 * time.Second

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, false, fmt.Errorf("generation command timed out after %s", c.timeout)
		}
		detail := strings.TrimSpace(output.String())
		if detail == "" {
			detail = runErr.Error()
		}
		return 0, false, fmt.Errorf("generation command failed: %s", detail)
	}

	log.Info().Dur("elapsed", elapsed).Msg("Generation command completed")

	id, found = ParseIDMarker(output.String())
	return id, found, nil
}

// ParseIDMarker scans command output for the idea ID marker.
func ParseIDMarker(output string) (int64, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, IDMarker) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, IDMarker)), 10, 64)
		if err != nil {
			continue
		}
		return id, true
	}
	return 0, false
}
