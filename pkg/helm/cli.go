package helm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/isitobservable/platform-ops-mcp/pkg/types"
)

// execCommand is swapped in tests to run a helper process instead of helm.
var execCommand = exec.CommandContext

// Runner executes one helm invocation and returns its stdout.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// CLI runs the helm executable synchronously. A non-zero exit is reported
// as a PROCESS_ERROR carrying the captured stderr.
type CLI struct {
	Binary string
}

// NewCLI returns a CLI for binary, defaulting to "helm" on PATH.
func NewCLI(binary string) *CLI {
	if binary == "" {
		binary = "helm"
	}
	return &CLI{Binary: binary}
}

func (c *CLI) Run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := execCommand(ctx, c.Binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("helm: running", "binary", c.Binary, "args", args)
	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		slog.Debug("helm: command failed", "args", args, "exitCode", exitErr.ExitCode())
		return nil, types.NewProcessError("Helm Error", stderr.String())
	}
	if errors.Is(err, exec.ErrNotFound) {
		return nil, types.NewConfigError(fmt.Sprintf("helm executable %q not found on PATH", c.Binary), "")
	}
	return nil, fmt.Errorf("running %s %s: %w", c.Binary, strings.Join(args, " "), err)
}
