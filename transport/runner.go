package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/shlex"
	"github.com/gopasspw/gopass/pkg/debug"
)

// DefaultSudoCommand is used when no sudo command is configured. It never
// prompts, a missing sudo rule fails the command instead of hanging.
const DefaultSudoCommand = "sudo -n"

// ErrCommand indicates a shell command that could not be run or exited non-zero.
var ErrCommand = errors.New("command failed")

// Runner runs a shell command line and returns its standard output.
type Runner interface {
	Run(ctx context.Context, command string) ([]byte, error)
}

// LocalRunner runs commands with sh on the local machine.
type LocalRunner struct{}

// Run implements Runner.
func (LocalRunner) Run(ctx context.Context, command string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	debug.V(2).Log("running %q", command)
	if err := cmd.Run(); err != nil {
		return nil, commandError(command, err, stderr.String())
	}

	return stdout.Bytes(), nil
}

func commandError(command string, err error, stderr string) error {
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%w: %s: %w: %s", ErrCommand, command, err, msg)
	}

	return fmt.Errorf("%w: %s: %w", ErrCommand, command, err)
}

// Sudo runs commands through another Runner with elevated privileges.
type Sudo struct {
	runner Runner
	prefix []string
}

// NewSudo wraps r so every command runs as "<sudo command> sh -c <command>".
// The sudo command is split like a shell would split it, so it may carry
// flags, e.g. "sudo -n -u postgres". An empty sudo command runs commands
// unchanged, which is what a caller that is already root wants.
func NewSudo(r Runner, sudoCommand string) (*Sudo, error) {
	prefix, err := shlex.Split(sudoCommand)
	if err != nil {
		return nil, fmt.Errorf("invalid sudo command %q: %w", sudoCommand, err)
	}

	return &Sudo{runner: r, prefix: prefix}, nil
}

// Run implements Runner.
func (s *Sudo) Run(ctx context.Context, command string) ([]byte, error) {
	return s.runner.Run(ctx, s.wrap(command))
}

func (s *Sudo) wrap(command string) string {
	if len(s.prefix) == 0 {
		return command
	}

	return shellJoin(s.prefix...) + " sh -c " + shellQuote(command)
}
