package backendcli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// DefaultCommand is the backend CLI binary name.
const DefaultCommand = "picomc"

// Runner invokes the backend CLI one subprocess per call, with captured
// output. A fresh process every time guarantees the backend runs in an
// isolated state with nothing leaked between invocations.
type Runner struct {
	command string
}

// NewRunner returns a runner for the given backend binary. An empty command
// selects DefaultCommand.
func NewRunner(command string) *Runner {
	if command == "" {
		command = DefaultCommand
	}
	return &Runner{command: command}
}

// Command returns the backend binary name.
func (r *Runner) Command() string {
	return r.command
}

// Run executes one backend command to completion and returns its combined
// stdout and stderr. The combined output is returned even when the command
// fails, since the diagnostic text is often the only usable signal.
func (r *Runner) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.command, args...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	log.Debug().Str("command", r.command).Strs("args", args).Msg("running backend command")
	err := cmd.Run()
	if err != nil {
		return out.String(), fmt.Errorf("%s %v: %w", r.command, args, err)
	}
	return out.String(), nil
}
