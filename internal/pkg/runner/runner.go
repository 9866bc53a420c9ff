// Package runner defines the uniform (ok, output) command contract shared by
// local processes and remote SSH sessions, and the local implementation.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/kballard/go-shellquote"
)

// Result is the outcome of one command. Output holds stdout on success and
// the captured error text otherwise. Exit codes are not preserved.
type Result struct {
	OK     bool
	Output string
}

func failed(format string, args ...interface{}) Result {
	return Result{OK: false, Output: fmt.Sprintf(format, args...)}
}

// LocalExecutor runs commands on the invoking machine.
type LocalExecutor interface {
	Run(ctx context.Context, command string, shell bool) Result
}

// RemoteSession runs commands over an established connection to one host.
type RemoteSession interface {
	Run(ctx context.Context, command string) Result
	Close() error
}

// Local executes commands with os/exec. With shell set the command is passed
// to the shell verbatim; otherwise it is split into argv with POSIX quoting
// rules and executed directly.
type Local struct {
	Shell string
}

func NewLocal() *Local {
	return &Local{Shell: "/bin/sh"}
}

func (l *Local) Run(ctx context.Context, command string, shell bool) Result {
	var cmd *exec.Cmd
	if shell {
		cmd = exec.CommandContext(ctx, l.Shell, "-c", command)
	} else {
		argv, err := shellquote.Split(command)
		if err != nil {
			return failed("Error: %v", err)
		}
		if len(argv) == 0 {
			return failed("Error: empty command")
		}
		cmd = exec.CommandContext(ctx, argv[0], argv[1:]...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if msg == "" {
			msg = err.Error()
		}
		return failed("Error: %s", msg)
	}
	return Result{OK: true, Output: stdout.String()}
}
