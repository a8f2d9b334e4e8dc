package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"
)

// DefaultWaitDelay bounds how long output stays open after the process has
// exited or been killed. A grandchild that inherits stdout or stderr cannot
// hold the streams open past this delay.
const DefaultWaitDelay = 5 * time.Second

// Command is one process to start.
type Command struct {
	Program string
	Args    []string
	Dir     string

	// Env is appended to the inherited environment, so later entries win.
	Env []string
}

// Process is a started command.
//
// Contract:
//   - Stdout and Stderr must be read concurrently to EOF before Wait is called.
//     The streams may be unbuffered.
//   - Wait returns the exit status. A non-zero status is not an error.
type Process interface {
	Stdout() io.Reader
	Stderr() io.Reader
	Wait() (exitCode int, err error)
}

// Executor starts processes.
//
// Contract:
// - Context: canceling ctx terminates the process and everything it spawned.
// - Concurrency: implementations must be safe for concurrent use.
type Executor interface {
	Start(ctx context.Context, cmd Command) (Process, error)
}

// OSExecutor runs commands with os/exec in their own process group.
type OSExecutor struct {
	// WaitDelay overrides DefaultWaitDelay when positive.
	WaitDelay time.Duration
}

// NewOSExecutor returns an executor with default settings.
func NewOSExecutor() *OSExecutor {
	return &OSExecutor{}
}

// Start launches cmd.
func (e *OSExecutor) Start(ctx context.Context, cmd Command) (Process, error) {
	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	c.WaitDelay = DefaultWaitDelay
	if e.WaitDelay > 0 {
		c.WaitDelay = e.WaitDelay
	}
	setProcessGroup(c)

	// os/exec copies into these writers. Its Wait gives up on the copies
	// after WaitDelay, so closing the writers there bounds the readers too.
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	c.Stdout = stdoutW
	c.Stderr = stderrW
	if err := c.Start(); err != nil {
		stdoutW.Close()
		stderrW.Close()
		return nil, err
	}

	p := &osProcess{ctx: ctx, stdout: stdoutR, stderr: stderrR, done: make(chan struct{})}
	go func() {
		p.code, p.err = exitStatus(c, c.Wait())
		stdoutW.Close()
		stderrW.Close()
		close(p.done)
	}()
	return p, nil
}

// exitStatus maps the result of exec.Cmd.Wait to an exit code.
func exitStatus(c *exec.Cmd, err error) (int, error) {
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr):
		// ExitCode is -1 when the process was terminated by a signal.
		return exitErr.ExitCode(), nil
	case errors.Is(err, exec.ErrWaitDelay) && c.ProcessState != nil:
		// The process exited cleanly but something it spawned kept the
		// output open.
		return c.ProcessState.ExitCode(), nil
	default:
		return -1, err
	}
}

type osProcess struct {
	ctx    context.Context
	stdout io.Reader
	stderr io.Reader

	done chan struct{}
	code int
	err  error
}

func (p *osProcess) Stdout() io.Reader { return p.stdout }
func (p *osProcess) Stderr() io.Reader { return p.stderr }

func (p *osProcess) Wait() (int, error) {
	<-p.done
	if ctxErr := p.ctx.Err(); ctxErr != nil {
		return -1, ctxErr
	}
	return p.code, p.err
}

// Ensure OSExecutor implements Executor
var _ Executor = (*OSExecutor)(nil)
