package lastools

import (
	"context"
	"errors"
	"io"
	"os/exec"
)

// CommandExecutor runs one LAStools process.
// This abstraction enables unit testing without the LAStools binaries.
type CommandExecutor interface {
	// Run executes the command, writing merged stdout and stderr to out.
	// A process that starts and exits reports its exit code with a nil
	// error; err is set only when the process could not be run.
	Run(out io.Writer) (exitCode int, err error)
}

// CommandBuilder creates executors for argv. The argv is executed
// directly, never through a shell.
type CommandBuilder interface {
	BuildCommand(ctx context.Context, name string, args ...string) CommandExecutor
}

// RealCommandExecutor wraps exec.Cmd to implement CommandExecutor.
type RealCommandExecutor struct {
	cmd *exec.Cmd
}

// Run executes the command. Stdin is left empty so tools that prompt for
// input fail instead of blocking.
func (r *RealCommandExecutor) Run(out io.Writer) (int, error) {
	r.cmd.Stdout = out
	r.cmd.Stderr = out
	err := r.cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if r.cmd.ProcessState != nil && !r.cmd.ProcessState.Exited() {
			// killed by a signal, usually context cancellation
			return exitErr.ExitCode(), err
		}
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}
	return 0, nil
}

// RealCommandBuilder implements CommandBuilder using exec.CommandContext.
type RealCommandBuilder struct{}

// NewRealCommandBuilder creates a new RealCommandBuilder.
func NewRealCommandBuilder() *RealCommandBuilder {
	return &RealCommandBuilder{}
}

// BuildCommand creates a CommandExecutor for the given command and arguments.
func (b *RealCommandBuilder) BuildCommand(ctx context.Context, name string, args ...string) CommandExecutor {
	return &RealCommandExecutor{cmd: exec.CommandContext(ctx, name, args...)}
}

// MockCommandExecutor implements CommandExecutor for testing.
type MockCommandExecutor struct {
	// Output is written to the runner as console output.
	Output []byte
	// ExitCode is returned from Run.
	ExitCode int
	// Err is the error to return from Run.
	Err error
	// RunCalled indicates whether Run was called.
	RunCalled bool
}

// Run writes the configured output and returns the configured result.
func (m *MockCommandExecutor) Run(out io.Writer) (int, error) {
	m.RunCalled = true
	if len(m.Output) > 0 {
		if _, err := out.Write(m.Output); err != nil {
			return -1, err
		}
	}
	return m.ExitCode, m.Err
}

// MockCommandBuilder implements CommandBuilder for testing.
type MockCommandBuilder struct {
	// Commands records all commands that were built.
	Commands []MockBuiltCommand
	// NextExecutor is the next executor to return. If nil, creates a default MockCommandExecutor.
	NextExecutor *MockCommandExecutor
	// ExecutorFactory allows creating executors dynamically based on command.
	ExecutorFactory func(name string, args []string) *MockCommandExecutor
}

// MockBuiltCommand records details of a built command.
type MockBuiltCommand struct {
	Name string
	Args []string
}

// Argv returns the full argument vector.
func (c MockBuiltCommand) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// NewMockCommandBuilder creates a new MockCommandBuilder.
func NewMockCommandBuilder() *MockCommandBuilder {
	return &MockCommandBuilder{}
}

// BuildCommand creates a MockCommandExecutor and records the command details.
func (b *MockCommandBuilder) BuildCommand(_ context.Context, name string, args ...string) CommandExecutor {
	b.Commands = append(b.Commands, MockBuiltCommand{Name: name, Args: args})
	return b.getExecutor(name, args)
}

func (b *MockCommandBuilder) getExecutor(name string, args []string) *MockCommandExecutor {
	if b.ExecutorFactory != nil {
		return b.ExecutorFactory(name, args)
	}
	if b.NextExecutor != nil {
		executor := b.NextExecutor
		b.NextExecutor = nil
		return executor
	}
	return &MockCommandExecutor{}
}

// SetNextExecutor sets the executor to return for the next BuildCommand call.
func (b *MockCommandBuilder) SetNextExecutor(executor *MockCommandExecutor) {
	b.NextExecutor = executor
}

// LastCommand returns the most recently built command, or nil if none.
func (b *MockCommandBuilder) LastCommand() *MockBuiltCommand {
	if len(b.Commands) == 0 {
		return nil
	}
	return &b.Commands[len(b.Commands)-1]
}

// Reset clears all recorded commands.
func (b *MockCommandBuilder) Reset() {
	b.Commands = nil
	b.NextExecutor = nil
}
