package process

import "context"

// Command describes a program invocation. Stdin, when non-empty, is fed to
// the program's standard input.
type Command struct {
	Name  string
	Args  []string
	Stdin string

	// Detach is for Start callers that exit before the command does. The
	// command gets its own session and its output goes to the null device,
	// so it neither depends on cronkeep's pipes nor on its terminal.
	Detach bool
}

// Result holds the outcome of a command that ran to completion. A non-zero
// ExitCode is not an error by itself: callers interpret Stderr.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes external programs on behalf of the crontab model.
type Runner interface {
	// Run blocks until the command exits. The returned error is set only
	// when the command could not be run at all (missing binary, timeout).
	Run(ctx context.Context, cmd Command) (*Result, error)

	// Start launches the command in the background and returns its pid
	// without waiting for it.
	Start(cmd Command) (int, error)
}
