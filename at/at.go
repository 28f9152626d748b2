// Package at hands commands over to the at(1) utility, which runs them
// with an environment close to the one cron gives its jobs.
package at

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cronkeep/cronkeep/process"
	"github.com/sirupsen/logrus"
)

const (
	ErrorAccessDenied = "You do not have permission to use at."
	ErrorGarbledTime  = "Garbled time"
)

var ErrSubmitFailure = errors.New("there has been an error submitting the job to at")

// At probes for the at command once and remembers the answer. Create one
// per operation; it is not safe for concurrent use.
type At struct {
	Runner process.Runner
	Bin    string
	Logger *logrus.Entry

	checked     bool
	available   bool
	errorOutput string
}

func New(runner process.Runner, bin string, logger *logrus.Entry) *At {
	if bin == "" {
		bin = "at"
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &At{Runner: runner, Bin: bin, Logger: logger}
}

// Available tells whether at can be used. Called without arguments, a
// usable at complains about a garbled time; any other outcome (typically
// "You do not have permission to use at.") means it is not usable.
func (a *At) Available(ctx context.Context) bool {
	if a.checked {
		return a.available
	}
	a.checked = true

	res, err := a.Runner.Run(ctx, process.Command{Name: a.Bin})
	if err != nil {
		a.errorOutput = err.Error()
		a.Logger.Debugf("at is not available: %v", err)
		return false
	}

	a.errorOutput = strings.TrimSpace(res.Stderr)
	a.available = a.errorOutput == ErrorGarbledTime
	if !a.available {
		a.Logger.Debugf("at is not available: %s", a.errorOutput)
	}

	return a.available
}

// ErrorOutput returns what at printed when its availability was checked.
func (a *At) ErrorOutput() string {
	return a.errorOutput
}

// Submit queues command to run immediately.
func (a *At) Submit(ctx context.Context, command string) error {
	res, err := a.Runner.Run(ctx, process.Command{
		Name:  a.Bin,
		Args:  []string{"now"},
		Stdin: command + "\n",
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubmitFailure, err)
	}

	if !res.Success() {
		if output := strings.TrimSpace(res.Stderr); output != "" {
			return fmt.Errorf("%w: %s", ErrSubmitFailure, output)
		}
		return ErrSubmitFailure
	}

	// at reports the queued job id on stderr ("job 12 at ...").
	a.Logger.WithFields(logrus.Fields{"command": command}).Infof("submitted: %s", strings.TrimSpace(res.Stderr))
	return nil
}
