package at

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/cronkeep/cronkeep/process"
	"github.com/cronkeep/cronkeep/process/processtest"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestLogger() *logrus.Entry {
	logger := logrus.New()
	logger.Out = io.Discard
	return logger.WithFields(logrus.Fields{})
}

var availableTestCases = []struct {
	result    process.Result
	available bool
	output    string
}{
	{process.Result{ExitCode: 1, Stderr: "Garbled time\n"}, true, ErrorGarbledTime},
	{process.Result{ExitCode: 1, Stderr: "You do not have permission to use at.\n"}, false, ErrorAccessDenied},
	{process.Result{ExitCode: 0}, false, ""},
}

func TestAvailable(t *testing.T) {
	for _, tt := range availableTestCases {
		runner := processtest.NewRunner().Respond("at", tt.result)
		a := New(runner, "", newTestLogger())

		assert.Equal(t, tt.available, a.Available(context.Background()), tt.result.Stderr)
		assert.Equal(t, tt.output, a.ErrorOutput(), tt.result.Stderr)
	}
}

func TestAvailableIsMemoized(t *testing.T) {
	runner := processtest.NewRunner().Respond("at", process.Result{ExitCode: 1, Stderr: "Garbled time\n"})
	a := New(runner, "", newTestLogger())

	assert.True(t, a.Available(context.Background()))
	assert.True(t, a.Available(context.Background()))
	assert.Len(t, runner.Calls(), 1)

	// A fresh object probes again.
	assert.True(t, New(runner, "", newTestLogger()).Available(context.Background()))
	assert.Len(t, runner.Calls(), 2)
}

func TestAvailableWithoutBinary(t *testing.T) {
	runner := processtest.NewRunner().Fail("/opt/at", errors.New("executable file not found in $PATH"))
	a := New(runner, "/opt/at", nil)

	assert.False(t, a.Available(context.Background()))
	assert.Contains(t, a.ErrorOutput(), "executable file not found")
}

func TestSubmit(t *testing.T) {
	runner := processtest.NewRunner().Respond("at now", process.Result{Stderr: "job 7 at Mon Jan  1 10:00:00 2024\n"})
	a := New(runner, "", newTestLogger())

	assert.Nil(t, a.Submit(context.Background(), "echo hi > /tmp/out"))

	calls := runner.Calls()
	if assert.Len(t, calls, 1) {
		assert.Equal(t, "echo hi > /tmp/out\n", calls[0].Stdin)
	}
}

func TestSubmitFailure(t *testing.T) {
	runner := processtest.NewRunner().Respond("at now", process.Result{ExitCode: 1, Stderr: "You do not have permission to use at.\n"})
	a := New(runner, "", newTestLogger())

	err := a.Submit(context.Background(), "true")
	assert.ErrorIs(t, err, ErrSubmitFailure)
	assert.Contains(t, err.Error(), ErrorAccessDenied)

	runner.Respond("at now", process.Result{ExitCode: 1})
	assert.Equal(t, ErrSubmitFailure, a.Submit(context.Background(), "true"))

	runner.Fail("at now", process.ErrTimeout)
	err = a.Submit(context.Background(), "true")
	assert.ErrorIs(t, err, ErrSubmitFailure)
	assert.ErrorIs(t, err, process.ErrTimeout)
}
