package crontab

import (
	"errors"
	"fmt"
)

var (
	ErrIncompleteJob    = errors.New("job is incomplete: command and expression are required")
	ErrUnknownJob       = errors.New("job does not belong to this crontab")
	ErrMultiline        = errors.New("job fields cannot span multiple lines")
	ErrUserNotAllowed   = errors.New("user is not allowed to use crontab")
	ErrSpoolUnreachable = errors.New("crontab spool directory is unreachable")
	ErrPamUnreadable    = errors.New("crontab access denied by pam configuration")
	ErrReadFailure      = errors.New("there has been an error reading the crontab")
	ErrSaveFailure      = errors.New("there has been an error saving the crontab")
	ErrRunFailure       = errors.New("there has been an error starting the job")
)

// ShellError carries the output of a failed crontab/at invocation. It
// unwraps to one of the sentinel errors above.
type ShellError struct {
	Err    error
	Output string
}

func (e *ShellError) Error() string {
	if e.Output == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s. Here's the output from the shell: %s", e.Err, e.Output)
}

func (e *ShellError) Unwrap() error {
	return e.Err
}
