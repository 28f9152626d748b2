package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cronkeep/cronkeep/prometheus_metrics"
	"github.com/sirupsen/logrus"
)

var (
	READ_BUFFER_SIZE = 64 * 1024

	ErrTimeout = errors.New("command timed out")
)

// ExecRunner runs commands with os/exec. Each command gets its own process
// group so that a timeout kills the whole tree.
type ExecRunner struct {
	Timeout         time.Duration
	Logger          *logrus.Entry
	PassthroughLogs bool
	Metrics         *prometheus_metrics.PrometheusMetrics
}

func (r *ExecRunner) logger() *logrus.Entry {
	if r.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return r.Logger
}

func (r *ExecRunner) Run(ctx context.Context, command Command) (*Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	logger := r.logger().WithFields(logrus.Fields{"command": command.Name})
	logger.Debugf("running %s %s", command.Name, strings.Join(command.Args, " "))

	cmd := exec.CommandContext(ctx, command.Name, command.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid: signal the whole process group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second

	if command.Stdin != "" {
		cmd.Stdin = strings.NewReader(command.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.Metrics.ObserveCommand(command.Name, time.Since(start))

	result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				logger.Warnf("command exceeded its deadline of %v", r.Timeout)
				return nil, fmt.Errorf("%w: %s", ErrTimeout, command.Name)
			}
			return nil, fmt.Errorf("error running %s: %w", command.Name, ctxErr)
		}

		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("error running %s: %w", command.Name, err)
		}
		result.ExitCode = exitErr.ExitCode()
		logger.Debugf("exited with status %d", result.ExitCode)
	}

	return result, nil
}

func (r *ExecRunner) Start(command Command) (int, error) {
	logger := r.logger().WithFields(logrus.Fields{"command": command.Name})

	cmd := exec.Command(command.Name, command.Args...)

	// Run in a separate process group so that in interactive usage, CTRL+C
	// stops cronkeep, not the job it started.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if command.Detach {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	}

	if command.Stdin != "" {
		cmd.Stdin = strings.NewReader(command.Stdin)
	}

	var stdout io.ReadCloser = nil
	var stderr io.ReadCloser = nil
	var err error

	if command.Detach {
		// nil Stdout and Stderr: os/exec connects them to os.DevNull
		logger.Debug("output detached")
	} else if r.PassthroughLogs {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		stdout, err = cmd.StdoutPipe()
		if err != nil {
			return 0, err
		}

		stderr, err = cmd.StderrPipe()
		if err != nil {
			return 0, err
		}
	}

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	logger = logger.WithFields(logrus.Fields{"pid": pid})
	logger.Info("started")

	var wg sync.WaitGroup

	if stdout != nil {
		startReaderDrain(&wg, logger.WithFields(logrus.Fields{"channel": "stdout"}), stdout)
	}

	if stderr != nil {
		startReaderDrain(&wg, logger.WithFields(logrus.Fields{"channel": "stderr"}), stderr)
	}

	go func() {
		wg.Wait()

		if err := cmd.Wait(); err != nil {
			logger.Errorf("error running command: %v", err)
			return
		}
		logger.Info("command succeeded")
	}()

	return pid, nil
}

func startReaderDrain(wg *sync.WaitGroup, readerLogger *logrus.Entry, reader io.ReadCloser) {
	wg.Add(1)

	go func() {
		defer func() {
			if err := reader.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				readerLogger.Errorf("failed to close pipe: %v", err)
			}
			wg.Done()
		}()

		bufReader := bufio.NewReaderSize(reader, READ_BUFFER_SIZE)

		for {
			line, isPrefix, err := bufReader.ReadLine()

			if err != nil {
				if strings.Contains(err.Error(), os.ErrClosed.Error()) {
					// The pipe might get closed by Wait() or by the
					// process itself, so we don't log this.
				} else if err != io.EOF {
					readerLogger.Errorf("failed to read pipe: %v", err)
				}

				break
			}

			readerLogger.Info(string(line))

			if isPrefix {
				readerLogger.Warn("last line exceeded buffer size, continuing...")
			}
		}
	}()
}
