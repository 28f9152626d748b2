// Package processtest provides a scripted process.Runner for tests.
package processtest

import (
	"context"
	"strings"
	"sync"

	"github.com/cronkeep/cronkeep/process"
)

type Handler func(cmd process.Command) (*process.Result, error)

// Runner answers commands from registered handlers, keyed by the command
// line ("crontab -l"). Unknown commands exit with status 127.
type Runner struct {
	StartErr error

	mu       sync.Mutex
	handlers map[string]Handler
	calls    []process.Command
	started  []process.Command
	lastPid  int
}

func NewRunner() *Runner {
	return &Runner{handlers: make(map[string]Handler), lastPid: 1000}
}

func Key(cmd process.Command) string {
	return strings.Join(append([]string{cmd.Name}, cmd.Args...), " ")
}

func (r *Runner) Handle(key string, h Handler) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = h
	return r
}

// Respond makes every call to key return a copy of res.
func (r *Runner) Respond(key string, res process.Result) *Runner {
	return r.Handle(key, func(process.Command) (*process.Result, error) {
		out := res
		return &out, nil
	})
}

func (r *Runner) Fail(key string, err error) *Runner {
	return r.Handle(key, func(process.Command) (*process.Result, error) {
		return nil, err
	})
}

func (r *Runner) Run(ctx context.Context, cmd process.Command) (*process.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	h, ok := r.handlers[Key(cmd)]
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		return &process.Result{ExitCode: 127, Stderr: cmd.Name + ": command not found\n"}, nil
	}
	return h(cmd)
}

func (r *Runner) Start(cmd process.Command) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.StartErr != nil {
		return 0, r.StartErr
	}
	r.started = append(r.started, cmd)
	r.lastPid++
	return r.lastPid, nil
}

func (r *Runner) Calls() []process.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]process.Command(nil), r.calls...)
}

func (r *Runner) Started() []process.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]process.Command(nil), r.started...)
}

// Table is an in-memory crontab served through "crontab -l" and
// "crontab -".
type Table struct {
	mu      sync.Mutex
	content string
	exists  bool
}

func (t *Table) Content() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.content
}

func (t *Table) Set(content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.content = content
	t.exists = true
}

// NewCrontab returns a runner backed by a Table. A nil content simulates a
// user without a crontab.
func NewCrontab(content *string) (*Runner, *Table) {
	table := &Table{}
	if content != nil {
		table.Set(*content)
	}

	r := NewRunner()
	r.Handle("crontab -l", func(process.Command) (*process.Result, error) {
		table.mu.Lock()
		defer table.mu.Unlock()
		if !table.exists {
			return &process.Result{ExitCode: 1, Stderr: "no crontab for tester\n"}, nil
		}
		return &process.Result{Stdout: table.content}, nil
	})
	r.Handle("crontab -", func(cmd process.Command) (*process.Result, error) {
		table.Set(cmd.Stdin)
		return &process.Result{}, nil
	})
	r.Respond("whoami", process.Result{Stdout: "tester\n"})

	return r, table
}
