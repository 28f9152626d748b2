package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cronkeep/cronkeep/at"
	"github.com/cronkeep/cronkeep/config"
	"github.com/cronkeep/cronkeep/cronexpr"
	"github.com/cronkeep/cronkeep/crontab"
	"github.com/cronkeep/cronkeep/form"
	"github.com/cronkeep/cronkeep/monitor"
	"github.com/cronkeep/cronkeep/process"
	"github.com/cronkeep/cronkeep/prometheus_metrics"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

var (
	errJobGone           = errors.New("cron job no longer exists")
	errInvalidExpression = errors.New("invalid cron expression")
)

type command struct {
	name    string
	usage   string
	summary string
	run     func(a *app, ctx context.Context, args []string) error
}

var commands = []command{
	{"list", "list [--format text|yaml] [--next N]", "list the jobs of the current user", (*app).list},
	{"show", "show HASH [--format text|yaml]", "show one job, with its simple form values when it has some", (*app).show},
	{"add", "add (--expression EXPR | --form QUERY) --command CMD [--name NAME] [--paused]", "add a job", (*app).add},
	{"edit", "edit HASH [--expression EXPR | --form QUERY] [--command CMD] [--name NAME]", "change a job", (*app).edit},
	{"pause", "pause HASH", "comment a job out", (*app).pause},
	{"resume", "resume HASH", "uncomment a paused job", (*app).resume},
	{"delete", "delete HASH", "remove a job", (*app).delete},
	{"run", "run HASH", "run a job's command now, in the background", (*app).runJob},
	{"watch", "watch [--metrics-listen ADDR]", "log every change to the crontab until interrupted", (*app).watch},
}

type app struct {
	cfg     *config.Config
	runner  process.Runner
	logger  *logrus.Entry
	metrics *prometheus_metrics.PrometheusMetrics
	stdout  io.Writer
	now     func() time.Time
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return &usageError{msg: "missing command"}
	}

	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(a, ctx, args[1:])
		}
	}
	return &usageError{msg: fmt.Sprintf("unknown command %q", args[0])}
}

func (a *app) flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *pflag.FlagSet, args []string, positional int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, &usageError{command: fs.Name(), msg: err.Error()}
	}
	if fs.NArg() != positional {
		return nil, &usageError{command: fs.Name(), msg: fmt.Sprintf("expected %d argument(s), got %d", positional, fs.NArg())}
	}
	return fs.Args(), nil
}

func (a *app) options() crontab.Options {
	return crontab.Options{
		Runner:     a.runner,
		CrontabBin: a.cfg.CrontabBin,
		Shell:      a.cfg.Shell,
		At:         at.New(a.runner, a.cfg.AtBin, a.logger),
		Logger:     a.logger,
		Metrics:    a.metrics,
	}
}

func (a *app) load(ctx context.Context) (*crontab.Crontab, error) {
	return crontab.Load(ctx, a.options())
}

func (a *app) clock() time.Time {
	if a.now == nil {
		return time.Now()
	}
	return a.now()
}

// find loads the crontab and looks the job up. The hash of a job changes
// with every edit, so a stale hash is reported as a job that is gone.
func (a *app) find(ctx context.Context, hash string) (*crontab.Crontab, *crontab.Job, error) {
	c, err := a.load(ctx)
	if err != nil {
		return nil, nil, err
	}

	job, ok := c.FindByHash(hash)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", errJobGone, hash)
	}
	return c, job, nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := a.flags("list")
	format := fs.String("format", "text", "output format: text or yaml")
	next := fs.Int("next", 0, "also show the next N runs of each job")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	user, err := crontab.SystemUser(ctx, a.runner, a.cfg.WhoamiBin)
	if err != nil {
		return err
	}

	c, err := a.load(ctx)
	if err != nil {
		return err
	}

	view := listView{User: user, Jobs: make([]jobView, 0, c.Len())}
	for _, job := range c.Jobs() {
		view.Jobs = append(view.Jobs, a.jobView(job, *next))
	}

	if *format == "text" {
		atCmd := at.New(a.runner, a.cfg.AtBin, a.logger)
		if !atCmd.Available(ctx) {
			view.Notice = fmt.Sprintf("at is not available, jobs run with %s: %s", a.cfg.Shell, atCmd.ErrorOutput())
		}
	}

	return render(a.stdout, *format, view, renderList)
}

func (a *app) jobView(job *crontab.Job, next int) jobView {
	view := jobView{
		Hash:       job.Hash(),
		Name:       job.Comment(),
		Expression: job.Expression(),
		Command:    job.Command(),
		Paused:     job.IsPaused(),
	}

	if next > 0 {
		runs, err := job.NextRuns(a.clock(), next)
		if err != nil {
			a.logger.WithFields(logrus.Fields{"hash": job.Hash()}).Debugf("no next runs: %v", err)
		}
		for _, run := range runs {
			view.NextRuns = append(view.NextRuns, run.Format(time.RFC3339))
		}
	}

	return view
}

func (a *app) show(ctx context.Context, args []string) error {
	fs := a.flags("show")
	format := fs.String("format", "text", "output format: text or yaml")
	next := fs.Int("next", 5, "number of upcoming runs to show")
	positional, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	_, job, err := a.find(ctx, positional[0])
	if err != nil {
		return err
	}

	view := a.jobView(job, *next)

	// Only schedules the simple form can show unchanged get form values.
	if expr, err := job.ParsedExpression(); err == nil && form.IsSimpleExpression(expr) {
		values, err := form.Hydrate(expr)
		if err != nil {
			return err
		}
		view.Form = values.Encode()
	}

	return render(a.stdout, *format, view, renderJob)
}

// jobFlags registers the flags shared by add and edit.
type jobFlags struct {
	expression *string
	form       *string
	command    *string
	name       *string
}

func registerJobFlags(fs *pflag.FlagSet) jobFlags {
	return jobFlags{
		expression: fs.String("expression", "", "cron expression, e.g. \"0 1 * * *\" or @daily"),
		form:       fs.String("form", "", "simple form values, e.g. \"time[picker]=everyMinute&time[everyMinute][step]=5&repeat[picker]=daily\""),
		command:    fs.String("command", "", "command to run"),
		name:       fs.String("name", "", "job name, written as a comment above the job"),
	}
}

// schedule returns the expression given by --expression or --form, or ""
// when neither was set.
func (f jobFlags) schedule(fs *pflag.FlagSet) (string, error) {
	if fs.Changed("expression") && fs.Changed("form") {
		return "", &usageError{command: fs.Name(), msg: "--expression and --form are mutually exclusive"}
	}

	if fs.Changed("form") {
		values, err := form.ParseQuery(*f.form)
		if err != nil {
			return "", fmt.Errorf("invalid form values: %w", err)
		}
		expr, err := form.CreateExpression(values)
		if err != nil {
			return "", err
		}
		return expr.Render(), nil
	}

	if fs.Changed("expression") {
		return validateExpression(*f.expression)
	}

	return "", nil
}

// validateExpression accepts anything cron would schedule, including
// nicknames such as @reboot that have no five-field form.
func validateExpression(expression string) (string, error) {
	expression = strings.TrimSpace(expression)
	if end, ok := cronexpr.Scan(expression); !ok || end != len(expression) {
		return "", fmt.Errorf("%w: %q", errInvalidExpression, expression)
	}
	return expression, nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := a.flags("add")
	flags := registerJobFlags(fs)
	paused := fs.Bool("paused", false, "add the job paused")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	expression, err := flags.schedule(fs)
	if err != nil {
		return err
	}
	command := strings.TrimSpace(*flags.command)
	if expression == "" || command == "" {
		return &usageError{command: "add", msg: "a schedule (--expression or --form) and --command are required"}
	}

	c, err := a.load(ctx)
	if err != nil {
		return err
	}

	job := crontab.NewJob().
		SetExpression(expression).
		SetCommand(command).
		SetComment(strings.TrimSpace(*flags.name)).
		SetIsPaused(*paused)

	if err := c.Add(job); err != nil {
		return err
	}
	if err := c.Save(ctx); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "The job has been saved as %s.\n", job.Hash())
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := a.flags("edit")
	flags := registerJobFlags(fs)
	positional, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	expression, err := flags.schedule(fs)
	if err != nil {
		return err
	}

	c, job, err := a.find(ctx, positional[0])
	if err != nil {
		return err
	}

	if expression != "" {
		job.SetExpression(expression)
	}
	if fs.Changed("command") {
		command := strings.TrimSpace(*flags.command)
		if command == "" {
			return &usageError{command: "edit", msg: "--command cannot be empty"}
		}
		job.SetCommand(command)
	}
	if fs.Changed("name") {
		job.SetComment(strings.TrimSpace(*flags.name))
	}

	if err := c.Update(job); err != nil {
		return err
	}
	if err := c.Save(ctx); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "The job has been saved as %s.\n", job.Hash())
	return nil
}

// mutate applies op to the job with the given hash and saves the crontab.
func (a *app) mutate(ctx context.Context, name string, args []string, op func(*crontab.Crontab, *crontab.Job) error, done string) error {
	positional, err := parse(a.flags(name), args, 1)
	if err != nil {
		return err
	}

	c, job, err := a.find(ctx, positional[0])
	if err != nil {
		return err
	}
	if err := op(c, job); err != nil {
		return err
	}
	if err := c.Save(ctx); err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, done)
	return nil
}

func (a *app) pause(ctx context.Context, args []string) error {
	return a.mutate(ctx, "pause", args, (*crontab.Crontab).Pause, "Job schedule has been paused.")
}

func (a *app) resume(ctx context.Context, args []string) error {
	return a.mutate(ctx, "resume", args, (*crontab.Crontab).Resume, "Job schedule has been resumed.")
}

func (a *app) delete(ctx context.Context, args []string) error {
	return a.mutate(ctx, "delete", args, (*crontab.Crontab).Delete, "Job has been deleted.")
}

func (a *app) runJob(ctx context.Context, args []string) error {
	positional, err := parse(a.flags("run"), args, 1)
	if err != nil {
		return err
	}

	c, job, err := a.find(ctx, positional[0])
	if err != nil {
		return err
	}

	pid, err := c.Run(ctx, job)
	if err != nil {
		return err
	}

	if pid > 0 {
		fmt.Fprintf(a.stdout, "Process started with pid %d.\n", pid)
	} else {
		fmt.Fprintln(a.stdout, "Process started.")
	}
	return nil
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := a.flags("watch")
	listen := fs.String("metrics-listen", a.cfg.MetricsListen, "serve Prometheus metrics on this address")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	user, err := crontab.SystemUser(ctx, a.runner, a.cfg.WhoamiBin)
	if err != nil {
		return err
	}

	if a.metrics == nil {
		a.metrics = prometheus_metrics.New(*listen)
	}
	if runner, ok := a.runner.(*process.ExecRunner); ok {
		runner.Metrics = a.metrics
	}

	if *listen != "" {
		go func() {
			if err := a.metrics.InitHTTPServer(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Errorf("metrics server failed: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.metrics.ShutdownHTTPServer(shutdownCtx); err != nil {
				a.logger.Warnf("metrics server shutdown: %v", err)
			}
		}()
	}

	m := &monitor.Monitor{
		Dir:    a.cfg.SpoolDir,
		User:   user,
		Load:   a.load,
		Logger: a.logger,
		OnReload: func(c *crontab.Crontab) {
			for _, job := range c.Jobs() {
				a.logger.WithFields(logrus.Fields{
					"hash":   job.Hash(),
					"paused": job.IsPaused(),
				}).Infof("%s %s", job.Expression(), job.Command())
			}
		},
	}

	a.logger.Infof("watching the crontab of %s", user)
	return m.Run(ctx)
}
