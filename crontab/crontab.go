package crontab

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cronkeep/cronkeep/process"
	"github.com/sirupsen/logrus"
)

// Errors printed by crontab(1).
var (
	errorEmpty            = regexp.MustCompile(`no crontab for .+`)
	errorUserNotAllowed   = regexp.MustCompile(`You \([\w_.-]+\) are not allowed to use this program \(crontab\)`)
	errorSpoolUnreachable = regexp.MustCompile(`'/var/spool/cron' is not a directory, bailing out`)
	errorPamUnreadable    = regexp.MustCompile(`You \([\w_.-]+\) are not allowed to access to \(crontab\) because of pam configuration`)
)

// New builds a crontab from raw text, without reading anything.
func New(rawTable string, opts Options) *Crontab {
	c := newCrontab(opts)
	c.rawTable = rawTable
	c.Parse()
	return c
}

// Load reads and parses the current user's crontab with "crontab -l". A
// user without a crontab gets an empty one.
func Load(ctx context.Context, opts Options) (*Crontab, error) {
	c := newCrontab(opts)
	if err := c.read(ctx); err != nil {
		return nil, err
	}
	c.Parse()
	return c, nil
}

func newCrontab(opts Options) *Crontab {
	if opts.CrontabBin == "" {
		opts.CrontabBin = DefaultCrontabBin
	}
	if opts.Shell == "" {
		opts.Shell = DefaultShell
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Crontab{opts: opts, logger: opts.Logger}
}

func (c *Crontab) read(ctx context.Context) error {
	res, err := c.opts.Runner.Run(ctx, process.Command{Name: c.opts.CrontabBin, Args: []string{"-l"}})
	if err != nil {
		c.opts.Metrics.ObserveRead("error")
		return fmt.Errorf("%w: %w", ErrReadFailure, err)
	}

	if !res.Success() {
		if err := classifyReadError(res.Stderr); err != nil {
			c.opts.Metrics.ObserveRead("error")
			return err
		}
		c.logger.Debug("no crontab installed, starting from an empty one")
		c.opts.Metrics.ObserveRead("empty")
		c.rawTable = ""
		return nil
	}

	c.opts.Metrics.ObserveRead("ok")
	c.rawTable = strings.TrimRight(res.Stdout, "\r\n")
	return nil
}

// classifyReadError maps the stderr of a failed "crontab -l" to an error.
// It returns nil when the user simply has no crontab yet.
func classifyReadError(stderr string) error {
	output := strings.TrimSpace(stderr)

	switch {
	case output == "":
		return &ShellError{Err: ErrReadFailure}
	case errorEmpty.MatchString(output):
		return nil
	case errorUserNotAllowed.MatchString(output):
		return &ShellError{Err: ErrUserNotAllowed, Output: output}
	case errorSpoolUnreachable.MatchString(output):
		return &ShellError{Err: ErrSpoolUnreachable, Output: output}
	case errorPamUnreadable.MatchString(output):
		return &ShellError{Err: ErrPamUnreadable, Output: output}
	}

	return &ShellError{Err: ErrReadFailure, Output: output}
}

// Parse rebuilds the job list from the raw table.
func (c *Crontab) Parse() {
	blocks := parseBlocks(c.rawTable)

	c.jobs = make([]*Job, 0, len(blocks))
	c.spans = make([]span, 0, len(blocks))

	paused := 0
	for _, b := range blocks {
		job := NewJob()
		job.SetRaw(c.rawTable[b.start:b.end])
		if b.comment != "" {
			job.keepCommentLine(commentLineAt(c.rawTable, b.start), b.comment)
		}
		job.SetComment(b.comment)
		job.SetIsPaused(b.Paused)
		job.SetExpression(b.Schedule)
		job.SetCommand(b.Command)

		if b.Paused {
			paused++
		}

		c.jobs = append(c.jobs, job)
		c.spans = append(c.spans, span{start: b.start, end: b.end})
	}

	c.logger.Debugf("parsed %d jobs (%d paused)", len(c.jobs), paused)
	c.opts.Metrics.SetJobs(len(c.jobs)-paused, paused)
}

// commentLineAt returns the line starting at start, line ending included.
func commentLineAt(raw string, start int) string {
	end := strings.IndexByte(raw[start:], '\n')
	if end < 0 {
		return raw[start:]
	}
	return raw[start : start+end+1]
}

// RawTable returns the crontab text as it would be saved.
func (c *Crontab) RawTable() string {
	return c.rawTable
}

func (c *Crontab) Len() int {
	return len(c.jobs)
}

// Jobs returns the jobs in the order they appear in the crontab.
func (c *Crontab) Jobs() []*Job {
	return append([]*Job(nil), c.jobs...)
}

// FindByHash returns the first job with the given hash. Identical entries
// share a hash, in which case the first one wins.
func (c *Crontab) FindByHash(hash string) (*Job, bool) {
	for _, job := range c.jobs {
		if job.Hash() == hash {
			return job, true
		}
	}
	return nil, false
}

func (c *Crontab) indexOf(job *Job) int {
	for i, j := range c.jobs {
		if j == job {
			return i
		}
	}
	return -1
}

// Add appends job at the end of the crontab. Save persists the change.
func (c *Crontab) Add(job *Job) error {
	if err := job.validate(); err != nil {
		return err
	}
	if c.indexOf(job) >= 0 {
		return fmt.Errorf("job %s is already in the crontab", job.Hash())
	}

	trimmed := strings.TrimRight(c.rawTable, "\r\n")
	prefix := trimmed
	if prefix != "" {
		prefix += LineSeparator
	}

	// The last job may have lost its line ending to the trim above.
	for i := range c.spans {
		if c.spans[i].end >= len(trimmed) {
			c.spans[i].end = len(prefix)
		}
	}

	c.rawTable = prefix + job.raw
	c.jobs = append(c.jobs, job)
	c.spans = append(c.spans, span{start: len(prefix), end: len(c.rawTable)})

	c.logger.WithFields(logrus.Fields{"hash": job.Hash()}).Debug("job added")
	c.opts.Metrics.ObserveMutation("add")
	return nil
}

// Update writes the job's current definition over its previous text.
func (c *Crontab) Update(job *Job) error {
	return c.update(job, "update")
}

// Pause comments the job out so cron skips it.
func (c *Crontab) Pause(job *Job) error {
	job.SetIsPaused(true)
	return c.update(job, "pause")
}

// Resume uncomments a paused job.
func (c *Crontab) Resume(job *Job) error {
	job.SetIsPaused(false)
	return c.update(job, "resume")
}

func (c *Crontab) update(job *Job, operation string) error {
	i := c.indexOf(job)
	if i < 0 {
		return ErrUnknownJob
	}
	if err := job.validate(); err != nil {
		return err
	}

	c.replace(i, job.raw)

	c.logger.WithFields(logrus.Fields{"hash": job.Hash()}).Debugf("job %sd", operation)
	c.opts.Metrics.ObserveMutation(operation)
	return nil
}

// Delete removes the job and its comment from the crontab.
func (c *Crontab) Delete(job *Job) error {
	i := c.indexOf(job)
	if i < 0 {
		return ErrUnknownJob
	}

	c.replace(i, "")
	c.jobs = append(c.jobs[:i], c.jobs[i+1:]...)
	c.spans = append(c.spans[:i], c.spans[i+1:]...)

	c.logger.WithFields(logrus.Fields{"hash": job.Hash()}).Debug("job deleted")
	c.opts.Metrics.ObserveMutation("delete")
	return nil
}

// replace swaps the text of job i and moves the spans of the jobs after it.
func (c *Crontab) replace(i int, text string) {
	s := c.spans[i]
	c.rawTable = c.rawTable[:s.start] + text + c.rawTable[s.end:]

	delta := len(text) - (s.end - s.start)
	c.spans[i].end = s.start + len(text)
	for k := i + 1; k < len(c.spans); k++ {
		c.spans[k].start += delta
		c.spans[k].end += delta
	}
}

// Save installs the raw table as the user's crontab with "crontab -".
func (c *Crontab) Save(ctx context.Context) error {
	content := c.rawTable
	if content != "" && !strings.HasSuffix(content, "\n") {
		// crontab refuses a file without a final newline
		content += LineSeparator
	}

	res, err := c.opts.Runner.Run(ctx, process.Command{
		Name:  c.opts.CrontabBin,
		Args:  []string{"-"},
		Stdin: content,
	})
	if err != nil {
		c.opts.Metrics.ObserveSave("error")
		return fmt.Errorf("%w: %w", ErrSaveFailure, err)
	}

	if !res.Success() {
		c.opts.Metrics.ObserveSave("error")
		return &ShellError{Err: ErrSaveFailure, Output: strings.TrimSpace(res.Stderr)}
	}

	c.logger.Infof("crontab saved (%d jobs)", len(c.jobs))
	c.opts.Metrics.ObserveSave("ok")
	return nil
}

// Run starts the job's command now, in the background. When at is
// available the command goes through "at now" and the returned pid is 0;
// otherwise it is started with the shell and its pid is returned.
func (c *Crontab) Run(ctx context.Context, job *Job) (int, error) {
	logger := c.logger.WithFields(logrus.Fields{"hash": job.Hash()})

	if c.opts.At != nil && c.opts.At.Available(ctx) {
		if err := c.opts.At.Submit(ctx, job.Command()); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrRunFailure, err)
		}
		logger.Info("job handed over to at")
		return 0, nil
	}

	pid, err := c.opts.Runner.Start(process.Command{
		Name:   c.opts.Shell,
		Args:   []string{"-c", job.Command()},
		Detach: true,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRunFailure, err)
	}

	logger.Infof("job started with pid %d", pid)
	return pid, nil
}
