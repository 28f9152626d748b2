package crontab

import (
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/cronkeep/cronkeep/cronexpr"
)

// LineSeparator terminates every line cronkeep writes to a crontab.
const LineSeparator = "\n"

// pauseMarker is prepended to the command line of a paused job.
const pauseMarker = "# "

// Job is one crontab entry: an optional comment line (conventionally the
// job name) followed by the schedule and command. Its raw text is derived
// from those fields as soon as both the expression and command are set.
type Job struct {
	expression  string
	command     string
	comment     string
	isPaused    bool
	raw         string
	originalRaw string
	// commentLine is the comment line as read from the crontab, reused
	// verbatim while the comment keeps the value parsed from it.
	commentLine    string
	commentLineFor string
	rawSet      bool
	hash        string
}

func NewJob() *Job {
	return &Job{}
}

func (j *Job) SetExpression(expression string) *Job {
	j.expression = expression
	j.generateRaw()
	return j
}

func (j *Job) SetExpressionValue(expression *cronexpr.Expression) *Job {
	return j.SetExpression(expression.Render())
}

func (j *Job) SetCommand(command string) *Job {
	j.command = command
	j.generateRaw()
	return j
}

func (j *Job) SetComment(comment string) *Job {
	j.comment = comment
	j.generateRaw()
	return j
}

func (j *Job) SetIsPaused(isPaused bool) *Job {
	j.isPaused = isPaused
	j.generateRaw()
	return j
}

func (j *Job) Pause() *Job {
	return j.SetIsPaused(true)
}

func (j *Job) Resume() *Job {
	return j.SetIsPaused(false)
}

// SetRaw assigns the raw text directly. The first call ever made on a job
// also records it as the original raw text.
func (j *Job) SetRaw(raw string) *Job {
	j.raw = raw
	if !j.rawSet {
		j.originalRaw = raw
		j.rawSet = true
	}
	j.hash = fmt.Sprintf("%08x", crc32.ChecksumIEEE([]byte(raw)))
	return j
}

func (j *Job) Raw() (string, error) {
	if j.raw == "" {
		return "", ErrIncompleteJob
	}
	return j.raw, nil
}

// OriginalRaw is the text of the job as it was first loaded or built.
func (j *Job) OriginalRaw() string {
	return j.originalRaw
}

func (j *Job) Expression() string {
	return j.expression
}

// ParsedExpression returns the structured form of the schedule. It fails
// for schedules that have no five-field equivalent, such as @reboot.
func (j *Job) ParsedExpression() (*cronexpr.Expression, error) {
	return cronexpr.Create(j.expression)
}

func (j *Job) Command() string {
	return j.command
}

func (j *Job) Comment() string {
	return j.comment
}

func (j *Job) IsPaused() bool {
	return j.isPaused
}

// Hash is a CRC32 checksum of the raw text, as 8 lowercase hex digits.
// It is a short handle for addressing a job, not a unique identifier:
// identical entries share a hash.
func (j *Job) Hash() string {
	return j.hash
}

func (j *Job) generateRaw() {
	if j.command == "" || j.expression == "" {
		return
	}

	var b strings.Builder
	switch {
	case j.comment == "":
	case j.commentLine != "" && j.commentLineFor == j.comment:
		b.WriteString(j.commentLine)
	default:
		b.WriteString("# ")
		b.WriteString(j.comment)
		b.WriteString(LineSeparator)
	}
	if j.isPaused {
		b.WriteString(pauseMarker)
	}
	b.WriteString(j.expression)
	b.WriteString(" ")
	b.WriteString(j.command)
	b.WriteString(LineSeparator)

	j.SetRaw(b.String())
}

// keepCommentLine records the crontab line that comment was parsed from.
func (j *Job) keepCommentLine(line, comment string) {
	j.commentLine = line
	j.commentLineFor = comment
}

func (j *Job) validate() error {
	for _, field := range []string{j.expression, j.command, j.comment} {
		if strings.ContainsAny(field, "\r\n") {
			return ErrMultiline
		}
	}
	if j.raw == "" {
		return ErrIncompleteJob
	}
	return nil
}
