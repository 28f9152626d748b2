package crontab

import (
	"fmt"
	"hash/crc32"
	"testing"
	"time"

	"github.com/cronkeep/cronkeep/cronexpr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jobRawTestCases = []struct {
	expression string
	command    string
	comment    string
	paused     bool
	raw        string
}{
	{"* * * * *", "ls", "", false, "* * * * * ls\n"},
	{"0 1 * * *", "/bin/backup", "backup", false, "# backup\n0 1 * * * /bin/backup\n"},
	{"*/5 * * * *", "true", "", true, "# */5 * * * * true\n"},
	{"@reboot", "start.sh", "boot", true, "# boot\n# @reboot start.sh\n"},
}

func TestJobRaw(t *testing.T) {
	for _, tt := range jobRawTestCases {
		label := fmt.Sprintf("Job(%q, %q, %q, %v)", tt.expression, tt.command, tt.comment, tt.paused)

		job := NewJob().
			SetComment(tt.comment).
			SetIsPaused(tt.paused).
			SetExpression(tt.expression).
			SetCommand(tt.command)

		raw, err := job.Raw()
		if assert.Nil(t, err, label) {
			assert.Equal(t, tt.raw, raw, label)
		}

		assert.Equal(t, fmt.Sprintf("%08x", crc32.ChecksumIEEE([]byte(tt.raw))), job.Hash(), label)
		assert.Regexp(t, `^[a-z0-9]{8}$`, job.Hash(), label)
	}
}

func TestJobIncomplete(t *testing.T) {
	_, err := NewJob().Raw()
	assert.ErrorIs(t, err, ErrIncompleteJob)

	_, err = NewJob().SetCommand("ls").Raw()
	assert.ErrorIs(t, err, ErrIncompleteJob)

	_, err = NewJob().SetExpression("* * * * *").SetComment("x").Raw()
	assert.ErrorIs(t, err, ErrIncompleteJob)
	assert.Equal(t, "", NewJob().SetCommand("ls").Hash())
}

func TestJobOriginalRawIsCapturedOnce(t *testing.T) {
	job := NewJob().SetExpression("* * * * *").SetCommand("ls")
	assert.Equal(t, "* * * * * ls\n", job.OriginalRaw())

	job.SetComment("listing").SetCommand("ls -l")

	raw, err := job.Raw()
	require.Nil(t, err)
	assert.Equal(t, "# listing\n* * * * * ls -l\n", raw)
	assert.Equal(t, "* * * * * ls\n", job.OriginalRaw())
}

func TestJobPauseResumeRoundTrip(t *testing.T) {
	job := NewJob().SetExpression("0 0 * * 0").SetCommand("weekly.sh").SetComment("weekly")
	raw, _ := job.Raw()
	hash := job.Hash()

	job.Pause()
	paused, _ := job.Raw()
	assert.True(t, job.IsPaused())
	assert.Equal(t, "# weekly\n# 0 0 * * 0 weekly.sh\n", paused)
	assert.NotEqual(t, hash, job.Hash())

	job.Resume()
	resumed, _ := job.Raw()
	assert.False(t, job.IsPaused())
	assert.Equal(t, raw, resumed)
	assert.Equal(t, hash, job.Hash())
}

func TestJobSetExpressionValue(t *testing.T) {
	expr, err := cronexpr.Create("@weekly")
	require.Nil(t, err)

	job := NewJob().SetExpressionValue(expr).SetCommand("report")
	assert.Equal(t, "0 0 * * 0", job.Expression())

	parsed, err := job.ParsedExpression()
	if assert.Nil(t, err) {
		assert.Equal(t, "0 0 * * 0", parsed.Render())
	}

	_, err = NewJob().SetExpression("@reboot").SetCommand("x").ParsedExpression()
	assert.ErrorIs(t, err, cronexpr.ErrParse)
}

func TestJobValidate(t *testing.T) {
	assert.ErrorIs(t, NewJob().SetExpression("* * * * *").SetCommand("a\nb").validate(), ErrMultiline)
	assert.ErrorIs(t, NewJob().SetExpression("* * * * *").SetCommand("a").SetComment("x\r").validate(), ErrMultiline)
	assert.ErrorIs(t, NewJob().SetCommand("a").validate(), ErrIncompleteJob)
	assert.Nil(t, NewJob().SetExpression("* * * * *").SetCommand("a").validate())
}

func TestJobNextRuns(t *testing.T) {
	from := time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)

	runs, err := NewJob().SetExpression("0 12 * * *").SetCommand("x").NextRuns(from, 2)
	if assert.Nil(t, err) {
		assert.Equal(t, []time.Time{
			time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC),
			time.Date(2024, time.January, 2, 12, 0, 0, 0, time.UTC),
		}, runs)
	}

	runs, err = NewJob().SetExpression("*/15 * * * *").SetCommand("x").NextRuns(from, 3)
	if assert.Nil(t, err) {
		assert.Equal(t, []time.Time{
			time.Date(2024, time.January, 1, 10, 15, 0, 0, time.UTC),
			time.Date(2024, time.January, 1, 10, 30, 0, 0, time.UTC),
			time.Date(2024, time.January, 1, 10, 45, 0, 0, time.UTC),
		}, runs)
	}

	_, err = NewJob().SetExpression("* * * * *").SetCommand("x").NextRuns(from, 0)
	assert.NotNil(t, err)
}
