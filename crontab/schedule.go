package crontab

import (
	"fmt"
	"time"

	hcron "github.com/hashicorp/cronexpr"
)

// NextRuns returns the next n times the job's schedule fires after from,
// regardless of whether the job is paused.
func (j *Job) NextRuns(from time.Time, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, fmt.Errorf("count must be greater than 0")
	}

	expr, err := hcron.Parse(j.expression)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", j.expression, err)
	}

	return expr.NextN(from, uint(n)), nil
}
