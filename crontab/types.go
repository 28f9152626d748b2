package crontab

import (
	"github.com/cronkeep/cronkeep/at"
	"github.com/cronkeep/cronkeep/process"
	"github.com/cronkeep/cronkeep/prometheus_metrics"
	"github.com/sirupsen/logrus"
)

const (
	DefaultCrontabBin = "crontab"
	DefaultShell      = "/bin/sh"
)

type Options struct {
	Runner     process.Runner
	CrontabBin string
	Shell      string

	// At, when set and available, is used by Run to start jobs.
	At *at.At

	Logger  *logrus.Entry
	Metrics *prometheus_metrics.PrometheusMetrics
}

type span struct {
	start int
	end   int
}

// Crontab is the current user's crontab: the raw text and the jobs found
// in it, in order of appearance. Each job remembers where its text sits in
// the raw table so edits touch nothing else.
type Crontab struct {
	opts     Options
	logger   *logrus.Entry
	rawTable string
	jobs     []*Job
	spans    []span
}
