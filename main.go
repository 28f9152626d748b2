package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cronkeep/cronkeep/config"
	"github.com/cronkeep/cronkeep/crontab"
	"github.com/cronkeep/cronkeep/log/formatter"
	"github.com/cronkeep/cronkeep/log/hook"
	"github.com/cronkeep/cronkeep/process"
	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

var Usage = func() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] COMMAND [ARGS]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(os.Stderr, "  %s\n        %s\n", cmd.usage, cmd.summary)
	}
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	pflag.PrintDefaults()
}

func main() {
	os.Exit(run())
}

// run returns the exit status, so that deferred calls such as the Sentry
// flush happen before the process exits.
func run() int {
	debug := pflag.Bool("debug", false, "enable debug logging")
	json := pflag.Bool("json", false, "enable JSON logging")
	splitLogs := pflag.Bool("split-logs", false, "send debug and info logs to stdout, warnings and errors to stderr")
	logFormat := pflag.String("log-format", "", "log line template, e.g. \"%time [%level] %hash %message\", or \"raw\" for bare messages")
	passthroughLogs := pflag.Bool("passthrough-logs", false, "pass the output of started jobs through without logging it")
	envFile := pflag.String("env-file", "", "load environment variables from this file (default: .env if present)")
	noReap := pflag.Bool("no-reap", false, "disable reaping of dead processes when running as PID 1")
	pflag.CommandLine.SetInterspersed(false)
	pflag.Usage = Usage
	pflag.Parse()

	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	switch {
	case *json:
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case *logFormat == "raw":
		logrus.SetFormatter(&formatter.RawMessageFormatter{})
	case *logFormat != "":
		logrus.SetFormatter(&formatter.CustomFieldFormatter{LogFormat: *logFormat})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if *splitLogs {
		hook.RegisterSplitLogger(logrus.StandardLogger(), os.Stdout, os.Stderr)
	}

	if pflag.NArg() < 1 {
		Usage()
		return 2
	}

	if !*noReap && os.Getpid() == 1 {
		forkExec()
		return 0
	}

	if err := config.LoadEnvFile(*envFile); err != nil {
		logrus.Error(err)
		return 1
	}

	cfg, err := config.NewConfigFromEnv(context.Background())
	if err != nil {
		logrus.Errorf("invalid configuration: %v", err)
		return 1
	}

	if cfg.SentryDSN != "" {
		sh, err := logrus_sentry.NewAsyncSentryHook(cfg.SentryDSN, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			logrus.Errorf("Could not init sentry logger: %s", err)
			return 1
		}
		sh.StacktraceConfiguration.Enable = true
		logrus.AddHook(sh)
		defer sh.Flush()
	}

	logger := logrus.NewEntry(logrus.StandardLogger())

	a := &app{
		cfg: cfg,
		runner: &process.ExecRunner{
			Timeout:         cfg.CommandTimeout,
			Logger:          logger,
			PassthroughLogs: *passthroughLogs,
		},
		logger: logger,
		stdout: os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = a.dispatch(ctx, pflag.Args())
	stop()

	return exitStatus(logger, os.Stderr, err)
}

// exitStatus reports err and maps it to an exit status: 2 for usage errors,
// 1 for other failures.
func exitStatus(logger *logrus.Entry, stderr io.Writer, err error) int {
	if err == nil {
		return 0
	}

	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "%s\n", err)
		return 2
	}

	entry := logger
	if hint := remediation(err); hint != "" {
		entry = entry.WithFields(logrus.Fields{"hint": hint})
	}
	entry.Error(err)
	return 1
}

// remediation suggests a fix for the crontab access errors a user can do
// something about.
func remediation(err error) string {
	switch {
	case errors.Is(err, crontab.ErrUserNotAllowed):
		return "add the user to /etc/cron.allow, or remove it from /etc/cron.deny"
	case errors.Is(err, crontab.ErrSpoolUnreachable):
		return "cron's spool directory is missing; check that cron is installed"
	case errors.Is(err, crontab.ErrPamUnreadable):
		return "PAM denies crontab access to this user; check the crontab entry in /etc/pam.d and /etc/security/access.conf"
	case errors.Is(err, process.ErrTimeout):
		return "raise CRONKEEP_COMMAND_TIMEOUT if the system is slow"
	}
	return ""
}

type usageError struct {
	command string
	msg     string
}

func (e *usageError) Error() string {
	if e.command == "" {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.command, strings.TrimSpace(e.msg))
}
