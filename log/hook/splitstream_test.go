package hook

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newSplitLogger() (*logrus.Logger, *bytes.Buffer, *bytes.Buffer) {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	var stdout, stderr bytes.Buffer
	RegisterSplitLogger(logger, &stdout, &stderr)
	return logger, &stdout, &stderr
}

func TestSplitLoggerSendsInfoToStdout(t *testing.T) {
	logger, stdout, stderr := newSplitLogger()

	logger.Debug("out1")
	logger.Info("out2")

	assert.Contains(t, stdout.String(), "msg=out1")
	assert.Contains(t, stdout.String(), "msg=out2")
	assert.Empty(t, stderr.String())
}

func TestSplitLoggerSendsWarningsToStderr(t *testing.T) {
	logger, stdout, stderr := newSplitLogger()

	logger.Warn("err1")
	logger.WithFields(logrus.Fields{"hash": "0a1b2c3d"}).Error("err2")

	assert.Contains(t, stderr.String(), "msg=err1")
	assert.Contains(t, stderr.String(), "msg=err2 hash=0a1b2c3d")
	assert.Empty(t, stdout.String())
}

func TestSplitLoggerHonorsLevel(t *testing.T) {
	logger, stdout, _ := newSplitLogger()
	logger.SetLevel(logrus.InfoLevel)

	logger.Debug("hidden")
	logger.Info("shown")

	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stdout.String(), "shown")
}
