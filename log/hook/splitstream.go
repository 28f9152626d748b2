package hook

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	OutLevels = []logrus.Level{logrus.TraceLevel, logrus.DebugLevel, logrus.InfoLevel}
	ErrLevels = []logrus.Level{logrus.WarnLevel, logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel}
)

// WriterHook writes entries of the given levels to a writer, using the
// logger's formatter. Job output is drained from several goroutines, so
// writes are serialized.
type WriterHook struct {
	mu     sync.Mutex
	writer io.Writer
	levels []logrus.Level
}

func NewWriterHook(writer io.Writer, levels ...logrus.Level) *WriterHook {
	return &WriterHook{writer: writer, levels: levels}
}

func (h *WriterHook) Levels() []logrus.Level {
	return h.levels
}

func (h *WriterHook) Fire(entry *logrus.Entry) error {
	serialized, err := entry.Logger.Formatter.Format(entry)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(serialized)
	return err
}

// RegisterSplitLogger sends debug and info messages to outWriter, and
// warnings and errors to errWriter, instead of the logger's own output.
func RegisterSplitLogger(logger *logrus.Logger, outWriter io.Writer, errWriter io.Writer) {
	logger.SetOutput(io.Discard)
	logger.AddHook(NewWriterHook(outWriter, OutLevels...))
	logger.AddHook(NewWriterHook(errWriter, ErrLevels...))
}
