package formatter

import (
	"github.com/sirupsen/logrus"
)

// RawMessageFormatter writes the bare message of each entry, without level,
// time or fields. It suits job output relayed to a log collector that adds
// its own metadata.
type RawMessageFormatter struct{}

func (f *RawMessageFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return []byte(entry.Message + "\n"), nil
}
