package formatter

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var fieldPattern = regexp.MustCompile(`%[\w.]+`)

// CustomFieldFormatter renders entries from a template such as
// "%time [%level] %hash %message". %level, %time and %message are always
// available; any other %name is looked up in the entry's fields and
// renders empty when absent.
type CustomFieldFormatter struct {
	LogFormat       string
	TimestampFormat string
}

func (f *CustomFieldFormatter) getFieldValue(entry *logrus.Entry, field string) (string, bool) {
	switch strings.ToLower(field) {
	case "level":
		return entry.Level.String(), true
	case "time":
		layout := f.TimestampFormat
		if layout == "" {
			layout = time.RFC3339Nano
		}
		return entry.Time.Format(layout), true
	case "message":
		return entry.Message, true
	}

	val, ok := entry.Data[field]
	if !ok {
		return "", false
	}
	if s, ok := val.(string); ok {
		return s, true
	}
	return fmt.Sprint(val), true
}

func (f *CustomFieldFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	replaced := fieldPattern.ReplaceAllStringFunc(f.LogFormat, func(match string) string {
		value, _ := f.getFieldValue(entry, strings.TrimPrefix(match, "%"))
		return value
	})

	return []byte(strings.TrimSpace(replaced) + "\n"), nil
}
