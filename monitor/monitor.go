// Package monitor reloads the user's crontab whenever cron's spool file for
// that user changes, so that exported job gauges follow edits made by any
// tool, not only cronkeep.
package monitor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cronkeep/cronkeep/crontab"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const DefaultDebounce = 250 * time.Millisecond

type LoadFunc func(ctx context.Context) (*crontab.Crontab, error)

type Monitor struct {
	// Dir is cron's spool directory; User names the file to follow in it.
	Dir  string
	User string

	Load     LoadFunc
	Debounce time.Duration
	Logger   *logrus.Entry

	// OnReload, when set, receives every successfully reloaded crontab.
	OnReload func(*crontab.Crontab)
}

// Run loads the crontab once, then again after each burst of changes to
// the spool file, until ctx is done. crontab(1) installs a new table by
// renaming a temporary file, so the directory is watched rather than the
// file itself.
func (m *Monitor) Run(ctx context.Context) error {
	logger := m.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	logger = logger.WithFields(logrus.Fields{"dir": m.Dir, "user": m.User})

	debounce := m.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(m.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.Dir, err)
	}

	m.reload(ctx, logger)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != m.User {
				continue
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
				!event.Op.Has(fsnotify.Rename) && !event.Op.Has(fsnotify.Remove) {
				continue
			}

			logger.Debugf("spool file changed: %s", event.Op)
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Errorf("watcher error: %v", err)

		case <-timer.C:
			m.reload(ctx, logger)
		}
	}
}

func (m *Monitor) reload(ctx context.Context, logger *logrus.Entry) {
	c, err := m.Load(ctx)
	if err != nil {
		logger.Errorf("failed to reload crontab: %v", err)
		return
	}

	logger.Infof("crontab reloaded: %d jobs", c.Len())
	if m.OnReload != nil {
		m.OnReload(c)
	}
}
