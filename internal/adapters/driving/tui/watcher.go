package tui

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/anntune/internal/adapters/driving/tui/messages"
)

// settle is how long a burst of writes is coalesced into one reload.
const settle = 250 * time.Millisecond

var errWatcherClosed = errors.New("tui: watcher closed")

// Watcher reports writes to the results file. It watches the containing
// directory so that a file created after startup, or the sqlite journal
// next to it, is still seen.
type Watcher struct {
	fs   *fsnotify.Watcher
	base string
}

// NewWatcher starts watching the directory of path.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &Watcher{fs: fw, base: filepath.Base(path)}, nil
}

// Wait returns a command that blocks until the results file changes.
func (w *Watcher) Wait() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-w.fs.Events:
				if !ok {
					return messages.WatchFailed{Err: errWatcherClosed}
				}
				if !w.matches(ev) {
					continue
				}
				w.drain()
				return messages.ResultsChanged{Path: ev.Name}
			case err, ok := <-w.fs.Errors:
				if !ok {
					return messages.WatchFailed{Err: errWatcherClosed}
				}
				return messages.WatchFailed{Err: err}
			}
		}
	}
}

// drain swallows the rest of a burst.
func (w *Watcher) drain() {
	timer := time.NewTimer(settle)
	defer timer.Stop()
	for {
		select {
		case _, ok := <-w.fs.Events:
			if !ok {
				return
			}
		case <-timer.C:
			return
		}
	}
}

func (w *Watcher) matches(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	return strings.HasPrefix(filepath.Base(ev.Name), w.base)
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
