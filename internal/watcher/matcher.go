package watcher

import (
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blackwell-systems/apkident/internal/scanner"
)

// action is what a settled path asks of the scanner.
type action int

const (
	actionScan action = iota
	actionForget
)

// classify maps an fsnotify event on an archive path to an action.
// Events on other files and permission changes are ignored.
func classify(ev fsnotify.Event) (action, bool) {
	if !scanner.IsArchive(ev.Name) {
		return 0, false
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return actionForget, true
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		return actionScan, true
	default:
		return 0, false
	}
}

type pendingPath struct {
	action action
	last   time.Time
}

// debouncer collects actions per path until each path has been quiet for
// the debounce interval. The last action for a path wins. It is not safe
// for concurrent use; the event loop owns it.
type debouncer struct {
	interval time.Duration
	pending  map[string]pendingPath
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		pending:  make(map[string]pendingPath),
	}
}

func (d *debouncer) add(path string, a action, now time.Time) {
	d.pending[path] = pendingPath{action: a, last: now}
}

// due removes and returns the settled paths, sorted, split by action.
func (d *debouncer) due(now time.Time) (scan, forget []string) {
	return d.take(func(p pendingPath) bool {
		return now.Sub(p.last) >= d.interval
	})
}

// drain removes and returns every pending path regardless of age.
func (d *debouncer) drain() (scan, forget []string) {
	return d.take(func(pendingPath) bool { return true })
}

func (d *debouncer) take(ready func(pendingPath) bool) (scan, forget []string) {
	for path, p := range d.pending {
		if !ready(p) {
			continue
		}
		delete(d.pending, path)
		if p.action == actionForget {
			forget = append(forget, path)
		} else {
			scan = append(scan, path)
		}
	}
	sort.Strings(scan)
	sort.Strings(forget)
	return scan, forget
}

func (d *debouncer) len() int {
	return len(d.pending)
}
