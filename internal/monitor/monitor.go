// Package monitor keeps an in-memory view of a directory tree consistent
// with the disk. It publishes the tree's file set as snapshots, coalescing
// bursts of filesystem events behind a short debounce window.
package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"filecab/internal/filecab"
)

// DefaultLatency is the debounce window between the last observed event and
// the snapshot update it produces. It trades a little responsiveness for
// stable snapshots during rapid multi-file operations such as batch copies.
const DefaultLatency = 300 * time.Millisecond

type state int

const (
	stateStopped state = iota
	stateStarting
	stateRunning
)

// Monitor observes one directory root. There is no paused state: Refresh is
// an operation on a running monitor, and Stop returns it to stopped.
//
// All scans and snapshot publications run on the monitor's event goroutine
// (the initial scan runs inside Start, before that goroutine exists), so
// snapshots apply strictly in production order and a scan begun before Stop
// can never land after it.
type Monitor struct {
	root    string
	latency time.Duration
	logger  filecab.Logger

	mu          sync.Mutex
	state       state
	files       map[string]struct{}
	subscribers []func(paths []string)

	watcher   *fsnotify.Watcher
	refreshCh chan struct{}
	done      chan struct{}
	loopDone  chan struct{}
}

// New creates a monitor for root with the given debounce latency.
// latency <= 0 selects DefaultLatency.
func New(root string, latency time.Duration, logger filecab.Logger) *Monitor {
	if latency <= 0 {
		latency = DefaultLatency
	}
	return &Monitor{
		root:    root,
		latency: latency,
		logger:  logger,
		files:   make(map[string]struct{}),
	}
}

// Start begins observation. It performs the initial full scan and publishes
// the resulting snapshot before returning, so a caller that has seen Start
// complete can rely on the snapshot reflecting the directory at that moment.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.state != stateStopped {
		m.mu.Unlock()
		return fmt.Errorf("monitor already started: %s", m.root)
	}
	m.state = stateStarting
	m.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.setState(stateStopped)
		return fmt.Errorf("creating watcher: %w", err)
	}

	files, dirs, err := scanTree(m.root)
	if err != nil {
		watcher.Close()
		m.setState(stateStopped)
		return fmt.Errorf("scanning %s: %w", m.root, err)
	}
	for _, d := range dirs {
		if err := watcher.Add(d); err != nil {
			m.logger.Warn("watching directory", "path", d, "error", err)
		}
	}

	m.mu.Lock()
	m.watcher = watcher
	m.files = files
	m.refreshCh = make(chan struct{}, 1)
	m.done = make(chan struct{})
	m.loopDone = make(chan struct{})
	m.state = stateRunning
	m.mu.Unlock()

	m.publish()
	go m.loop()

	m.logger.Debug("monitor started", "root", m.root, "files", len(files))
	return nil
}

// Stop ceases observation. It is safe to call from any goroutine, but must
// not be called from inside a subscriber callback: Stop waits for the event
// goroutine — which delivers those callbacks — to exit, and would deadlock.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.state != stateRunning {
		m.mu.Unlock()
		return
	}
	done := m.done
	loopDone := m.loopDone
	m.mu.Unlock()

	close(done)
	<-loopDone

	m.mu.Lock()
	m.watcher.Close()
	m.watcher = nil
	m.state = stateStopped
	m.mu.Unlock()

	m.logger.Debug("monitor stopped", "root", m.root)
}

// Refresh forces a full re-scan, replacing the snapshot. Refreshes issued
// while one is already queued coalesce into it.
func (m *Monitor) Refresh() {
	m.mu.Lock()
	ch := m.refreshCh
	running := m.state == stateRunning
	m.mu.Unlock()
	if !running {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Snapshot returns the current file set as sorted absolute paths.
func (m *Monitor) Snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedPaths(m.files)
}

// Subscribe registers fn and immediately delivers the current snapshot to
// it. Later snapshots arrive in publication order. Only the latest value is
// retained; there is no replay buffer.
func (m *Monitor) Subscribe(fn func(paths []string)) {
	m.mu.Lock()
	m.subscribers = append(m.subscribers, fn)
	current := sortedPaths(m.files)
	m.mu.Unlock()
	fn(current)
}

func (m *Monitor) setState(s state) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// loop services the event stream. Changed paths accumulate in pending until
// the stream has been quiet for the debounce latency, then one reconcile
// pass classifies them all against live filesystem state.
func (m *Monitor) loop() {
	defer close(m.loopDone)

	pending := make(map[string]struct{})
	timer := time.NewTimer(m.latency)
	if !timer.Stop() {
		<-timer.C
	}
	timerArmed := false

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			pending[event.Name] = struct{}{}

			// A freshly created directory must be watched before events
			// inside it can be seen; reconcile picks up its contents.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !hidden(event.Name) {
					if err := m.watcher.Add(event.Name); err != nil {
						m.logger.Warn("watching directory", "path", event.Name, "error", err)
					}
				}
			}

			if timerArmed && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(m.latency)
			timerArmed = true

		case <-timer.C:
			timerArmed = false
			m.reconcile(pending)
			pending = make(map[string]struct{})

		case <-m.refreshCh:
			m.rescan()
			pending = make(map[string]struct{})

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("watcher error", "root", m.root, "error", err)

		case <-m.done:
			return
		}
	}
}

// reconcile classifies each notified path by its current existence on disk.
// Event flags are deliberately ignored: create/delete/rename sequences race,
// and the live filesystem state is the only authority.
func (m *Monitor) reconcile(pending map[string]struct{}) {
	type listing struct {
		dir   string
		files map[string]struct{}
		ok    bool
	}
	var inserts []string
	var removals []string
	var listings []listing

	for path := range pending {
		info, err := os.Stat(path)
		switch {
		case err != nil:
			removals = append(removals, path)
		case info.IsDir():
			if hidden(path) {
				continue
			}
			// A changed directory gets a fresh recursive listing; its prior
			// known children may be arbitrarily stale.
			files, dirs, err := scanTree(path)
			if err != nil {
				m.logger.Warn("listing directory", "path", path, "error", err)
				removals = append(removals, path)
				continue
			}
			for _, d := range dirs {
				if err := m.watcher.Add(d); err != nil {
					m.logger.Warn("watching directory", "path", d, "error", err)
				}
			}
			listings = append(listings, listing{dir: path, files: files, ok: true})
		case info.Mode().IsRegular():
			inserts = append(inserts, path)
		}
	}

	m.mu.Lock()
	changed := false
	for _, path := range removals {
		if m.removeSubtreeLocked(path) {
			changed = true
		}
	}
	for _, l := range listings {
		prefix := l.dir + string(filepath.Separator)
		for known := range m.files {
			if strings.HasPrefix(known, prefix) {
				if _, still := l.files[known]; !still {
					delete(m.files, known)
					changed = true
				}
			}
		}
		for f := range l.files {
			if _, ok := m.files[f]; !ok {
				m.files[f] = struct{}{}
				changed = true
			}
		}
	}
	for _, path := range inserts {
		if _, ok := m.files[path]; !ok {
			m.files[path] = struct{}{}
			changed = true
		}
	}
	m.mu.Unlock()

	if changed {
		m.publish()
	}
}

func (m *Monitor) removeSubtreeLocked(path string) bool {
	changed := false
	if _, ok := m.files[path]; ok {
		delete(m.files, path)
		changed = true
	}
	prefix := path + string(filepath.Separator)
	for known := range m.files {
		if strings.HasPrefix(known, prefix) {
			delete(m.files, known)
			changed = true
		}
	}
	return changed
}

func (m *Monitor) rescan() {
	files, dirs, err := scanTree(m.root)
	if err != nil {
		m.logger.Warn("rescanning", "root", m.root, "error", err)
		return
	}
	for _, d := range dirs {
		if err := m.watcher.Add(d); err != nil {
			m.logger.Warn("watching directory", "path", d, "error", err)
		}
	}

	m.mu.Lock()
	m.files = files
	m.mu.Unlock()

	m.publish()
}

// publish delivers the current snapshot to every subscriber. All calls come
// from Start or from the event goroutine, so deliveries stay ordered.
func (m *Monitor) publish() {
	m.mu.Lock()
	snapshot := sortedPaths(m.files)
	subscribers := make([]func(paths []string), len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
}

// scanTree walks root and returns the regular files and the directories it
// contains, root included. Hidden directories and their contents are
// skipped.
func scanTree(root string) (map[string]struct{}, []string, error) {
	files := make(map[string]struct{})
	var dirs []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // entries can vanish mid-walk
		}
		if info.IsDir() {
			if path != root && hidden(path) {
				return filepath.SkipDir
			}
			dirs = append(dirs, path)
			return nil
		}
		if info.Mode().IsRegular() {
			files[path] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return files, dirs, nil
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func sortedPaths(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Compile-time check that Monitor implements the core interface.
var _ filecab.Monitor = (*Monitor)(nil)
