package filecab

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// LocationType tags a configured directory as a source of unfiled documents
// or as an archive root.
type LocationType string

const (
	LocationInbox   LocationType = "inbox"
	LocationArchive LocationType = "archive"
)

// Location is one configured directory. Archive locations additionally own
// the rule set rooted there; inbox locations own a monitor only. A non-nil
// Err marks the location unavailable without affecting the others.
type Location struct {
	Type    LocationType
	Path    string
	Monitor Monitor
	RuleSet RuleSet // nil for inbox locations
	Err     error
}

// DisplayName derives a human-readable name from the path.
func (l *Location) DisplayName() string { return filepath.Base(l.Path) }

// ApplicationModel aggregates every configured location: it owns their
// monitors and rule sets exclusively, aggregates rules across archives, and
// republishes change notifications to registered listeners. All dependencies
// are constructor-injected.
type ApplicationModel struct {
	newMonitor MonitorFactory
	newRuleSet RuleSetFactory
	history    History
	logger     Logger
	clock      Clock
	ids        IDGenerator

	mu        sync.Mutex
	locations map[string]*Location
	running   bool
	listeners []func()
}

// NewApplicationModel creates an empty model with the given dependencies.
func NewApplicationModel(newMonitor MonitorFactory, newRuleSet RuleSetFactory, history History, logger Logger, clock Clock, ids IDGenerator) *ApplicationModel {
	return &ApplicationModel{
		newMonitor: newMonitor,
		newRuleSet: newRuleSet,
		history:    history,
		logger:     logger,
		clock:      clock,
		ids:        ids,
		locations:  make(map[string]*Location),
	}
}

// AddLocation registers a directory. The path must exist and be a directory;
// otherwise an AccessError is returned and nothing is registered. If the
// model is already running, the location's monitor is started immediately.
func (m *ApplicationModel) AddLocation(t LocationType, path string) (*Location, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &AccessError{Location: path, Err: err}
	}
	if !info.IsDir() {
		return nil, &AccessError{Location: path, Err: fmt.Errorf("not a directory")}
	}

	m.mu.Lock()
	if _, exists := m.locations[path]; exists {
		m.mu.Unlock()
		return nil, &ValidationError{Subject: "location", Reason: fmt.Sprintf("%s is already registered", path)}
	}

	loc := &Location{Type: t, Path: path, Monitor: m.newMonitor(path)}
	if t == LocationArchive {
		rs, err := m.newRuleSet(path)
		if err != nil {
			m.mu.Unlock()
			return nil, &AccessError{Location: path, Err: err}
		}
		rs.Subscribe(m.notify)
		loc.RuleSet = rs
	}
	m.locations[path] = loc
	running := m.running
	m.mu.Unlock()

	loc.Monitor.Subscribe(func([]string) { m.notify() })

	if running {
		m.startLocation(loc)
	}

	m.logger.Info("location added", "type", string(t), "path", path)
	m.notify()
	return loc, nil
}

// RemoveLocation tears down and unregisters the location at path.
func (m *ApplicationModel) RemoveLocation(path string) error {
	m.mu.Lock()
	loc, ok := m.locations[path]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("location not registered: %s", path)
	}
	delete(m.locations, path)
	running := m.running
	m.mu.Unlock()

	if running && loc.Err == nil {
		loc.Monitor.Stop()
	}
	if loc.RuleSet != nil {
		if err := loc.RuleSet.Close(); err != nil {
			m.logger.Warn("closing rule set", "path", path, "error", err)
		}
	}

	m.logger.Info("location removed", "path", path)
	m.notify()
	return nil
}

// Locations returns all registered locations sorted by path.
func (m *ApplicationModel) Locations() []*Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Location, 0, len(m.locations))
	for _, loc := range m.locations {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Location returns the registered location at path.
func (m *ApplicationModel) Location(path string) (*Location, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc, ok := m.locations[path]
	return loc, ok
}

// Rules aggregates the rules of every available archive location, sorted by
// name.
func (m *ApplicationModel) Rules() []*Rule {
	var out []*Rule
	for _, loc := range m.Locations() {
		if loc.RuleSet == nil || loc.Err != nil {
			continue
		}
		out = append(out, loc.RuleSet.Rules()...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FindRule locates a rule by name along with its owning archive location.
func (m *ApplicationModel) FindRule(name string) (*Rule, *Location, error) {
	for _, loc := range m.Locations() {
		if loc.RuleSet == nil || loc.Err != nil {
			continue
		}
		for _, r := range loc.RuleSet.Rules() {
			if r.Name == name {
				return r, loc, nil
			}
		}
	}
	return nil, nil, fmt.Errorf("no rule named %q", name)
}

// Start begins observation on every registered location. A location whose
// monitor fails to start is marked unavailable; the failure never prevents
// the remaining locations from running.
func (m *ApplicationModel) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("model already started")
	}
	m.running = true
	m.mu.Unlock()

	for _, loc := range m.Locations() {
		m.startLocation(loc)
	}
	return nil
}

func (m *ApplicationModel) startLocation(loc *Location) {
	if err := loc.Monitor.Start(); err != nil {
		loc.Err = &AccessError{Location: loc.Path, Err: err}
		m.logger.Warn("location unavailable", "path", loc.Path, "error", err)
		return
	}
	m.logger.Debug("monitor running", "path", loc.Path)
}

// Stop ceases observation on every location. Must not be called from a
// change-listener callback.
func (m *ApplicationModel) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	for _, loc := range m.Locations() {
		if loc.Err == nil {
			loc.Monitor.Stop()
		}
	}
}

// Preview resolves the destination the named rule would file source to,
// without touching the filesystem. Returns the destination and the bindings
// used, with overrides applied on top of the defaults. An empty ext defaults
// to the source file's own extension.
func (m *ApplicationModel) Preview(source, ruleName string, overrides map[string]string, ext string) (string, map[string]string, error) {
	rule, loc, err := m.FindRule(ruleName)
	if err != nil {
		return "", nil, err
	}

	rec := NewFileRecord(source)
	bindings := DefaultBindings(rule, rec, m.clock)
	for name, value := range overrides {
		bindings[name] = value
	}
	if ext == "" {
		ext = rec.Extension()
	}
	return rule.Destination(bindings, loc.Path, ext), bindings, nil
}

// File applies the named rule to source: resolves the destination, performs
// the move, and records the filing. Snapshot convergence happens through the
// monitors' own observation, not here. A ConflictError aborts the move with
// the source left untouched.
func (m *ApplicationModel) File(source, ruleName string, overrides map[string]string, ext string) (string, error) {
	dest, _, err := m.Preview(source, ruleName, overrides, ext)
	if err != nil {
		return "", err
	}

	if err := MoveFile(source, dest); err != nil {
		return "", err
	}

	filing := &Filing{
		ID:          m.ids.New(),
		RuleName:    ruleName,
		Source:      source,
		Destination: dest,
		FiledAt:     m.clock.Now(),
	}
	if err := m.history.Record(filing); err != nil {
		m.logger.Warn("recording filing", "destination", dest, "error", err)
	}

	m.logger.Info("document filed", "rule", ruleName, "source", source, "destination", dest)
	return dest, nil
}

// Subscribe registers fn to be called whenever any location, rule set, or
// monitor snapshot changes.
func (m *ApplicationModel) Subscribe(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *ApplicationModel) notify() {
	m.mu.Lock()
	listeners := make([]func(), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
