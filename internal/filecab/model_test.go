package filecab

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"filecab/internal/testutil"
)

// stubMonitor is an inert Monitor for model tests.
type stubMonitor struct {
	mu        sync.Mutex
	failStart bool
	started   bool
	stopped   bool
}

func (m *stubMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failStart {
		return fmt.Errorf("start refused")
	}
	m.started = true
	return nil
}

func (m *stubMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

func (m *stubMonitor) Refresh()                    {}
func (m *stubMonitor) Snapshot() []string          { return nil }
func (m *stubMonitor) Subscribe(func(paths []string)) {}

// stubRuleSet holds a fixed rule list for model tests.
type stubRuleSet struct {
	rules  []*Rule
	closed bool
}

func (s *stubRuleSet) Rules() []*Rule { return s.rules }

func (s *stubRuleSet) Rule(id string) (*Rule, bool) {
	for _, r := range s.rules {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

func (s *stubRuleSet) NewRule(name string) (*Rule, error) {
	rule := NewRule(fmt.Sprintf("id-%d", len(s.rules)+1), name)
	s.rules = append(s.rules, rule)
	return rule, nil
}

func (s *stubRuleSet) UpdateRule(*Rule) error  { return nil }
func (s *stubRuleSet) RemoveRule(string) error { return nil }
func (s *stubRuleSet) Subscribe(func())        {}
func (s *stubRuleSet) Close() error            { s.closed = true; return nil }

var (
	_ Monitor = (*stubMonitor)(nil)
	_ RuleSet = (*stubRuleSet)(nil)
)

type modelFixture struct {
	model    *ApplicationModel
	monitors map[string]*stubMonitor
	ruleSets map[string]*stubRuleSet
}

func newModelFixture(t *testing.T) *modelFixture {
	t.Helper()
	f := &modelFixture{
		monitors: make(map[string]*stubMonitor),
		ruleSets: make(map[string]*stubRuleSet),
	}
	newMonitor := func(root string) Monitor {
		m := &stubMonitor{}
		f.monitors[root] = m
		return m
	}
	newRuleSet := func(root string) (RuleSet, error) {
		s := &stubRuleSet{}
		f.ruleSets[root] = s
		return s, nil
	}
	f.model = NewApplicationModel(newMonitor, newRuleSet, NewNopHistory(), NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())
	return f
}

func TestApplicationModelAddLocation(t *testing.T) {
	t.Parallel()

	t.Run("inbox", func(t *testing.T) {
		t.Parallel()

		f := newModelFixture(t)
		dir := t.TempDir()
		loc, err := f.model.AddLocation(LocationInbox, dir)
		if err != nil {
			t.Fatalf("AddLocation: %v", err)
		}
		if loc.Type != LocationInbox || loc.Path != dir {
			t.Errorf("unexpected location: %+v", loc)
		}
		if loc.RuleSet != nil {
			t.Error("inbox locations must not own a rule set")
		}
		if loc.DisplayName() != filepath.Base(dir) {
			t.Errorf("DisplayName() = %q", loc.DisplayName())
		}
	})

	t.Run("archive owns a rule set", func(t *testing.T) {
		t.Parallel()

		f := newModelFixture(t)
		dir := t.TempDir()
		loc, err := f.model.AddLocation(LocationArchive, dir)
		if err != nil {
			t.Fatalf("AddLocation: %v", err)
		}
		if loc.RuleSet == nil {
			t.Error("archive location has no rule set")
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()

		f := newModelFixture(t)
		_, err := f.model.AddLocation(LocationInbox, filepath.Join(t.TempDir(), "missing"))
		var aerr *AccessError
		if !errors.As(err, &aerr) {
			t.Fatalf("expected AccessError, got %v", err)
		}
	})

	t.Run("regular file rejected", func(t *testing.T) {
		t.Parallel()

		f := newModelFixture(t)
		path := filepath.Join(t.TempDir(), "file.txt")
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := f.model.AddLocation(LocationInbox, path)
		var aerr *AccessError
		if !errors.As(err, &aerr) {
			t.Fatalf("expected AccessError, got %v", err)
		}
	})

	t.Run("duplicate path rejected", func(t *testing.T) {
		t.Parallel()

		f := newModelFixture(t)
		dir := t.TempDir()
		if _, err := f.model.AddLocation(LocationInbox, dir); err != nil {
			t.Fatal(err)
		}
		_, err := f.model.AddLocation(LocationArchive, dir)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestApplicationModelRemoveLocation(t *testing.T) {
	t.Parallel()

	f := newModelFixture(t)
	dir := t.TempDir()
	if _, err := f.model.AddLocation(LocationArchive, dir); err != nil {
		t.Fatal(err)
	}

	if err := f.model.RemoveLocation(dir); err != nil {
		t.Fatalf("RemoveLocation: %v", err)
	}
	if len(f.model.Locations()) != 0 {
		t.Error("location still registered")
	}
	if !f.ruleSets[dir].closed {
		t.Error("rule set not closed on removal")
	}

	if err := f.model.RemoveLocation(dir); err == nil {
		t.Error("expected error removing unknown location")
	}
}

func TestApplicationModelRulesAggregation(t *testing.T) {
	t.Parallel()

	f := newModelFixture(t)
	a, b := t.TempDir(), t.TempDir()
	if _, err := f.model.AddLocation(LocationArchive, a); err != nil {
		t.Fatal(err)
	}
	if _, err := f.model.AddLocation(LocationArchive, b); err != nil {
		t.Fatal(err)
	}

	f.ruleSets[a].NewRule("Taxes")
	f.ruleSets[b].NewRule("Insurance")
	f.ruleSets[b].NewRule("Receipts")

	got := f.model.Rules()
	names := make([]string, len(got))
	for i, r := range got {
		names[i] = r.Name
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("rules not sorted by name: %v", names)
	}
	if len(names) != 3 {
		t.Fatalf("expected 3 rules, got %v", names)
	}

	rule, loc, err := f.model.FindRule("Insurance")
	if err != nil {
		t.Fatalf("FindRule: %v", err)
	}
	if rule.Name != "Insurance" || loc.Path != b {
		t.Errorf("FindRule returned %q at %q", rule.Name, loc.Path)
	}

	if _, _, err := f.model.FindRule("Missing"); err == nil {
		t.Error("expected error for unknown rule")
	}
}

func TestApplicationModelStartStop(t *testing.T) {
	t.Parallel()

	t.Run("one failure does not stop the rest", func(t *testing.T) {
		t.Parallel()

		f := newModelFixture(t)
		good, bad := t.TempDir(), t.TempDir()
		if _, err := f.model.AddLocation(LocationInbox, good); err != nil {
			t.Fatal(err)
		}
		badLoc, err := f.model.AddLocation(LocationInbox, bad)
		if err != nil {
			t.Fatal(err)
		}
		f.monitors[bad].failStart = true

		if err := f.model.Start(); err != nil {
			t.Fatalf("Start: %v", err)
		}

		if !f.monitors[good].started {
			t.Error("healthy monitor not started")
		}
		var aerr *AccessError
		if !errors.As(badLoc.Err, &aerr) {
			t.Errorf("failed location error = %v, want AccessError", badLoc.Err)
		}

		f.model.Stop()
		if !f.monitors[good].stopped {
			t.Error("healthy monitor not stopped")
		}
		if f.monitors[bad].stopped {
			t.Error("failed monitor should not be stopped")
		}
	})

	t.Run("double start rejected", func(t *testing.T) {
		t.Parallel()

		f := newModelFixture(t)
		if err := f.model.Start(); err != nil {
			t.Fatal(err)
		}
		if err := f.model.Start(); err == nil {
			t.Error("expected error on second Start")
		}
	})

	t.Run("location added while running starts immediately", func(t *testing.T) {
		t.Parallel()

		f := newModelFixture(t)
		if err := f.model.Start(); err != nil {
			t.Fatal(err)
		}
		dir := t.TempDir()
		if _, err := f.model.AddLocation(LocationInbox, dir); err != nil {
			t.Fatal(err)
		}
		if !f.monitors[dir].started {
			t.Error("monitor for late-added location not started")
		}
	})
}

func TestApplicationModelPreviewAndFile(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) (*modelFixture, string, string) {
		t.Helper()
		f := newModelFixture(t)
		archive := t.TempDir()
		inbox := t.TempDir()
		if _, err := f.model.AddLocation(LocationArchive, archive); err != nil {
			t.Fatal(err)
		}
		rule, _ := f.ruleSets[archive].NewRule("Taxes")
		rule.Components = []Component{
			{Kind: ComponentText, Value: "Taxes/"},
			{Kind: ComponentVariable, Value: "Date"},
		}
		return f, archive, inbox
	}

	t.Run("preview resolves without moving", func(t *testing.T) {
		t.Parallel()

		f, archive, inbox := setup(t)
		source := filepath.Join(inbox, "2021-05-19 invoice.pdf")
		if err := os.WriteFile(source, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}

		dest, bindings, err := f.model.Preview(source, "Taxes", nil, "")
		if err != nil {
			t.Fatalf("Preview: %v", err)
		}
		want := filepath.Join(archive, "Taxes", "2021-05-19") + ".pdf"
		if dest != want {
			t.Errorf("dest = %q, want %q", dest, want)
		}
		if bindings["Date"] != "2021-05-19" {
			t.Errorf("Date binding = %q", bindings["Date"])
		}
		if _, err := os.Stat(source); err != nil {
			t.Error("preview must not touch the source")
		}
	})

	t.Run("overrides win", func(t *testing.T) {
		t.Parallel()

		f, archive, inbox := setup(t)
		source := filepath.Join(inbox, "2021-05-19 invoice.pdf")
		if err := os.WriteFile(source, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}

		dest, _, err := f.model.Preview(source, "Taxes", map[string]string{"Date": "1999-01-01"}, "txt")
		if err != nil {
			t.Fatalf("Preview: %v", err)
		}
		want := filepath.Join(archive, "Taxes", "1999-01-01") + ".txt"
		if dest != want {
			t.Errorf("dest = %q, want %q", dest, want)
		}
	})

	t.Run("file moves and reports destination", func(t *testing.T) {
		t.Parallel()

		f, archive, inbox := setup(t)
		source := filepath.Join(inbox, "2021-05-19 invoice.pdf")
		if err := os.WriteFile(source, []byte("contents"), 0644); err != nil {
			t.Fatal(err)
		}

		dest, err := f.model.File(source, "Taxes", nil, "")
		if err != nil {
			t.Fatalf("File: %v", err)
		}
		want := filepath.Join(archive, "Taxes", "2021-05-19") + ".pdf"
		if dest != want {
			t.Errorf("dest = %q, want %q", dest, want)
		}
		if _, err := os.Stat(dest); err != nil {
			t.Errorf("destination missing: %v", err)
		}
		if _, err := os.Stat(source); !os.IsNotExist(err) {
			t.Error("source still present after filing")
		}
	})

	t.Run("conflict leaves source in place", func(t *testing.T) {
		t.Parallel()

		f, archive, inbox := setup(t)
		source := filepath.Join(inbox, "2021-05-19 invoice.pdf")
		if err := os.WriteFile(source, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		occupied := filepath.Join(archive, "Taxes", "2021-05-19.pdf")
		writeFile(t, occupied, "existing")

		_, err := f.model.File(source, "Taxes", nil, "")
		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if _, err := os.Stat(source); err != nil {
			t.Error("source disturbed by failed filing")
		}
	})

	t.Run("unknown rule", func(t *testing.T) {
		t.Parallel()

		f, _, inbox := setup(t)
		if _, err := f.model.File(filepath.Join(inbox, "x.pdf"), "Missing", nil, ""); err == nil {
			t.Error("expected error for unknown rule")
		}
	})
}

func TestApplicationModelSubscribe(t *testing.T) {
	t.Parallel()

	f := newModelFixture(t)
	var mu sync.Mutex
	calls := 0
	f.model.Subscribe(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	dir := t.TempDir()
	if _, err := f.model.AddLocation(LocationInbox, dir); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls == 0 {
		t.Error("listener not notified on location add")
	}
}
