package rules

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"filecab/internal/filecab"
)

// saveDelay is how long a mutated rule set waits for further edits before
// writing the document back out.
const saveDelay = 500 * time.Millisecond

// RuleSet is the live rule collection of one archive location. Mutations are
// persisted to the backing document on a debounce, and registered listeners
// are told about every change. Entities keep stable ids across reloads, so
// consumers can diff by id instead of re-attaching to positions.
type RuleSet struct {
	root   string
	path   string
	ids    filecab.IDGenerator
	logger filecab.Logger

	mu        sync.Mutex
	rules     []*filecab.Rule // sorted by name
	listeners []func()
	saveTimer *time.Timer
	closed    bool
}

// Open loads the rule set rooted at the archive directory root. Per the load
// policy, a missing or damaged document yields an empty set.
func Open(root string, ids filecab.IDGenerator, logger filecab.Logger) (*RuleSet, error) {
	path := filepath.Join(root, DocumentName)
	return &RuleSet{
		root:   root,
		path:   path,
		ids:    ids,
		logger: logger,
		rules:  Load(path, ids, logger),
	}, nil
}

// Root returns the archive directory this set belongs to.
func (s *RuleSet) Root() string { return s.root }

// Rules returns a copy of the rule list, sorted by name.
func (s *RuleSet) Rules() []*filecab.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*filecab.Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Rule returns the rule with the given id.
func (s *RuleSet) Rule(id string) (*filecab.Rule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rules {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// NewRule creates and stores a rule with the default shape. Rule names must
// be unique within the set.
func (s *RuleSet) NewRule(name string) (*filecab.Rule, error) {
	s.mu.Lock()
	for _, r := range s.rules {
		if r.Name == name {
			s.mu.Unlock()
			return nil, &filecab.ValidationError{Subject: "rule set", Reason: fmt.Sprintf("a rule named %q already exists", name)}
		}
	}
	rule := filecab.NewRule(s.ids.New(), name)
	s.rules = append(s.rules, rule)
	sortRules(s.rules)
	s.scheduleSaveLocked()
	s.mu.Unlock()

	s.notify()
	return rule, nil
}

// UpdateRule replaces the stored rule carrying the same id. The rule's own
// validity (duplicate variable names, dangling references) is an editing
// concern reported by Rule.Validate; storing an invalid rule never corrupts
// its variable or component lists.
func (s *RuleSet) UpdateRule(rule *filecab.Rule) error {
	s.mu.Lock()
	for _, r := range s.rules {
		if r.Name == rule.Name && r.ID != rule.ID {
			s.mu.Unlock()
			return &filecab.ValidationError{Subject: "rule set", Reason: fmt.Sprintf("a rule named %q already exists", rule.Name)}
		}
	}
	found := false
	for i, r := range s.rules {
		if r.ID == rule.ID {
			s.rules[i] = rule
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return fmt.Errorf("no rule with id %s", rule.ID)
	}
	sortRules(s.rules)
	s.scheduleSaveLocked()
	s.mu.Unlock()

	s.notify()
	return nil
}

// RemoveRule deletes the rule with the given id.
func (s *RuleSet) RemoveRule(id string) error {
	s.mu.Lock()
	idx := -1
	for i, r := range s.rules {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return fmt.Errorf("no rule with id %s", id)
	}
	s.rules = append(s.rules[:idx], s.rules[idx+1:]...)
	s.scheduleSaveLocked()
	s.mu.Unlock()

	s.notify()
	return nil
}

// Subscribe registers fn to run after every mutation.
func (s *RuleSet) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Flush writes the document immediately, cancelling any pending debounced
// save.
func (s *RuleSet) Flush() error {
	s.mu.Lock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	snapshot := make([]*filecab.Rule, len(s.rules))
	copy(snapshot, s.rules)
	path := s.path
	s.mu.Unlock()

	return Save(path, snapshot)
}

// Close flushes any pending save and stops the debounce timer.
func (s *RuleSet) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Flush()
}

func (s *RuleSet) scheduleSaveLocked() {
	if s.closed {
		return
	}
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(saveDelay, func() {
		if err := s.Flush(); err != nil {
			s.logger.Error("saving rules document", "path", s.path, "error", err)
		}
	})
}

func (s *RuleSet) notify() {
	s.mu.Lock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Compile-time check that RuleSet implements the core interface.
var _ filecab.RuleSet = (*RuleSet)(nil)
