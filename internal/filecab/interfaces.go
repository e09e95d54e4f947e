package filecab

// Monitor observes one directory tree and publishes snapshots of the files it
// contains. Implementations live outside the core so the model can be tested
// without a real event stream.
type Monitor interface {
	// Start begins observation. The first snapshot is published before Start
	// returns, so consumers can distinguish "empty directory" from "not yet
	// scanned".
	Start() error
	// Stop ceases observation. Safe to call from any goroutine except a
	// subscriber callback.
	Stop()
	// Refresh forces a full re-scan, for hosts where eventing is suspect.
	Refresh()
	// Snapshot returns the current file set as sorted absolute paths.
	Snapshot() []string
	// Subscribe registers fn to receive the latest snapshot immediately and
	// every subsequent snapshot, in publication order.
	Subscribe(fn func(paths []string))
}

// RuleSet owns the ordered rule collection of one archive location and its
// backing document.
type RuleSet interface {
	// Rules returns the rules sorted by name.
	Rules() []*Rule
	// Rule returns the rule with the given id.
	Rule(id string) (*Rule, bool)
	// NewRule creates a rule with the default shape. The name must be unique
	// within the set.
	NewRule(name string) (*Rule, error)
	// UpdateRule replaces the stored rule with the same id.
	UpdateRule(rule *Rule) error
	// RemoveRule deletes the rule with the given id.
	RemoveRule(id string) error
	// Subscribe registers fn to be called after every mutation.
	Subscribe(fn func())
	// Close flushes any pending save.
	Close() error
}

// MonitorFactory builds a monitor for a directory root.
type MonitorFactory func(root string) Monitor

// RuleSetFactory opens the rule set backed by an archive root.
type RuleSetFactory func(root string) (RuleSet, error)
