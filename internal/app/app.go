package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"filecab/internal/config"
	"filecab/internal/filecab"
	"filecab/internal/history"
	"filecab/internal/monitor"
	"filecab/internal/rules"
)

// App is the application layer between the CLI and the ApplicationModel.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages resource lifecycles on Close.
type App struct {
	cfg     *config.Config
	cfgPath string
	model   *filecab.ApplicationModel
	history filecab.History
	logger  filecab.Logger
	logFile *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "AddLocation", "File"). The
// caller must call Close when done.
//
// Locations listed in the config that cannot be registered (revoked access,
// deleted directory) are logged and skipped; one broken location never
// prevents the rest of the application from working.
func NewApp(cfg *config.Config, cfgPath string, operation string) (*App, error) {
	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger.With("operation", operation)}

	var hist filecab.History = filecab.NewNopHistory()
	if cfg.History.Enabled {
		dataDir := cfg.History.DataDir
		if dataDir == "" {
			dataDir = filepath.Join(cfg.BaseDir, "data")
		}
		h, err := history.Open(dataDir)
		if err != nil {
			logFile.Close()
			return nil, fmt.Errorf("opening history: %w", err)
		}
		hist = h
	}

	latency := time.Duration(cfg.DebounceMillis) * time.Millisecond
	newMonitor := func(root string) filecab.Monitor {
		return monitor.New(root, latency, logger)
	}
	newRuleSet := func(root string) (filecab.RuleSet, error) {
		return rules.Open(root, filecab.UUIDGenerator{}, logger)
	}

	model := filecab.NewApplicationModel(newMonitor, newRuleSet, hist, logger, filecab.RealClock{}, filecab.UUIDGenerator{})

	for _, path := range cfg.Inboxes {
		if _, err := model.AddLocation(filecab.LocationInbox, path); err != nil {
			logger.Warn("skipping inbox location", "path", path, "error", err)
		}
	}
	for _, path := range cfg.Archives {
		if _, err := model.AddLocation(filecab.LocationArchive, path); err != nil {
			logger.Warn("skipping archive location", "path", path, "error", err)
		}
	}

	return &App{
		cfg:     cfg,
		cfgPath: cfgPath,
		model:   model,
		history: hist,
		logger:  logger,
		logFile: logFile,
	}, nil
}

// Model exposes the application model for observation.
func (a *App) Model() *filecab.ApplicationModel { return a.model }

// AddLocation resolves rawPath, registers it as the given location type, and
// persists the updated location list.
func (a *App) AddLocation(t filecab.LocationType, rawPath string) error {
	path, err := filepath.Abs(rawPath)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	if _, err := a.model.AddLocation(t, path); err != nil {
		return err
	}

	switch t {
	case filecab.LocationInbox:
		a.cfg.Inboxes = appendUnique(a.cfg.Inboxes, path)
	case filecab.LocationArchive:
		a.cfg.Archives = appendUnique(a.cfg.Archives, path)
	}
	return config.Save(a.cfgPath, a.cfg)
}

// RemoveLocation unregisters the location at rawPath and persists the
// updated location list.
func (a *App) RemoveLocation(rawPath string) error {
	path, err := filepath.Abs(rawPath)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	if err := a.model.RemoveLocation(path); err != nil {
		return err
	}

	a.cfg.Inboxes = remove(a.cfg.Inboxes, path)
	a.cfg.Archives = remove(a.cfg.Archives, path)
	return config.Save(a.cfgPath, a.cfg)
}

// Locations returns the registered locations sorted by path.
func (a *App) Locations() []*filecab.Location { return a.model.Locations() }

// Rules returns the aggregated rule list across all archive locations.
func (a *App) Rules() []*filecab.Rule { return a.model.Rules() }

// Preview resolves the destination the named rule would file rawSource to,
// without moving anything.
func (a *App) Preview(rawSource, ruleName string, overrides map[string]string, ext string) (string, map[string]string, error) {
	source, err := filepath.Abs(rawSource)
	if err != nil {
		return "", nil, fmt.Errorf("resolving path: %w", err)
	}
	return a.model.Preview(source, ruleName, overrides, ext)
}

// FileDocument applies the named rule to rawSource and returns the
// destination.
func (a *App) FileDocument(rawSource, ruleName string, overrides map[string]string, ext string) (string, error) {
	source, err := filepath.Abs(rawSource)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	if _, err := os.Stat(source); err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}
	return a.model.File(source, ruleName, overrides, ext)
}

// Watch starts observation on every location and blocks until ctx is done.
func (a *App) Watch(ctx context.Context) error {
	if err := a.model.Start(); err != nil {
		return err
	}

	for _, loc := range a.model.Locations() {
		loc := loc
		if loc.Err != nil {
			continue
		}
		loc.Monitor.Subscribe(func(paths []string) {
			a.logger.Info("snapshot updated", "path", loc.Path, "files", len(paths))
		})
	}

	<-ctx.Done()
	a.model.Stop()
	return nil
}

// History returns the most recent filings, newest first.
func (a *App) History(limit int) ([]*filecab.Filing, error) {
	return a.history.List(limit)
}

// Close releases the history store and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.history.Close(); err != nil {
		firstErr = fmt.Errorf("closing history: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

func appendUnique(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}

func remove(list []string, v string) []string {
	var out []string
	for _, e := range list {
		if e != v {
			out = append(out, e)
		}
	}
	return out
}
