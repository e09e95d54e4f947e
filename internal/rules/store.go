// Package rules persists the rule collection of an archive location to a
// JSON document at the archive root and keeps the live collection in sync
// with it.
package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"filecab/internal/filecab"
)

// DocumentName is the rules document's filename within an archive root.
const DocumentName = "rules.json"

// The canonical write shape is the id-bearing array. The legacy shape — a
// root object keyed by rule name — is still accepted on read.
type document struct {
	Rules []json.RawMessage `json:"rules"`
}

type ruleEntry struct {
	ID          string           `json:"id,omitempty"`
	Name        string           `json:"name"`
	Variables   []variableEntry  `json:"variables"`
	Destination []componentEntry `json:"destination"`
}

type variableEntry struct {
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	DateParams *dateParams `json:"dateParams,omitempty"`
}

type dateParams struct {
	HasDay bool `json:"hasDay"`
}

type componentEntry struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Load reads the rules document at path. The load is partial-failure
// tolerant: a malformed entry is logged and skipped, and an unreadable or
// structurally broken document yields an empty list rather than an error.
// Entries missing an id get a fresh one. The result is sorted by name.
func Load(path string, ids filecab.IDGenerator, logger filecab.Logger) []*filecab.Rule {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("rules document unreadable", "path", path, "error", err)
		}
		return nil
	}

	var out []*filecab.Rule

	var doc document
	if err := json.Unmarshal(data, &doc); err == nil && doc.Rules != nil {
		for i, raw := range doc.Rules {
			var entry ruleEntry
			if err := json.Unmarshal(raw, &entry); err != nil {
				logger.Warn("skipping malformed rule entry", "path", path, "index", i, "error", err)
				continue
			}
			rule, err := decodeRule(&entry, ids)
			if err != nil {
				logger.Warn("skipping malformed rule entry", "path", path, "index", i, "error", err)
				continue
			}
			out = append(out, rule)
		}
	} else {
		// Legacy shape: object keyed by rule name.
		var legacy map[string]json.RawMessage
		if err := json.Unmarshal(data, &legacy); err != nil {
			logger.Warn("rules document unparseable", "path", path, "error", err)
			return nil
		}
		for name, raw := range legacy {
			var entry ruleEntry
			if err := json.Unmarshal(raw, &entry); err != nil {
				logger.Warn("skipping malformed rule entry", "path", path, "rule", name, "error", err)
				continue
			}
			entry.Name = name
			rule, err := decodeRule(&entry, ids)
			if err != nil {
				logger.Warn("skipping malformed rule entry", "path", path, "rule", name, "error", err)
				continue
			}
			out = append(out, rule)
		}
	}

	sortRules(out)
	return out
}

// Save writes the rules document at path in the canonical shape. Output is
// deterministic — stable rule order and stable key order — so repeated saves
// of unchanged data are byte-identical.
func Save(path string, list []*filecab.Rule) error {
	sorted := make([]*filecab.Rule, len(list))
	copy(sorted, list)
	sortRules(sorted)

	doc := document{Rules: make([]json.RawMessage, 0, len(sorted))}
	for _, rule := range sorted {
		raw, err := json.Marshal(encodeRule(rule))
		if err != nil {
			return fmt.Errorf("encoding rule %s: %w", rule.Name, err)
		}
		doc.Rules = append(doc.Rules, raw)
	}

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding rules document: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing rules document: %w", err)
	}
	return nil
}

func decodeRule(entry *ruleEntry, ids filecab.IDGenerator) (*filecab.Rule, error) {
	if entry.Name == "" {
		return nil, fmt.Errorf("rule has no name")
	}

	rule := &filecab.Rule{ID: entry.ID, Name: entry.Name}
	if rule.ID == "" {
		rule.ID = ids.New()
	}

	for _, v := range entry.Variables {
		variable := filecab.Variable{Name: v.Name}
		switch v.Type {
		case "string":
			variable.Kind = filecab.VariableString
		case "date":
			variable.Kind = filecab.VariableDate
			// Missing dateParams means day precision.
			variable.Date = filecab.DateParams{HasDay: true}
			if v.DateParams != nil {
				variable.Date = filecab.DateParams{HasDay: v.DateParams.HasDay}
			}
		default:
			return nil, fmt.Errorf("variable %s has unknown type %q", v.Name, v.Type)
		}
		rule.Variables = append(rule.Variables, variable)
	}

	for _, c := range entry.Destination {
		switch c.Type {
		case "text":
			rule.Components = append(rule.Components, filecab.Component{Kind: filecab.ComponentText, Value: c.Value})
		case "variable":
			rule.Components = append(rule.Components, filecab.Component{Kind: filecab.ComponentVariable, Value: c.Value})
		default:
			return nil, fmt.Errorf("destination component has unknown type %q", c.Type)
		}
	}

	return rule, nil
}

func encodeRule(rule *filecab.Rule) *ruleEntry {
	entry := &ruleEntry{
		ID:          rule.ID,
		Name:        rule.Name,
		Variables:   []variableEntry{},
		Destination: []componentEntry{},
	}
	for _, v := range rule.Variables {
		ve := variableEntry{Name: v.Name, Type: string(v.Kind)}
		if v.Kind == filecab.VariableDate {
			ve.DateParams = &dateParams{HasDay: v.Date.HasDay}
		}
		entry.Variables = append(entry.Variables, ve)
	}
	for _, c := range rule.Components {
		entry.Destination = append(entry.Destination, componentEntry{Type: string(c.Kind), Value: c.Value})
	}
	return entry
}

func sortRules(list []*filecab.Rule) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
}
