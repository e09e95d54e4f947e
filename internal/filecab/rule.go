package filecab

import "fmt"

// VariableKind distinguishes the two variable types a rule may declare.
// The set is closed: formatting and binding decisions switch exhaustively
// over it.
type VariableKind string

const (
	VariableString VariableKind = "string"
	VariableDate   VariableKind = "date"
)

// DateParams carries the parameters of a date variable. HasDay selects
// day precision (2006-01-02) over month precision (2006-01).
type DateParams struct {
	HasDay bool
}

// Variable is a typed placeholder within a rule, bound to a concrete value at
// filing time. Variables have no lifecycle of their own; they are created,
// renamed and deleted only through rule edits.
type Variable struct {
	Name string
	Kind VariableKind
	Date DateParams // meaningful only when Kind == VariableDate
}

// ComponentKind distinguishes literal text from variable references in a
// rule's destination template.
type ComponentKind string

const (
	ComponentText     ComponentKind = "text"
	ComponentVariable ComponentKind = "variable"
)

// Component is one ordered segment of a rule's destination template: either
// a literal, or a reference to a variable by name.
type Component struct {
	Kind  ComponentKind
	Value string
}

// Rule is a named, user-authored template describing how to rename and
// relocate a filed document under its archive root.
type Rule struct {
	ID         string
	Name       string
	Variables  []Variable
	Components []Component
}

// NewRule returns a rule with the default shape: a single day-precision Date
// variable, referenced by the template ahead of a literal title placeholder.
func NewRule(id, name string) *Rule {
	return &Rule{
		ID:   id,
		Name: name,
		Variables: []Variable{
			{Name: "Date", Kind: VariableDate, Date: DateParams{HasDay: true}},
		},
		Components: []Component{
			{Kind: ComponentVariable, Value: "Date"},
			{Kind: ComponentText, Value: " " + name},
		},
	}
}

// Variable returns the named variable, if declared.
func (r *Rule) Variable(name string) (Variable, bool) {
	for _, v := range r.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// Validate reports whether the rule is well formed for editing purposes.
// Variable names must be unique (case-sensitively) within the rule. A
// violation invalidates the rule in the editor; it does not corrupt the
// stored variable or component lists.
func (r *Rule) Validate() error {
	seen := make(map[string]bool, len(r.Variables))
	for _, v := range r.Variables {
		if seen[v.Name] {
			return &ValidationError{
				Subject: "rule " + r.Name,
				Reason:  fmt.Sprintf("duplicate variable name %q", v.Name),
			}
		}
		seen[v.Name] = true
	}
	return nil
}

// DanglingReferences returns the names of variable references in the template
// that match no declared variable. Dangling references evaluate to the empty
// string; they are a display concern, not an evaluation error.
func (r *Rule) DanglingReferences() []string {
	var out []string
	for _, c := range r.Components {
		if c.Kind != ComponentVariable {
			continue
		}
		if _, ok := r.Variable(c.Value); !ok {
			out = append(out, c.Value)
		}
	}
	return out
}
