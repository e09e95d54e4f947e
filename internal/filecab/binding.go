package filecab

import "time"

// FormatDate renders a bound date value. Day precision uses 2006-01-02,
// month precision 2006-01.
func FormatDate(t time.Time, hasDay bool) string {
	if hasDay {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01")
}

// DefaultBindings produces the initial value map for filing rec with rule.
// String variables default to empty; date variables prefer a date derived
// from the record (filename, then creation time) and fall back to today.
// Binding is a pure read: neither the rule nor the record is modified.
func DefaultBindings(rule *Rule, rec FileRecord, clock Clock) map[string]string {
	bindings := make(map[string]string, len(rule.Variables))
	for _, v := range rule.Variables {
		switch v.Kind {
		case VariableString:
			bindings[v.Name] = ""
		case VariableDate:
			t := rec.Date
			if t.IsZero() {
				t = clock.Now()
			}
			bindings[v.Name] = FormatDate(t, v.Date.HasDay)
		}
	}
	return bindings
}
