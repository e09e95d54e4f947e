package dates

import "testing"

func TestTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"leading iso date stripped", "2018-12-23 Document title", "Document title"},
		{"dash separator stripped", "2018-12-23 - Invoice", "Invoice"},
		{"underscore separator stripped", "20210519_Bank statement", "Bank statement"},
		{"date in the middle untouched", "Invoice 2018-12-23", "Invoice 2018-12-23"},
		{"date only falls back to input", "2018-12-23", "2018-12-23"},
		{"date and separators only falls back", "2018-12-23 - ", "2018-12-23 -"},
		{"no date untouched", "Quarterly report", "Quarterly report"},
		{"surrounding whitespace trimmed", "  Quarterly report  ", "Quarterly report"},
		{"month name form stripped", "19 May 2021 receipt", "receipt"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Title(tt.in); got != tt.want {
				t.Errorf("Title(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
