package filecab

import "time"

// Filing records one applied move: which rule ran and where the document
// went.
type Filing struct {
	ID          string
	RuleName    string
	Source      string
	Destination string
	FiledAt     time.Time
}

// History stores the filing audit log.
type History interface {
	// Record appends a filing to the log.
	Record(f *Filing) error
	// List returns the most recent filings, newest first.
	List(limit int) ([]*Filing, error)
	Close() error
}

// NopHistory discards all filings. Used when history is disabled and in tests.
type NopHistory struct{}

func NewNopHistory() *NopHistory { return &NopHistory{} }

func (*NopHistory) Record(*Filing) error        { return nil }
func (*NopHistory) List(int) ([]*Filing, error) { return nil, nil }
func (*NopHistory) Close() error                { return nil }
