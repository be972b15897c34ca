// Package feedback records correction events and derives accuracy statistics
// from them. The ledger is append-only: records are never mutated or deleted.
package feedback

import (
	"fmt"
	"time"
)

// Source identifies who produced a correction.
type Source string

const (
	SourceUser   Source = "user"
	SourceAI     Source = "ai"
	SourceManual Source = "manual"
)

// Valid reports whether s is one of the defined sources.
func (s Source) Valid() bool {
	switch s {
	case SourceUser, SourceAI, SourceManual:
		return true
	default:
		return false
	}
}

// ErrInvalidSource indicates a correction source outside the defined enum.
type ErrInvalidSource struct {
	Source Source
}

func (e *ErrInvalidSource) Error() string {
	return fmt.Sprintf("invalid feedback source: %q", string(e.Source))
}

// Record is a single correction event.
type Record struct {
	Predicted string
	Correct   string
	Source    Source
	Timestamp time.Time
}

// Stats summarizes classifier performance derived from the ledger.
type Stats struct {
	TotalFeedback      int
	CorrectPredictions int
	Accuracy           float64
	UniqueCorrections  int
}

// Ledger is an append-only list of correction records.
//
// Ledger is not safe for concurrent use; the owning classifier serializes
// all access behind a single lock.
type Ledger struct {
	records []Record
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append adds a record. If the record carries no timestamp, now is stamped.
func (l *Ledger) Append(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	l.records = append(l.records, rec)
}

// Len returns the number of records.
func (l *Ledger) Len() int { return len(l.records) }

// Records returns a copy of all records in append order.
func (l *Ledger) Records() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Stats derives accuracy statistics from the ledger.
// An empty ledger yields the zero Stats.
func (l *Ledger) Stats() Stats {
	if len(l.records) == 0 {
		return Stats{}
	}

	correct := 0
	labels := make(map[string]struct{}, 8)
	for _, rec := range l.records {
		if rec.Predicted == rec.Correct {
			correct++
		}
		labels[rec.Correct] = struct{}{}
	}

	total := len(l.records)
	return Stats{
		TotalFeedback:      total,
		CorrectPredictions: correct,
		Accuracy:           float64(correct) / float64(total),
		UniqueCorrections:  len(labels),
	}
}
