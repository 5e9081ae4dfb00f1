// Package state holds the scheduler's daily gating state. Everything here
// lives in memory only: a process restart re-arms the gates, which is a
// known limitation of the design (a restart between the trigger and
// midnight can double-execute a day).
package state

import (
	"sync"
	"time"

	"emabot/internal/report"
)

// dateKey collapses an instant to its calendar day in its own location.
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Store guards the once-per-day gates and the day's outcome history.
type Store struct {
	mu sync.RWMutex

	lastExecution string
	lastSummary   string
	lastReport    string
	history       []report.Outcome
}

func NewStore() *Store {
	return &Store{}
}

// ExecutedOn reports whether a completed cycle (buy or hold) already ran
// on the given calendar day.
func (s *Store) ExecutedOn(day time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastExecution == dateKey(day)
}

func (s *Store) MarkExecuted(day time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastExecution = dateKey(day)
}

// SummarySentOn reports whether the daily summary already went out on the
// given day.
func (s *Store) SummarySentOn(day time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSummary == dateKey(day)
}

func (s *Store) MarkSummarySent(day time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSummary = dateKey(day)
}

// ReportedOn reports whether a per-cycle notification already went out on
// the given day.
func (s *Store) ReportedOn(day time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport == dateKey(day)
}

func (s *Store) MarkReported(day time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReport = dateKey(day)
}

// Append records a completed outcome for the daily summary.
func (s *Store) Append(outcome report.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, outcome)
}

// History returns a copy of the day's outcomes so far.
func (s *Store) History() []report.Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]report.Outcome, len(s.history))
	copy(out, s.history)
	return out
}

// DrainHistory returns the accumulated outcomes and clears them. Called at
// the daily summary cutover so no entry survives into the next day.
func (s *Store) DrainHistory() []report.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.history
	s.history = nil
	return out
}
