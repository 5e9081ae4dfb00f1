package report

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// journalEntry is one NDJSON line: the outcome plus the run it belongs to.
type journalEntry struct {
	RunID string `json:"run_id"`
	Outcome
}

// Journal is an append-only NDJSON log of every outcome the scheduler
// produces, including the retryable failures that never reach the daily
// summary. It is an audit trail only; nothing reads it back.
type Journal struct {
	runID  string
	file   *os.File
	writer *bufio.Writer
	log    zerolog.Logger
	mu     sync.Mutex
}

func NewJournal(path, runID string, log zerolog.Logger) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &Journal{
		runID:  runID,
		file:   file,
		writer: bufio.NewWriter(file),
		log:    log.With().Str("component", "journal").Logger(),
	}, nil
}

func (j *Journal) RunID() string {
	return j.runID
}

// Append writes one outcome. Write failures are logged, never propagated:
// the journal must not be able to break a trading cycle.
func (j *Journal) Append(outcome Outcome) {
	j.mu.Lock()
	defer j.mu.Unlock()

	payload, err := json.Marshal(journalEntry{RunID: j.runID, Outcome: outcome})
	if err != nil {
		j.log.Error().Err(err).Msg("marshal outcome")
		return
	}
	if _, err := j.writer.Write(append(payload, '\n')); err != nil {
		j.log.Error().Err(err).Msg("write outcome")
		return
	}
	if err := j.writer.Flush(); err != nil {
		j.log.Error().Err(err).Msg("flush journal")
	}
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writer.Flush(); err != nil {
		_ = j.file.Close()
		return err
	}
	return j.file.Close()
}
