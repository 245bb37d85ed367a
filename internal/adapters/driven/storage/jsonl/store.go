package jsonl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
	"github.com/custodia-labs/anntune/internal/logger"
)

// FileName is the results file created inside the results directory.
const FileName = "results.jsonl"

// Ensure ResultsStore implements the interface.
var _ driven.ResultsStore = (*ResultsStore)(nil)

// ResultsStore appends outcomes to a JSON-lines file.
type ResultsStore struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewResultsStore opens (or creates) dir/results.jsonl for appending.
// A torn final line left by a crash is truncated before the first append.
func NewResultsStore(dir string) (*ResultsStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create results directory: %w", err)
	}
	path := filepath.Join(dir, FileName)

	if err := repairTail(path); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open results file: %w", err)
	}

	return &ResultsStore{path: path, file: file}, nil
}

// Append writes one line and fsyncs the file.
func (s *ResultsStore) Append(_ context.Context, outcome domain.TrialOutcome) error {
	line, err := encode(outcome)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return errors.New("results store is closed")
	}
	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("write results file: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync results file: %w", err)
	}
	return nil
}

// All re-reads the file, so it also sees records appended by another process.
func (s *ResultsStore) All(_ context.Context) ([]domain.TrialOutcome, error) {
	return ReadFile(s.path)
}

// Path returns the results file path.
func (s *ResultsStore) Path() string {
	return s.path
}

// Close closes the file.
func (s *ResultsStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// ReadFile decodes a results file. A missing file is an empty table.
// An undecodable last line without a trailing newline is a torn write and is
// skipped; any other undecodable line is an error.
func ReadFile(path string) ([]domain.TrialOutcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.TrialOutcome{}, nil
		}
		return nil, fmt.Errorf("read results file: %w", err)
	}

	lines := bytes.Split(data, []byte("\n"))
	outcomes := make([]domain.TrialOutcome, 0, len(lines))
	for i, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		o, err := decode(line)
		if err != nil {
			if i == len(lines)-1 {
				logger.Warn("Ignoring torn final record in %s", path)
				break
			}
			return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
		}
		o.Sequence = len(outcomes) + 1
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

// repairTail makes sure the file ends on a record boundary.
func repairTail(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read results file: %w", err)
	}
	if len(data) == 0 || data[len(data)-1] == '\n' {
		return nil
	}

	cut := bytes.LastIndexByte(data, '\n') + 1
	if _, err := decode(data[cut:]); err == nil {
		// Complete record missing only its newline.
		return appendNewline(path)
	}

	logger.Warn("Truncating torn final record in %s (%d bytes)", path, len(data)-cut)
	if err := os.Truncate(path, int64(cut)); err != nil {
		return fmt.Errorf("truncate torn record: %w", err)
	}
	return nil
}

func appendNewline(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write([]byte("\n")); err != nil {
		return fmt.Errorf("terminate final record: %w", err)
	}
	return f.Sync()
}
