package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nexusfeed/nexusfeed/internal/model"
)

// JSONSink maintains a single JSON array per source in {source}_ticker.json.
// Each append reads the current array, appends the new object, and rewrites
// the whole file. The array accumulates for the lifetime of the process run.
type JSONSink struct {
	dir   string
	locks *fileLocks
}

// NewJSONSink creates a JSON sink writing under dir.
func NewJSONSink(dir string) (*JSONSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sink dir: %w", err)
	}
	return &JSONSink{dir: dir, locks: newFileLocks()}, nil
}

func (s *JSONSink) path(source string) string {
	return filepath.Join(s.dir, source+"_ticker.json")
}

// Reset truncates the source's destination to an empty array.
func (s *JSONSink) Reset(source string) error {
	path := s.path(source)
	lock := s.locks.get(path)
	lock.Lock()
	defer lock.Unlock()

	if err := os.WriteFile(path, []byte("[]\n"), 0o644); err != nil {
		return fmt.Errorf("reset %s: %w", path, err)
	}
	return nil
}

// AppendTicker rewrites the array with the new record appended.
func (s *JSONSink) AppendTicker(rec model.Ticker) error {
	path := s.path(rec.Source)
	lock := s.locks.get(path)
	lock.Lock()
	defer lock.Unlock()

	rows, err := s.readLocked(path)
	if err != nil {
		return err
	}

	rows = append(rows, newTickerRow(rec))

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// readLocked loads the current array. A missing or empty file reads as an
// empty array. Caller holds the file lock.
func (s *JSONSink) readLocked(path string) ([]tickerRow, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) || (err == nil && len(data) == 0) {
		return []tickerRow{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var rows []tickerRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

var _ Sink = (*JSONSink)(nil)
