package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nexusfeed/nexusfeed/internal/model"
)

// csvHeader is the literal header row, in this exact field order.
var csvHeader = []string{"timestamp", "exchange", "symbol", "price"}

// CSVSink appends one CSV row per record to {source}_ticker.csv.
type CSVSink struct {
	dir   string
	locks *fileLocks
}

// NewCSVSink creates a CSV sink writing under dir.
func NewCSVSink(dir string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sink dir: %w", err)
	}
	return &CSVSink{dir: dir, locks: newFileLocks()}, nil
}

func (s *CSVSink) path(source string) string {
	return filepath.Join(s.dir, source+"_ticker.csv")
}

// Reset truncates the source's destination to a header-only file. Calling it
// again before any append leaves the same state.
func (s *CSVSink) Reset(source string) error {
	path := s.path(source)
	lock := s.locks.get(path)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("reset %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write header %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush header %s: %w", path, err)
	}
	return nil
}

// AppendTicker writes one data row, writing the header first if the file is
// absent or empty.
func (s *CSVSink) AppendTicker(rec model.Ticker) error {
	path := s.path(rec.Source)
	lock := s.locks.get(path)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if stat.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("write header %s: %w", path, err)
		}
	}

	row := newTickerRow(rec)
	if err := w.Write([]string{row.Timestamp, row.Exchange, row.Symbol, row.Price}); err != nil {
		return fmt.Errorf("write row %s: %w", path, err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

var _ Sink = (*CSVSink)(nil)
