package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nexusfeed/nexusfeed/internal/model"
)

func testTicker(source, symbol string, price float64, at time.Time) model.Ticker {
	return model.Ticker{
		Source:     source,
		Symbol:     symbol,
		Last:       model.Float64(price),
		CapturedAt: at,
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestCSVSinkResetWritesHeaderOnly(t *testing.T) {
	s, err := NewCSVSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewCSVSink failed: %v", err)
	}

	if err := s.Reset("binance_spot"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	rows := readCSV(t, s.path("binance_spot"))
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1 header row", len(rows))
	}
	want := "timestamp,exchange,symbol,price"
	if got := strings.Join(rows[0], ","); got != want {
		t.Errorf("header = %q, want %q", got, want)
	}
}

func TestCSVSinkResetIdempotent(t *testing.T) {
	s, err := NewCSVSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewCSVSink failed: %v", err)
	}

	if err := s.Reset("okx"); err != nil {
		t.Fatalf("first Reset failed: %v", err)
	}
	first, err := os.ReadFile(s.path("okx"))
	if err != nil {
		t.Fatalf("read after first reset: %v", err)
	}

	if err := s.Reset("okx"); err != nil {
		t.Fatalf("second Reset failed: %v", err)
	}
	second, err := os.ReadFile(s.path("okx"))
	if err != nil {
		t.Fatalf("read after second reset: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("reset not idempotent: %q vs %q", first, second)
	}
}

func TestCSVSinkAppendAfterReset(t *testing.T) {
	s, err := NewCSVSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewCSVSink failed: %v", err)
	}

	if err := s.Reset("binance_spot"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	// Two symbols, three ticks each.
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		for _, sym := range []string{"BTC/USDT", "ETH/USDT"} {
			rec := testTicker("binance_spot", sym, 100+float64(i), at.Add(time.Duration(i)*5*time.Second))
			if err := s.AppendTicker(rec); err != nil {
				t.Fatalf("AppendTicker failed: %v", err)
			}
		}
	}

	rows := readCSV(t, s.path("binance_spot"))
	if len(rows) != 7 {
		t.Fatalf("got %d rows, want 1 header + 6 data rows", len(rows))
	}

	first := rows[1]
	if first[0] != "2024-06-01T12:00:00.000Z" {
		t.Errorf("timestamp = %q, want %q", first[0], "2024-06-01T12:00:00.000Z")
	}
	if first[1] != "binance_spot" {
		t.Errorf("exchange = %q, want %q", first[1], "binance_spot")
	}
	if first[2] != "BTC/USDT" {
		t.Errorf("symbol = %q, want %q (slash preserved)", first[2], "BTC/USDT")
	}
	if first[3] != "100" {
		t.Errorf("price = %q, want %q", first[3], "100")
	}
}

func TestCSVSinkAppendWithoutResetWritesHeader(t *testing.T) {
	s, err := NewCSVSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewCSVSink failed: %v", err)
	}

	rec := testTicker("bybit", "BTC/USDT", 50.5, time.Now().UTC())
	if err := s.AppendTicker(rec); err != nil {
		t.Fatalf("AppendTicker failed: %v", err)
	}

	rows := readCSV(t, s.path("bybit"))
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1 data row", len(rows))
	}
	if rows[0][0] != "timestamp" {
		t.Errorf("first row = %v, want header", rows[0])
	}
}

func TestCSVSinkNilPriceRendersEmpty(t *testing.T) {
	s, err := NewCSVSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewCSVSink failed: %v", err)
	}

	rec := model.Ticker{
		Source:     "okx",
		Symbol:     "BTC/USDT",
		CapturedAt: time.Now().UTC(),
	}
	if err := s.AppendTicker(rec); err != nil {
		t.Fatalf("AppendTicker failed: %v", err)
	}

	rows := readCSV(t, s.path("okx"))
	if rows[1][3] != "" {
		t.Errorf("price = %q, want empty for nil last", rows[1][3])
	}
}

func TestCSVSinkSeparateFilesPerSource(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVSink(dir)
	if err != nil {
		t.Fatalf("NewCSVSink failed: %v", err)
	}

	now := time.Now().UTC()
	if err := s.AppendTicker(testTicker("binance_spot", "BTC/USDT", 1, now)); err != nil {
		t.Fatalf("AppendTicker failed: %v", err)
	}
	if err := s.AppendTicker(testTicker("okx", "BTC/USDT", 2, now)); err != nil {
		t.Fatalf("AppendTicker failed: %v", err)
	}

	for _, name := range []string{"binance_spot_ticker.csv", "okx_ticker.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected file %s: %v", name, err)
		}
	}
}
