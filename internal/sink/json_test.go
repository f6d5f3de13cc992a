package sink

import (
	"encoding/json"
	"os"
	"testing"
	"time"
)

func readJSONRows(t *testing.T, path string) []map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var rows []map[string]string
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return rows
}

func TestJSONSinkResetWritesEmptyArray(t *testing.T) {
	s, err := NewJSONSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONSink failed: %v", err)
	}

	if err := s.Reset("binance_spot"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	rows := readJSONRows(t, s.path("binance_spot"))
	if len(rows) != 0 {
		t.Errorf("got %d rows after reset, want 0", len(rows))
	}
}

func TestJSONSinkResetIdempotent(t *testing.T) {
	s, err := NewJSONSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONSink failed: %v", err)
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

func TestJSONSinkRoundTrip(t *testing.T) {
	s, err := NewJSONSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONSink failed: %v", err)
	}

	if err := s.Reset("binance_spot"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	at := time.Date(2024, 6, 1, 12, 0, 0, 500*int(time.Millisecond), time.UTC)
	rec := testTicker("binance_spot", "BTC/USDT", 42000.5, at)
	if err := s.AppendTicker(rec); err != nil {
		t.Fatalf("AppendTicker failed: %v", err)
	}

	rows := readJSONRows(t, s.path("binance_spot"))
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	last := rows[len(rows)-1]
	if last["timestamp"] != "2024-06-01T12:00:00.500Z" {
		t.Errorf("timestamp = %q, want %q", last["timestamp"], "2024-06-01T12:00:00.500Z")
	}
	if last["exchange"] != "binance_spot" {
		t.Errorf("exchange = %q, want %q", last["exchange"], "binance_spot")
	}
	if last["symbol"] != "BTC/USDT" {
		t.Errorf("symbol = %q, want %q", last["symbol"], "BTC/USDT")
	}
	if last["price"] != "42000.5" {
		t.Errorf("price = %q, want %q (string, not number)", last["price"], "42000.5")
	}
}

func TestJSONSinkAccumulatesAcrossAppends(t *testing.T) {
	s, err := NewJSONSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONSink failed: %v", err)
	}

	if err := s.Reset("okx"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	now := time.Now().UTC()
	for i := 1; i <= 3; i++ {
		rec := testTicker("okx", "ETH/USDT", float64(i*100), now)
		if err := s.AppendTicker(rec); err != nil {
			t.Fatalf("AppendTicker %d failed: %v", i, err)
		}
	}

	rows := readJSONRows(t, s.path("okx"))
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[2]["price"] != "300" {
		t.Errorf("last price = %q, want %q", rows[2]["price"], "300")
	}
}

func TestJSONSinkAppendWithoutReset(t *testing.T) {
	s, err := NewJSONSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONSink failed: %v", err)
	}

	rec := testTicker("bybit", "BTC/USDT", 7.5, time.Now().UTC())
	if err := s.AppendTicker(rec); err != nil {
		t.Fatalf("AppendTicker failed: %v", err)
	}

	rows := readJSONRows(t, s.path("bybit"))
	if len(rows) != 1 {
		t.Errorf("got %d rows, want 1", len(rows))
	}
}
