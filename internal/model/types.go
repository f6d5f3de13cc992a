package model

import (
	"time"
)

// Side is the taker side of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// -----------------------------------------------------------------------------
// Canonical Records
// -----------------------------------------------------------------------------

// Ticker is a normalized price snapshot for one instrument on one source.
// All numeric fields are optional: nil means the vendor did not report the
// value, never a fabricated zero.
type Ticker struct {
	Source string `json:"source"` // Source id (e.g., "binance_spot")
	Symbol string `json:"symbol"` // Instrument symbol (e.g., "BTC/USDT")

	Last   *float64 `json:"last,omitempty"`   // Last traded price
	Bid    *float64 `json:"bid,omitempty"`    // Best bid
	Ask    *float64 `json:"ask,omitempty"`    // Best ask
	High   *float64 `json:"high,omitempty"`   // 24h high
	Low    *float64 `json:"low,omitempty"`    // 24h low
	Volume *float64 `json:"volume,omitempty"` // 24h base volume
	Change *float64 `json:"change,omitempty"` // 24h percentage change
	VWAP   *float64 `json:"vwap,omitempty"`   // 24h volume-weighted average price

	CapturedAt time.Time `json:"captured_at"` // Capture time, UTC, millisecond precision
}

// Trade is a normalized executed trade.
type Trade struct {
	Source    string    `json:"source"`
	Symbol    string    `json:"symbol"`
	TradeID   string    `json:"trade_id"` // Source-assigned id, not globally unique
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
	Side      Side      `json:"side"`
	Timestamp time.Time `json:"timestamp"` // UTC, millisecond precision
}

// PriceLevel is a single (price, size) level in an order book.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBook is a full order book snapshot. There are no incremental-update
// semantics: each poll replaces the previous snapshot entirely.
type OrderBook struct {
	Source    string       `json:"source"`
	Symbol    string       `json:"symbol"`
	Sequence  *int64       `json:"sequence,omitempty"` // Monotonic per source when available
	Bids      []PriceLevel `json:"bids"`               // Descending by price
	Asks      []PriceLevel `json:"asks"`               // Ascending by price
	Timestamp time.Time    `json:"timestamp"`
}

// Instrument is one entry from a source's symbol directory.
type Instrument struct {
	Name   string `json:"name"`  // Symbol name (e.g., "BTC/USDT")
	Base   string `json:"base"`  // Base currency
	Quote  string `json:"quote"` // Quote currency
	Type   string `json:"type"`  // Instrument type: spot, future, swap, option, ...
	Active bool   `json:"active"`
}

// -----------------------------------------------------------------------------
// Scheduling
// -----------------------------------------------------------------------------

// PollTarget is the unit of scheduling: one (source, symbol) pair with its
// own refresh interval. At most one fetch is in flight per target at any
// instant.
type PollTarget struct {
	Source   string
	Symbol   string
	Interval time.Duration
}

// Key returns the target's registry key.
func (t PollTarget) Key() string {
	return t.Source + ":" + t.Symbol
}

// Float64 returns a pointer to v. Helper for building optional fields.
func Float64(v float64) *float64 { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
