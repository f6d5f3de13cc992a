package connector

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Sim is a deterministic in-process connector for development and tests. It
// needs no network and never fails.
type Sim struct {
	mu  sync.Mutex
	tid int64

	// now is swappable for tests.
	now func() time.Time
}

// NewSim creates a simulated connector.
func NewSim() *Sim {
	return &Sim{now: time.Now}
}

func (s *Sim) ID() string { return "sim" }

func (s *Sim) nextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tid++
	return s.tid
}

func (s *Sim) FetchTicker(ctx context.Context, symbol string) (Payload, error) {
	tid := s.nextID()
	base := 35000.0 + float64(tid%50)
	return Payload{
		"symbol":     symbol,
		"last":       base,
		"bid":        base - 0.5,
		"ask":        base + 0.5,
		"high":       base + 100,
		"low":        base - 100,
		"baseVolume": 1000.0 + float64(tid),
		"timestamp":  s.now().UnixMilli(),
	}, nil
}

func (s *Sim) FetchOrderBook(ctx context.Context, symbol string, depth int) (Payload, error) {
	tid := s.nextID()
	bids := make([]any, 0, depth)
	asks := make([]any, 0, depth)
	for i := 0; i < depth; i++ {
		bids = append(bids, []any{35000.0 - float64(i), 0.1 + float64(i)*0.01})
		asks = append(asks, []any{35000.5 + float64(i), 0.1 + float64(i)*0.01})
	}
	return Payload{
		"symbol":    symbol,
		"nonce":     tid,
		"bids":      bids,
		"asks":      asks,
		"timestamp": s.now().UnixMilli(),
	}, nil
}

func (s *Sim) FetchTrades(ctx context.Context, symbol string, limit int) ([]Payload, error) {
	now := s.now().UnixMilli()
	out := make([]Payload, 0, limit)
	for i := 0; i < limit; i++ {
		tid := s.nextID()
		side := "sell"
		if tid%2 == 0 {
			side = "buy"
		}
		out = append(out, Payload{
			"id":        strconv.FormatInt(tid, 10),
			"symbol":    symbol,
			"price":     35000.0 + float64(tid%50),
			"amount":    0.01 + float64(i)*0.001,
			"side":      side,
			"timestamp": now,
		})
	}
	return out, nil
}

func (s *Sim) FetchMarkets(ctx context.Context) ([]Payload, error) {
	return []Payload{
		{"name": "BTC/USDT", "base": "BTC", "quote": "USDT", "type": "spot", "active": true},
		{"name": "ETH/USDT", "base": "ETH", "quote": "USDT", "type": "spot", "active": true},
	}, nil
}

var _ Connector = (*Sim)(nil)
