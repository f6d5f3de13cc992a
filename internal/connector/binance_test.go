package connector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestBinance(t *testing.T, handler http.HandlerFunc) *Binance {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	b, err := NewBinance("binance_spot", Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewBinance failed: %v", err)
	}
	return b
}

func TestBinanceFetchTicker(t *testing.T) {
	b := newTestBinance(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/24hr" {
			t.Errorf("path = %q, want /api/v3/ticker/24hr", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol = %q, want BTCUSDT (slash stripped)", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"symbol":             "BTCUSDT",
			"lastPrice":          "42000.50",
			"bidPrice":           "41999.90",
			"askPrice":           "42001.10",
			"highPrice":          "43000.00",
			"lowPrice":           "41000.00",
			"volume":             "1234.5",
			"priceChangePercent": "2.5",
			"weightedAvgPrice":   "42100.00",
			"closeTime":          1700000000000,
		})
	})

	p, err := b.FetchTicker(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("FetchTicker failed: %v", err)
	}

	if p["last"] != "42000.50" {
		t.Errorf("last = %v, want %q", p["last"], "42000.50")
	}
	if p["baseVolume"] != "1234.5" {
		t.Errorf("baseVolume = %v, want %q", p["baseVolume"], "1234.5")
	}
	if p["symbol"] != "BTC/USDT" {
		t.Errorf("symbol = %v, want canonical BTC/USDT", p["symbol"])
	}
}

func TestBinanceFetchTickerOmitsEmptyFields(t *testing.T) {
	b := newTestBinance(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"symbol":    "BTCUSDT",
			"lastPrice": "100",
			"closeTime": 1700000000000,
		})
	})

	p, err := b.FetchTicker(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("FetchTicker failed: %v", err)
	}
	if _, present := p["bid"]; present {
		t.Error("bid present for empty vendor field, want absent")
	}
}

func TestBinanceFetchOrderBook(t *testing.T) {
	b := newTestBinance(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/depth" {
			t.Errorf("path = %q, want /api/v3/depth", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "10" {
			t.Errorf("limit = %q, want 10", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"lastUpdateId": 999,
			"bids":         [][]string{{"100.5", "1.0"}},
			"asks":         [][]string{{"100.6", "2.0"}},
		})
	})

	p, err := b.FetchOrderBook(context.Background(), "BTC/USDT", 10)
	if err != nil {
		t.Fatalf("FetchOrderBook failed: %v", err)
	}

	if nonce, ok := p["nonce"].(int64); !ok || nonce != 999 {
		t.Errorf("nonce = %v, want 999", p["nonce"])
	}
	bids, ok := p["bids"].([]any)
	if !ok || len(bids) != 1 {
		t.Fatalf("bids = %v, want one level", p["bids"])
	}
}

func TestBinanceFetchTradesSideMapping(t *testing.T) {
	b := newTestBinance(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "price": "100", "qty": "0.5", "time": 1700000000000, "isBuyerMaker": true},
			{"id": 2, "price": "101", "qty": "0.5", "time": 1700000000001, "isBuyerMaker": false},
		})
	})

	trades, err := b.FetchTrades(context.Background(), "BTC/USDT", 2)
	if err != nil {
		t.Fatalf("FetchTrades failed: %v", err)
	}

	// Buyer-maker means the aggressor sold.
	if trades[0]["side"] != "sell" {
		t.Errorf("trades[0] side = %v, want sell", trades[0]["side"])
	}
	if trades[1]["side"] != "buy" {
		t.Errorf("trades[1] side = %v, want buy", trades[1]["side"])
	}
	if trades[0]["id"] != "1" {
		t.Errorf("trades[0] id = %v, want %q", trades[0]["id"], "1")
	}
}

func TestBinanceFetchMarkets(t *testing.T) {
	b := newTestBinance(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"symbols": []map[string]any{
				{"symbol": "BTCUSDT", "status": "TRADING", "baseAsset": "BTC", "quoteAsset": "USDT"},
				{"symbol": "DELISTED", "status": "BREAK", "baseAsset": "OLD", "quoteAsset": "USDT"},
			},
		})
	})

	markets, err := b.FetchMarkets(context.Background())
	if err != nil {
		t.Fatalf("FetchMarkets failed: %v", err)
	}
	if len(markets) != 2 {
		t.Fatalf("got %d markets, want 2", len(markets))
	}
	if markets[0]["name"] != "BTC/USDT" {
		t.Errorf("name = %v, want BTC/USDT", markets[0]["name"])
	}
	if markets[0]["active"] != true || markets[1]["active"] != false {
		t.Errorf("active flags = %v %v, want true false", markets[0]["active"], markets[1]["active"])
	}
}

func TestBinanceHTTPErrorWrapped(t *testing.T) {
	b := newTestBinance(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad symbol", http.StatusBadRequest)
	})

	_, err := b.FetchTicker(context.Background(), "NOPE/USDT")
	if err == nil {
		t.Fatal("FetchTicker = nil error, want HTTP error")
	}

	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("error %v does not unwrap to *connector.Error", err)
	}
	if ce.Source != "binance_spot" || ce.Op != "ticker" {
		t.Errorf("Error context = %s/%s, want binance_spot/ticker", ce.Source, ce.Op)
	}

	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("error %v does not unwrap to *HTTPError", err)
	}
	if he.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", he.StatusCode)
	}
	if he.IsRetryable() {
		t.Error("IsRetryable() = true for 400, want false")
	}
}

func TestHTTPErrorIsRetryable(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{400, false},
		{404, false},
	}
	for _, tt := range tests {
		e := &HTTPError{StatusCode: tt.code}
		if got := e.IsRetryable(); got != tt.want {
			t.Errorf("IsRetryable(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
