package connector

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const (
	bybitBaseURL    = "https://api.bybit.com"
	bybitSandboxURL = "https://api-testnet.bybit.com"
)

// Bybit talks to the Bybit v5 market endpoints (spot category).
type Bybit struct {
	client *restClient
}

// NewBybit creates a Bybit connector.
func NewBybit(opts Options) (*Bybit, error) {
	baseURL := bybitBaseURL
	if opts.Sandbox {
		baseURL = bybitSandboxURL
	}
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}

	clientOpts := []clientOption{withLogger(opts.Logger)}
	switch {
	case opts.Credentials.APISecret != "":
		clientOpts = append(clientOpts, withSigner(bybitSigner(opts.Credentials)))
	case opts.Credentials.APIKey != "":
		clientOpts = append(clientOpts, withAPIKey("X-BAPI-API-KEY", opts.Credentials.APIKey))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, withHTTPClient(opts.HTTPClient))
	}

	return &Bybit{client: newRESTClient(baseURL, clientOpts...)}, nil
}

func (b *Bybit) ID() string { return "bybit" }

// bybitEnvelope wraps every v5 response.
type bybitEnvelope[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  T      `json:"result"`
}

func (e bybitEnvelope[T]) err() error {
	if e.RetCode != 0 {
		return fmt.Errorf("bybit retCode %d: %s", e.RetCode, e.RetMsg)
	}
	return nil
}

type bybitTicker struct {
	Symbol        string `json:"symbol"`
	LastPrice     string `json:"lastPrice"`
	Bid1Price     string `json:"bid1Price"`
	Ask1Price     string `json:"ask1Price"`
	HighPrice24h  string `json:"highPrice24h"`
	LowPrice24h   string `json:"lowPrice24h"`
	Volume24h     string `json:"volume24h"`
	Price24hPcnt  string `json:"price24hPcnt"`
	PrevPrice24h  string `json:"prevPrice24h"`
	Turnover24h   string `json:"turnover24h"`
	UsdIndexPrice string `json:"usdIndexPrice"`
}

func (b *Bybit) FetchTicker(ctx context.Context, symbol string) (Payload, error) {
	q := url.Values{
		"category": {"spot"},
		"symbol":   {nativeSymbol(symbol)},
	}

	var resp bybitEnvelope[struct {
		List []bybitTicker `json:"list"`
	}]
	if err := b.client.get(ctx, "/v5/market/tickers", q, &resp); err != nil {
		return nil, wrapErr("bybit", "ticker", symbol, err)
	}
	if err := resp.err(); err != nil {
		return nil, wrapErr("bybit", "ticker", symbol, err)
	}
	if len(resp.Result.List) == 0 {
		return nil, wrapErr("bybit", "ticker", symbol, fmt.Errorf("empty ticker list"))
	}

	t := resp.Result.List[0]
	p := Payload{"symbol": symbol}
	putNum(p, "last", t.LastPrice)
	putNum(p, "bid", t.Bid1Price)
	putNum(p, "ask", t.Ask1Price)
	putNum(p, "high", t.HighPrice24h)
	putNum(p, "low", t.LowPrice24h)
	putNum(p, "baseVolume", t.Volume24h)
	if t.Price24hPcnt != "" {
		// Bybit reports the 24h change as a ratio, not a percentage.
		if ratio, err := strconv.ParseFloat(t.Price24hPcnt, 64); err == nil {
			p["percentage"] = ratio * 100
		}
	}
	return p, nil
}

type bybitOrderBook struct {
	Symbol string     `json:"s"`
	Bids   [][]string `json:"b"`
	Asks   [][]string `json:"a"`
	TS     int64      `json:"ts"`
	Update int64      `json:"u"`
}

func (b *Bybit) FetchOrderBook(ctx context.Context, symbol string, depth int) (Payload, error) {
	q := url.Values{
		"category": {"spot"},
		"symbol":   {nativeSymbol(symbol)},
		"limit":    {strconv.Itoa(depth)},
	}

	var resp bybitEnvelope[bybitOrderBook]
	if err := b.client.get(ctx, "/v5/market/orderbook", q, &resp); err != nil {
		return nil, wrapErr("bybit", "orderbook", symbol, err)
	}
	if err := resp.err(); err != nil {
		return nil, wrapErr("bybit", "orderbook", symbol, err)
	}

	return Payload{
		"symbol":    symbol,
		"sequence":  resp.Result.Update,
		"bids":      levelsToAny(resp.Result.Bids),
		"asks":      levelsToAny(resp.Result.Asks),
		"timestamp": resp.Result.TS,
	}, nil
}

type bybitTrade struct {
	ExecID string `json:"execId"`
	Price  string `json:"price"`
	Size   string `json:"size"`
	Side   string `json:"side"` // "Buy" or "Sell"
	Time   string `json:"time"` // epoch millis as string
}

func (b *Bybit) FetchTrades(ctx context.Context, symbol string, limit int) ([]Payload, error) {
	q := url.Values{
		"category": {"spot"},
		"symbol":   {nativeSymbol(symbol)},
		"limit":    {strconv.Itoa(limit)},
	}

	var resp bybitEnvelope[struct {
		List []bybitTrade `json:"list"`
	}]
	if err := b.client.get(ctx, "/v5/market/recent-trade", q, &resp); err != nil {
		return nil, wrapErr("bybit", "trades", symbol, err)
	}
	if err := resp.err(); err != nil {
		return nil, wrapErr("bybit", "trades", symbol, err)
	}

	out := make([]Payload, 0, len(resp.Result.List))
	for _, t := range resp.Result.List {
		p := Payload{
			"id":        t.ExecID,
			"symbol":    symbol,
			"side":      t.Side, // vendor casing preserved; normalizer folds it
			"timestamp": t.Time,
		}
		putNum(p, "price", t.Price)
		putNum(p, "amount", t.Size)
		out = append(out, p)
	}
	return out, nil
}

type bybitInstrument struct {
	Symbol    string `json:"symbol"`
	BaseCoin  string `json:"baseCoin"`
	QuoteCoin string `json:"quoteCoin"`
	Status    string `json:"status"`
}

func (b *Bybit) FetchMarkets(ctx context.Context) ([]Payload, error) {
	q := url.Values{"category": {"spot"}}

	var resp bybitEnvelope[struct {
		List []bybitInstrument `json:"list"`
	}]
	if err := b.client.get(ctx, "/v5/market/instruments-info", q, &resp); err != nil {
		return nil, wrapErr("bybit", "markets", "", err)
	}
	if err := resp.err(); err != nil {
		return nil, wrapErr("bybit", "markets", "", err)
	}

	out := make([]Payload, 0, len(resp.Result.List))
	for _, m := range resp.Result.List {
		out = append(out, Payload{
			"name":   m.BaseCoin + "/" + m.QuoteCoin,
			"base":   m.BaseCoin,
			"quote":  m.QuoteCoin,
			"type":   "spot",
			"active": m.Status == "Trading",
		})
	}
	return out, nil
}

var _ Connector = (*Bybit)(nil)
