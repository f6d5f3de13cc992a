package connector

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const okxBaseURL = "https://www.okx.com"

// OKX talks to the OKX v5 public market endpoints.
type OKX struct {
	client *restClient
}

// NewOKX creates an OKX connector. OKX demo trading shares the production
// host; the sandbox flag is sent as a header instead.
func NewOKX(opts Options) (*OKX, error) {
	baseURL := okxBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}

	clientOpts := []clientOption{withLogger(opts.Logger)}
	switch {
	case opts.Credentials.APISecret != "":
		clientOpts = append(clientOpts, withSigner(okxSigner(opts.Credentials)))
	case opts.Credentials.APIKey != "":
		clientOpts = append(clientOpts, withAPIKey("OK-ACCESS-KEY", opts.Credentials.APIKey))
	}
	if opts.Sandbox {
		clientOpts = append(clientOpts, withHeader("x-simulated-trading", "1"))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, withHTTPClient(opts.HTTPClient))
	}

	return &OKX{client: newRESTClient(baseURL, clientOpts...)}, nil
}

func (o *OKX) ID() string { return "okx" }

// okxInstID converts a canonical "BTC/USDT" symbol to OKX's "BTC-USDT".
func okxInstID(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "-")
}

// okxEnvelope wraps every v5 response.
type okxEnvelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

func (e okxEnvelope[T]) err() error {
	if e.Code != "0" {
		return fmt.Errorf("okx code %s: %s", e.Code, e.Msg)
	}
	return nil
}

type okxTicker struct {
	InstID  string `json:"instId"`
	Last    string `json:"last"`
	BidPx   string `json:"bidPx"`
	AskPx   string `json:"askPx"`
	High24h string `json:"high24h"`
	Low24h  string `json:"low24h"`
	Vol24h  string `json:"vol24h"`
	Open24h string `json:"open24h"`
	TS      string `json:"ts"` // epoch millis as string
}

func (o *OKX) FetchTicker(ctx context.Context, symbol string) (Payload, error) {
	q := url.Values{"instId": {okxInstID(symbol)}}

	var resp okxEnvelope[okxTicker]
	if err := o.client.get(ctx, "/api/v5/market/ticker", q, &resp); err != nil {
		return nil, wrapErr("okx", "ticker", symbol, err)
	}
	if err := resp.err(); err != nil {
		return nil, wrapErr("okx", "ticker", symbol, err)
	}
	if len(resp.Data) == 0 {
		return nil, wrapErr("okx", "ticker", symbol, fmt.Errorf("empty ticker data"))
	}

	t := resp.Data[0]
	p := Payload{"symbol": symbol}
	putNum(p, "last", t.Last)
	putNum(p, "bid", t.BidPx)
	putNum(p, "ask", t.AskPx)
	putNum(p, "high", t.High24h)
	putNum(p, "low", t.Low24h)
	putNum(p, "baseVolume", t.Vol24h)
	putNum(p, "timestamp", t.TS)
	if t.Open24h != "" && t.Last != "" {
		open, errO := strconv.ParseFloat(t.Open24h, 64)
		last, errL := strconv.ParseFloat(t.Last, 64)
		if errO == nil && errL == nil && open != 0 {
			p["percentage"] = (last - open) / open * 100
		}
	}
	return p, nil
}

type okxBook struct {
	// Levels are [price, size, liquidated, orders]; only the first two matter.
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
	TS   string     `json:"ts"`
}

func (o *OKX) FetchOrderBook(ctx context.Context, symbol string, depth int) (Payload, error) {
	q := url.Values{
		"instId": {okxInstID(symbol)},
		"sz":     {strconv.Itoa(depth)},
	}

	var resp okxEnvelope[okxBook]
	if err := o.client.get(ctx, "/api/v5/market/books", q, &resp); err != nil {
		return nil, wrapErr("okx", "orderbook", symbol, err)
	}
	if err := resp.err(); err != nil {
		return nil, wrapErr("okx", "orderbook", symbol, err)
	}
	if len(resp.Data) == 0 {
		return nil, wrapErr("okx", "orderbook", symbol, fmt.Errorf("empty book data"))
	}

	b := resp.Data[0]
	return Payload{
		"symbol":    symbol,
		"bids":      levelsToAny(b.Bids),
		"asks":      levelsToAny(b.Asks),
		"timestamp": b.TS,
	}, nil
}

type okxTrade struct {
	TradeID string `json:"tradeId"`
	Px      string `json:"px"`
	Sz      string `json:"sz"`
	Side    string `json:"side"` // "buy" or "sell"
	TS      string `json:"ts"`
}

func (o *OKX) FetchTrades(ctx context.Context, symbol string, limit int) ([]Payload, error) {
	q := url.Values{
		"instId": {okxInstID(symbol)},
		"limit":  {strconv.Itoa(limit)},
	}

	var resp okxEnvelope[okxTrade]
	if err := o.client.get(ctx, "/api/v5/market/trades", q, &resp); err != nil {
		return nil, wrapErr("okx", "trades", symbol, err)
	}
	if err := resp.err(); err != nil {
		return nil, wrapErr("okx", "trades", symbol, err)
	}

	out := make([]Payload, 0, len(resp.Data))
	for _, t := range resp.Data {
		p := Payload{
			"id":        t.TradeID,
			"symbol":    symbol,
			"side":      t.Side,
			"timestamp": t.TS,
		}
		putNum(p, "price", t.Px)
		putNum(p, "amount", t.Sz)
		out = append(out, p)
	}
	return out, nil
}

type okxInstrument struct {
	InstID   string `json:"instId"`
	InstType string `json:"instType"` // SPOT, SWAP, FUTURES, OPTION
	BaseCcy  string `json:"baseCcy"`
	QuoteCcy string `json:"quoteCcy"`
	State    string `json:"state"`
}

func (o *OKX) FetchMarkets(ctx context.Context) ([]Payload, error) {
	q := url.Values{"instType": {"SPOT"}}

	var resp okxEnvelope[okxInstrument]
	if err := o.client.get(ctx, "/api/v5/public/instruments", q, &resp); err != nil {
		return nil, wrapErr("okx", "markets", "", err)
	}
	if err := resp.err(); err != nil {
		return nil, wrapErr("okx", "markets", "", err)
	}

	out := make([]Payload, 0, len(resp.Data))
	for _, m := range resp.Data {
		out = append(out, Payload{
			"name":   m.BaseCcy + "/" + m.QuoteCcy,
			"base":   m.BaseCcy,
			"quote":  m.QuoteCcy,
			"type":   strings.ToLower(m.InstType),
			"active": m.State == "live",
		})
	}
	return out, nil
}

var _ Connector = (*OKX)(nil)
