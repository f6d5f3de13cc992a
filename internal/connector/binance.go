package connector

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// binanceVariant describes one member of the Binance connector family.
// Spot and the two futures flavors share request plumbing and differ only in
// endpoint and instrument type.
type binanceVariant struct {
	id         string
	baseURL    string
	sandboxURL string
	pathPrefix string // "/api/v3", "/fapi/v1" or "/dapi/v1"
	instType   string // canonical instrument type for FetchMarkets
}

var binanceVariants = map[string]binanceVariant{
	"binance_spot": {
		id:         "binance_spot",
		baseURL:    "https://api.binance.com",
		sandboxURL: "https://testnet.binance.vision",
		pathPrefix: "/api/v3",
		instType:   "spot",
	},
	"binance_usdm": {
		id:         "binance_usdm",
		baseURL:    "https://fapi.binance.com",
		sandboxURL: "https://testnet.binancefuture.com",
		pathPrefix: "/fapi/v1",
		instType:   "swap",
	},
	"binance_coinm": {
		id:         "binance_coinm",
		baseURL:    "https://dapi.binance.com",
		sandboxURL: "https://testnet.binancefuture.com",
		pathPrefix: "/dapi/v1",
		instType:   "swap",
	},
}

// Binance talks to one Binance REST endpoint (spot, USD-M or COIN-M).
type Binance struct {
	variant binanceVariant
	client  *restClient
}

// NewBinance creates a connector for the given Binance family source id.
func NewBinance(id string, opts Options) (*Binance, error) {
	v, ok := binanceVariants[id]
	if !ok {
		return nil, fmt.Errorf("unknown binance variant %q", id)
	}

	baseURL := v.baseURL
	if opts.Sandbox {
		baseURL = v.sandboxURL
	}
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}

	clientOpts := []clientOption{withLogger(opts.Logger)}
	if opts.Credentials.APIKey != "" {
		clientOpts = append(clientOpts, withAPIKey("X-MBX-APIKEY", opts.Credentials.APIKey))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, withHTTPClient(opts.HTTPClient))
	}

	return &Binance{
		variant: v,
		client:  newRESTClient(baseURL, clientOpts...),
	}, nil
}

func (b *Binance) ID() string { return b.variant.id }

// nativeSymbol converts a canonical "BTC/USDT" symbol to Binance's "BTCUSDT".
func nativeSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}

// binanceTicker is the 24hr ticker statistics response.
type binanceTicker struct {
	Symbol             string `json:"symbol"`
	PriceChangePercent string `json:"priceChangePercent"`
	WeightedAvgPrice   string `json:"weightedAvgPrice"`
	LastPrice          string `json:"lastPrice"`
	BidPrice           string `json:"bidPrice"`
	AskPrice           string `json:"askPrice"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	Volume             string `json:"volume"`
	CloseTime          int64  `json:"closeTime"`
}

func (b *Binance) FetchTicker(ctx context.Context, symbol string) (Payload, error) {
	q := url.Values{"symbol": {nativeSymbol(symbol)}}

	var t binanceTicker
	if err := b.client.get(ctx, b.variant.pathPrefix+"/ticker/24hr", q, &t); err != nil {
		return nil, wrapErr(b.variant.id, "ticker", symbol, err)
	}

	p := Payload{
		"symbol":    symbol,
		"timestamp": t.CloseTime,
	}
	putNum(p, "last", t.LastPrice)
	putNum(p, "bid", t.BidPrice)
	putNum(p, "ask", t.AskPrice)
	putNum(p, "high", t.HighPrice)
	putNum(p, "low", t.LowPrice)
	putNum(p, "baseVolume", t.Volume)
	putNum(p, "percentage", t.PriceChangePercent)
	putNum(p, "vwap", t.WeightedAvgPrice)
	return p, nil
}

// binanceDepth is the order book response.
type binanceDepth struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

func (b *Binance) FetchOrderBook(ctx context.Context, symbol string, depth int) (Payload, error) {
	q := url.Values{
		"symbol": {nativeSymbol(symbol)},
		"limit":  {strconv.Itoa(depth)},
	}

	var d binanceDepth
	if err := b.client.get(ctx, b.variant.pathPrefix+"/depth", q, &d); err != nil {
		return nil, wrapErr(b.variant.id, "orderbook", symbol, err)
	}

	return Payload{
		"symbol": symbol,
		"nonce":  d.LastUpdateID,
		"bids":   levelsToAny(d.Bids),
		"asks":   levelsToAny(d.Asks),
	}, nil
}

// binanceTrade is one public trade.
type binanceTrade struct {
	ID           int64  `json:"id"`
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	Time         int64  `json:"time"`
	IsBuyerMaker bool   `json:"isBuyerMaker"`
}

func (b *Binance) FetchTrades(ctx context.Context, symbol string, limit int) ([]Payload, error) {
	q := url.Values{
		"symbol": {nativeSymbol(symbol)},
		"limit":  {strconv.Itoa(limit)},
	}

	var trades []binanceTrade
	if err := b.client.get(ctx, b.variant.pathPrefix+"/trades", q, &trades); err != nil {
		return nil, wrapErr(b.variant.id, "trades", symbol, err)
	}

	out := make([]Payload, 0, len(trades))
	for _, t := range trades {
		// Buyer-maker means the taker sold into the bid.
		side := "buy"
		if t.IsBuyerMaker {
			side = "sell"
		}
		p := Payload{
			"id":        strconv.FormatInt(t.ID, 10),
			"symbol":    symbol,
			"side":      side,
			"timestamp": t.Time,
		}
		putNum(p, "price", t.Price)
		putNum(p, "amount", t.Qty)
		out = append(out, p)
	}
	return out, nil
}

// binanceExchangeInfo is the instrument directory response.
type binanceExchangeInfo struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

func (b *Binance) FetchMarkets(ctx context.Context) ([]Payload, error) {
	var info binanceExchangeInfo
	if err := b.client.get(ctx, b.variant.pathPrefix+"/exchangeInfo", nil, &info); err != nil {
		return nil, wrapErr(b.variant.id, "markets", "", err)
	}

	out := make([]Payload, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		out = append(out, Payload{
			"name":   s.BaseAsset + "/" + s.QuoteAsset,
			"base":   s.BaseAsset,
			"quote":  s.QuoteAsset,
			"type":   b.variant.instType,
			"active": s.Status == "TRADING",
		})
	}
	return out, nil
}

// putNum stores a vendor numeric string under key, skipping empty values so
// the normalizer sees them as absent rather than zero.
func putNum(p Payload, key, val string) {
	if val == "" {
		return
	}
	p[key] = val
}

// levelsToAny converts [][2]string price levels to the loose payload shape.
func levelsToAny(levels [][]string) []any {
	out := make([]any, 0, len(levels))
	for _, lvl := range levels {
		row := make([]any, 0, len(lvl))
		for _, v := range lvl {
			row = append(row, v)
		}
		out = append(out, row)
	}
	return out
}

var _ Connector = (*Binance)(nil)
