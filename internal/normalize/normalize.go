package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nexusfeed/nexusfeed/internal/connector"
	"github.com/nexusfeed/nexusfeed/internal/model"
)

// Error is a normalization failure: the raw payload was missing a required
// field or carried an unrecognized value.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("normalize %s: %s", e.Field, e.Reason)
}

func errf(field, format string, args ...any) *Error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ToTicker maps a raw vendor ticker payload to a canonical Ticker. Missing
// optional numerics stay nil; they are never fabricated as zero.
func ToTicker(raw connector.Payload, source, symbol string) (model.Ticker, error) {
	if raw == nil {
		return model.Ticker{}, errf("payload", "nil ticker payload")
	}

	return model.Ticker{
		Source:     source,
		Symbol:     symbol,
		Last:       optFloat(raw, "last", "lastPrice", "price"),
		Bid:        optFloat(raw, "bid", "bidPrice"),
		Ask:        optFloat(raw, "ask", "askPrice"),
		High:       optFloat(raw, "high", "highPrice"),
		Low:        optFloat(raw, "low", "lowPrice"),
		Volume:     optFloat(raw, "baseVolume", "volume"),
		Change:     optFloat(raw, "percentage", "priceChangePercent"),
		VWAP:       optFloat(raw, "vwap", "weightedAvgPrice"),
		CapturedAt: pickTime(raw, "timestamp", "datetime"),
	}, nil
}

// ToTrade maps a raw vendor trade payload to a canonical Trade. Price, size
// and side are required; an unrecognized side is an error, never defaulted.
func ToTrade(raw connector.Payload, source, symbol string) (model.Trade, error) {
	if raw == nil {
		return model.Trade{}, errf("payload", "nil trade payload")
	}

	price, ok := pickFloat(raw, "price")
	if !ok {
		return model.Trade{}, errf("price", "missing or non-numeric")
	}
	size, ok := pickFloat(raw, "amount", "qty", "size")
	if !ok {
		return model.Trade{}, errf("size", "missing or non-numeric")
	}

	side, err := ParseSide(raw["side"])
	if err != nil {
		return model.Trade{}, err
	}

	return model.Trade{
		Source:    source,
		Symbol:    symbol,
		TradeID:   pickString(raw, "id", "trade_id", "tid"),
		Price:     price,
		Size:      size,
		Side:      side,
		Timestamp: pickTime(raw, "timestamp", "datetime", "time"),
	}, nil
}

// ToTrades maps a sequence of raw trades. A malformed element fails the whole
// batch; one poll's trades are persisted all or not at all.
func ToTrades(raws []connector.Payload, source, symbol string) ([]model.Trade, error) {
	out := make([]model.Trade, 0, len(raws))
	for i, raw := range raws {
		t, err := ToTrade(raw, source, symbol)
		if err != nil {
			return nil, fmt.Errorf("trade %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// ToOrderBook maps a raw vendor depth payload to a canonical OrderBook.
// Output bids are sorted descending, asks ascending, regardless of vendor
// ordering.
func ToOrderBook(raw connector.Payload, source, symbol string) (model.OrderBook, error) {
	if raw == nil {
		return model.OrderBook{}, errf("payload", "nil order book payload")
	}

	bids, err := parseLevels(raw["bids"])
	if err != nil {
		return model.OrderBook{}, errf("bids", "%v", err)
	}
	asks, err := parseLevels(raw["asks"])
	if err != nil {
		return model.OrderBook{}, errf("asks", "%v", err)
	}

	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })

	book := model.OrderBook{
		Source:    source,
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: pickTime(raw, "timestamp", "datetime"),
	}

	if f, ok := pickFloat(raw, "nonce", "sequence", "seq", "lastUpdateId", "u"); ok {
		book.Sequence = model.Int64(int64(f))
	}

	return book, nil
}

// ToInstrument maps a raw market/directory entry to a canonical Instrument.
func ToInstrument(raw connector.Payload) (model.Instrument, error) {
	name := pickString(raw, "name", "symbol", "instrument")
	if name == "" {
		return model.Instrument{}, errf("name", "missing symbol name")
	}

	inst := model.Instrument{
		Name:  name,
		Base:  pickString(raw, "base", "base_currency", "baseAsset"),
		Quote: pickString(raw, "quote", "quote_currency", "quoteAsset"),
		Type:  strings.ToLower(pickString(raw, "type", "instrument_type")),
	}
	if active, ok := raw["active"].(bool); ok {
		inst.Active = active
	} else {
		// Directory providers list only live instruments.
		inst.Active = true
	}
	return inst, nil
}

// ParseSide folds a raw side value into the {buy, sell} enum
// case-insensitively. Anything else is a normalization error.
func ParseSide(v any) (model.Side, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", errf("side", "missing")
	}
	switch strings.ToLower(s) {
	case "buy":
		return model.SideBuy, nil
	case "sell":
		return model.SideSell, nil
	}
	return "", errf("side", "unrecognized side %q", s)
}

// -----------------------------------------------------------------------------
// Field extraction
// -----------------------------------------------------------------------------

// toFloat coerces the numeric representations vendors actually send: JSON
// numbers, integer timestamps, and numeric strings.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// pickFloat returns the first present, numeric value among keys.
func pickFloat(raw connector.Payload, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			if f, ok := toFloat(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// optFloat is pickFloat returning nil when absent.
func optFloat(raw connector.Payload, keys ...string) *float64 {
	if f, ok := pickFloat(raw, keys...); ok {
		return model.Float64(f)
	}
	return nil
}

// pickString returns the first present value among keys, stringified.
func pickString(raw connector.Payload, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int64:
			return strconv.FormatInt(v, 10)
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}

// epochMillisCutoff separates epoch-seconds from epoch-millis values.
// Anything above it is read as milliseconds.
const epochMillisCutoff = 1e12

// parseEpoch interprets a numeric timestamp, detecting seconds vs millis.
func parseEpoch(f float64) time.Time {
	if f > epochMillisCutoff {
		return time.UnixMilli(int64(f)).UTC()
	}
	return time.Unix(int64(f), 0).UTC()
}

// pickTime extracts a timestamp from the first present key, coercing native
// epoch seconds, epoch millis, or RFC 3339 strings to UTC with millisecond
// precision. Absent timestamps fall back to the current time.
func pickTime(raw connector.Payload, keys ...string) time.Time {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch x := v.(type) {
		case time.Time:
			return x.UTC().Truncate(time.Millisecond)
		case string:
			if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
				return t.UTC().Truncate(time.Millisecond)
			}
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return parseEpoch(f).Truncate(time.Millisecond)
			}
		default:
			if f, ok := toFloat(v); ok {
				return parseEpoch(f).Truncate(time.Millisecond)
			}
		}
	}
	return time.Now().UTC().Truncate(time.Millisecond)
}

// parseLevels converts a raw bids/asks value into price levels. Levels may be
// [price, size] pairs or {price, size} objects; sizes under amount/size/qty.
func parseLevels(v any) ([]model.PriceLevel, error) {
	if v == nil {
		return []model.PriceLevel{}, nil
	}

	rows, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected levels type %T", v)
	}

	out := make([]model.PriceLevel, 0, len(rows))
	for i, row := range rows {
		switch lvl := row.(type) {
		case []any:
			if len(lvl) < 2 {
				return nil, fmt.Errorf("level %d has %d elements", i, len(lvl))
			}
			price, ok := toFloat(lvl[0])
			if !ok {
				return nil, fmt.Errorf("level %d has non-numeric price", i)
			}
			size, ok := toFloat(lvl[1])
			if !ok {
				return nil, fmt.Errorf("level %d has non-numeric size", i)
			}
			out = append(out, model.PriceLevel{Price: price, Size: size})
		case map[string]any:
			price, ok := pickFloat(lvl, "price")
			if !ok {
				return nil, fmt.Errorf("level %d missing price", i)
			}
			size, ok := pickFloat(lvl, "amount", "size", "qty")
			if !ok {
				return nil, fmt.Errorf("level %d missing size", i)
			}
			out = append(out, model.PriceLevel{Price: price, Size: size})
		default:
			return nil, fmt.Errorf("level %d has unexpected type %T", i, row)
		}
	}
	return out, nil
}
