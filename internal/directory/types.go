package directory

// instrumentTypes lists, per provider-side exchange name, the instrument
// types the directory provider can serve. The first entry is the default.
var instrumentTypes = map[string][]string{
	"okx":           {"spot", "margin", "swap", "futures", "option"},
	"deribit":       {"future", "future_combo", "option", "option_combo", "spot"},
	"bybit":         {"spot", "linear", "inverse", "option"},
	"binance":       {"spot", "usdm_futures", "coinm_futures", "option"},
	"cryptocom":     {"ccy_pair", "perpetual_swap", "future"},
	"kraken":        {"spot", "futures"},
	"kucoin":        {"spot", "margin", "futures"},
	"bitstamp":      {"spot"},
	"bitmex":        {"all"},
	"coinbase_intl": {"all"},
	"coinbase":      {"spot"},
	"mexc":          {"spot", "futures"},
	"gemini":        {"all"},
	"htx":           {"spot"},
	"bitfinex":      {"all"},
	"hyperliquid":   {"spot", "perpetual"},
	"blofin":        {"all"},
	"gateio":        {"spot", "futures"},
	"bitget":        {"spot", "futures"},
	"bitso":         {"spot"},
}

// typeRemap fills the gaps where a requested instrument type is not served
// under that name by the provider for a given exchange.
var typeRemap = map[string]map[string]string{
	"okx": {
		"perpetual":    "swap",
		"linear":       "swap",
		"usdm_futures": "swap",
		"all":          "swap",
	},
	"bybit": {
		"perpetual":    "linear",
		"swap":         "linear",
		"usdm_futures": "linear",
		"all":          "linear",
	},
	"hyperliquid": {
		"margin":       "spot",
		"swap":         "perpetual",
		"all":          "perpetual",
		"linear":       "perpetual",
		"usdm_futures": "perpetual",
	},
	"blofin": {
		"perpetual":    "all",
		"swap":         "all",
		"spot":         "all",
		"linear":       "all",
		"usdm_futures": "all",
	},
}

// symbolRoutes maps local source ids to the provider's exchange names.
var symbolRoutes = map[string]string{
	"binancespot":    "binance",
	"binance_spot":   "binance",
	"binanceoptions": "binance",
	"binancecoinm":   "binance",
	"binance_coinm":  "binance",
	"binanceusdm":    "binance",
	"binance_usdm":   "binance",
	"mexcspot":       "mexc",
	"mexcfutures":    "mexc",
	"krakenspot":     "kraken",
	"kraken_spot":    "kraken",
	"krakenfutures":  "kraken",
	"kraken_futures": "kraken",
	"kucoin_spot":    "kucoin",
	"kucoin_futures": "kucoin",
}

// Route maps a local source id to the provider's exchange name.
func Route(source string) string {
	if r, ok := symbolRoutes[source]; ok {
		return r
	}
	return source
}

// Supports reports whether the directory provider serves this source id.
func Supports(source string) bool {
	_, ok := instrumentTypes[Route(source)]
	return ok
}

// Types returns the instrument types the provider serves for a source, or
// nil if unsupported.
func Types(source string) []string {
	return instrumentTypes[Route(source)]
}

// resolveType maps a requested instrument type to the provider's name for
// it, falling back to the exchange's default type when the request cannot
// be served.
func resolveType(exchange, instrumentType string) string {
	types, ok := instrumentTypes[exchange]
	if !ok {
		return "spot"
	}
	for _, t := range types {
		if t == instrumentType {
			return t
		}
	}
	if remap, ok := typeRemap[exchange]; ok {
		if t, ok := remap[instrumentType]; ok {
			return t
		}
	}
	return types[0]
}
