// Package connector implements the source connector capability interface and
// its vendor variants.
//
// A Connector exposes FetchTicker, FetchOrderBook, FetchTrades and
// FetchMarkets against one external market-data source. Variants differ only
// in endpoint and vendor response shape; they all return loosely-typed
// payloads that only the normalizer interprets. The Registry is built once at
// startup from configuration; an unknown source id fails construction.
package connector
