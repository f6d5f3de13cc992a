// apiprobe fetches one facet from one vendor and prints the raw payload
// and its normalized form. Useful for checking connectivity and payload
// shape without running the daemon.
//
// Usage: go run ./cmd/apiprobe --source binance_spot --symbol BTC/USDT --facet ticker
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nexusfeed/nexusfeed/internal/config"
	"github.com/nexusfeed/nexusfeed/internal/connector"
	"github.com/nexusfeed/nexusfeed/internal/normalize"
)

func main() {
	source := flag.String("source", "binance_spot", "source id")
	symbol := flag.String("symbol", "BTC/USDT", "instrument symbol")
	facet := flag.String("facet", "ticker", "one of ticker, orderbook, trades, markets")
	sandbox := flag.Bool("sandbox", false, "use the testnet endpoint")
	depth := flag.Int("depth", 20, "order book depth")
	limit := flag.Int("limit", 10, "trade count")
	timeout := flag.Duration("timeout", 15*time.Second, "fetch timeout")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	conn, err := connector.New(*source, connector.Options{
		Credentials: config.SourceCredentials(*source),
		Sandbox:     *sandbox,
		Logger:      logger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		fmt.Fprintln(os.Stderr, "supported sources:", connector.Supported())
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *facet {
	case "ticker":
		raw, err := conn.FetchTicker(ctx, *symbol)
		exitOn(err)
		rec, err := normalize.ToTicker(raw, *source, *symbol)
		exitOn(err)
		dump("raw", raw)
		dump("normalized", rec)

	case "orderbook":
		raw, err := conn.FetchOrderBook(ctx, *symbol, *depth)
		exitOn(err)
		book, err := normalize.ToOrderBook(raw, *source, *symbol)
		exitOn(err)
		dump("raw", raw)
		dump("normalized", book)

	case "trades":
		raws, err := conn.FetchTrades(ctx, *symbol, *limit)
		exitOn(err)
		trades, err := normalize.ToTrades(raws, *source, *symbol)
		exitOn(err)
		dump("raw", raws)
		dump("normalized", trades)

	case "markets":
		raws, err := conn.FetchMarkets(ctx)
		exitOn(err)
		fmt.Fprintf(os.Stderr, "markets: %d\n", len(raws))
		// Full listings run to thousands of entries; show a sample.
		if len(raws) > 5 {
			raws = raws[:5]
		}
		dump("sample", raws)

	default:
		fmt.Fprintf(os.Stderr, "unknown facet %q\n", *facet)
		os.Exit(2)
	}
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func dump(label string, v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Printf("--- %s ---\n%s\n", label, out)
}
