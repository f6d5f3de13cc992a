package connector

import (
	"context"
)

// Payload is a decoded vendor payload in the loose unified shape the
// normalizer consumes. Connectors translate vendor wire JSON into this
// shape; only the normalizer interprets field values.
type Payload = map[string]any

// Connector is the capability set a vendor adapter must satisfy. Variants
// differ only in how they talk to their vendor endpoint and in the vendor's
// response shape, never in scheduling or persistence behavior.
type Connector interface {
	// ID returns the source id this connector serves.
	ID() string

	// FetchTicker fetches the current ticker for a symbol.
	FetchTicker(ctx context.Context, symbol string) (Payload, error)

	// FetchOrderBook fetches a full order book snapshot up to depth levels.
	FetchOrderBook(ctx context.Context, symbol string, depth int) (Payload, error)

	// FetchTrades fetches up to limit recent public trades.
	FetchTrades(ctx context.Context, symbol string, limit int) ([]Payload, error)

	// FetchMarkets fetches the instruments the source currently lists.
	FetchMarkets(ctx context.Context) ([]Payload, error)
}
