package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nexusfeed/nexusfeed/internal/config"
	"github.com/nexusfeed/nexusfeed/internal/connector"
	"github.com/nexusfeed/nexusfeed/internal/directory"
	"github.com/nexusfeed/nexusfeed/internal/model"
	"github.com/nexusfeed/nexusfeed/internal/normalize"
	"github.com/nexusfeed/nexusfeed/internal/sink"
)

// Facet names used as error map keys.
const (
	FacetTicker    = "ticker"
	FacetOrderBook = "orderbook"
	FacetTrades    = "trades"
)

// ErrUnknownSource is returned when a query names a source that is not
// configured for polling.
var ErrUnknownSource = errors.New("unknown source")

// ErrNoDirectory is returned by the symbol listings when the service was
// built without a directory client.
var ErrNoDirectory = errors.New("symbol directory not configured")

// MarketData is the merged result of a multi-facet query. Facets that failed
// are nil (or absent) with an entry in Errors; a successful trades facet is
// always a non-nil slice, even when empty.
type MarketData struct {
	Source    string            `json:"source"`
	Symbol    string            `json:"symbol"`
	Ticker    *model.Ticker     `json:"ticker,omitempty"`
	OrderBook *model.OrderBook  `json:"orderbook,omitempty"`
	Trades    []model.Trade     `json:"trades"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// DirectoryGroup is one instrument type's listing with its count.
type DirectoryGroup struct {
	Count   int                `json:"count"`
	Symbols []model.Instrument `json:"symbols"`
}

// SourceAvailability reports, for one source id, the three independent
// facts: supported by the connector library, configured for polling, and
// served by the secondary symbol-directory provider.
type SourceAvailability struct {
	ID                 string `json:"id"`
	VendorSupported    bool   `json:"vendor_supported"`
	Configured         bool   `json:"configured"`
	DirectorySupported bool   `json:"directory_supported"`
}

// Service answers on-demand aggregated queries against configured sources.
type Service struct {
	cfg      config.QueryConfig
	registry *connector.Registry
	dir      *directory.Client
	sink     sink.Sink // may be nil; trigger fetches then skip persistence
	logger   *slog.Logger
}

// New creates a query service.
func New(cfg config.QueryConfig, registry *connector.Registry, dir *directory.Client, snk sink.Sink, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		registry: registry,
		dir:      dir,
		sink:     snk,
		logger:   logger,
	}
}

// MarketData fetches the ticker, order book, and recent trades for one
// symbol concurrently. Each facet fails independently: a failure or timeout
// in one is captured in the error map and does not abort the other two.
func (s *Service) MarketData(ctx context.Context, source, symbol string) (*MarketData, error) {
	conn, ok := s.registry.Get(source)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	result := &MarketData{
		Source: source,
		Symbol: symbol,
		Errors: make(map[string]string),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	fail := func(facet string, err error) {
		mu.Lock()
		result.Errors[facet] = err.Error()
		mu.Unlock()
	}

	// Each facet gets its own deadline so one slow facet cannot delay the
	// merged response.
	facetCtx := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(ctx, s.cfg.FacetTimeout)
	}

	wg.Add(3)

	go func() {
		defer wg.Done()
		fctx, cancel := facetCtx()
		defer cancel()

		raw, err := conn.FetchTicker(fctx, symbol)
		if err != nil {
			fail(FacetTicker, err)
			return
		}
		rec, err := normalize.ToTicker(raw, source, symbol)
		if err != nil {
			fail(FacetTicker, err)
			return
		}
		mu.Lock()
		result.Ticker = &rec
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		fctx, cancel := facetCtx()
		defer cancel()

		raw, err := conn.FetchOrderBook(fctx, symbol, s.cfg.BookDepth)
		if err != nil {
			fail(FacetOrderBook, err)
			return
		}
		book, err := normalize.ToOrderBook(raw, source, symbol)
		if err != nil {
			fail(FacetOrderBook, err)
			return
		}
		mu.Lock()
		result.OrderBook = &book
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		fctx, cancel := facetCtx()
		defer cancel()

		raws, err := conn.FetchTrades(fctx, symbol, s.cfg.TradeLimit)
		if err != nil {
			fail(FacetTrades, err)
			return
		}
		trades, err := normalize.ToTrades(raws, source, symbol)
		if err != nil {
			fail(FacetTrades, err)
			return
		}
		mu.Lock()
		// Empty is a valid result: present, not missing.
		if trades == nil {
			trades = []model.Trade{}
		}
		result.Trades = trades
		mu.Unlock()
	}()

	wg.Wait()

	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result, nil
}

// TriggerFetch performs one on-demand ticker fetch, appends the record to
// the persistence sinks, and returns it. Persistence failure does not fail
// the fetch; it is logged.
func (s *Service) TriggerFetch(ctx context.Context, source, symbol string) (model.Ticker, error) {
	conn, ok := s.registry.Get(source)
	if !ok {
		return model.Ticker{}, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	fctx, cancel := context.WithTimeout(ctx, s.cfg.FacetTimeout)
	defer cancel()

	raw, err := conn.FetchTicker(fctx, symbol)
	if err != nil {
		return model.Ticker{}, err
	}
	rec, err := normalize.ToTicker(raw, source, symbol)
	if err != nil {
		return model.Ticker{}, err
	}

	if s.sink != nil {
		if err := s.sink.AppendTicker(rec); err != nil {
			s.logger.Warn("trigger fetch persist failed",
				"source", source,
				"symbol", symbol,
				"err", err,
			)
		}
	}
	return rec, nil
}

// Symbols lists directory entries for one source, optionally filtered to a
// single instrument type.
func (s *Service) Symbols(ctx context.Context, source, instrumentType string) ([]model.Instrument, error) {
	if s.dir == nil {
		return nil, ErrNoDirectory
	}
	return s.dir.Symbols(ctx, source, instrumentType)
}

// AllSymbols lists directory entries for every instrument type the provider
// serves for a source, grouped with per-type counts. Per-type failures yield
// empty groups.
func (s *Service) AllSymbols(ctx context.Context, source string) (map[string]DirectoryGroup, error) {
	if s.dir == nil {
		return nil, ErrNoDirectory
	}
	byType, err := s.dir.AllSymbols(ctx, source)
	if err != nil {
		return nil, err
	}

	out := make(map[string]DirectoryGroup, len(byType))
	for t, symbols := range byType {
		out[t] = DirectoryGroup{Count: len(symbols), Symbols: symbols}
	}
	return out, nil
}

// ConfiguredSources lists the source ids configured for polling.
func (s *Service) ConfiguredSources() []string {
	return s.registry.Configured()
}

// AvailableSources enumerates every source the connector library supports,
// independent of which are configured for polling.
func (s *Service) AvailableSources() []SourceAvailability {
	supported := connector.Supported()
	out := make([]SourceAvailability, 0, len(supported))
	for _, id := range supported {
		out = append(out, SourceAvailability{
			ID:                 id,
			VendorSupported:    true,
			Configured:         s.registry.Has(id),
			DirectorySupported: directory.Supports(id),
		})
	}
	return out
}
