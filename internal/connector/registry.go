package connector

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/nexusfeed/nexusfeed/internal/config"
)

// Options configures one connector instance.
type Options struct {
	Credentials config.Credentials
	Sandbox     bool
	BaseURL     string // endpoint override, used by tests
	Logger      *slog.Logger
	HTTPClient  *http.Client
}

// constructors maps every source id the connector library supports to its
// factory. This is the closed set of variants: adding a source means adding
// an entry here, never runtime method probing.
var constructors = map[string]func(Options) (Connector, error){
	"binance_spot":  func(o Options) (Connector, error) { return NewBinance("binance_spot", o) },
	"binance_usdm":  func(o Options) (Connector, error) { return NewBinance("binance_usdm", o) },
	"binance_coinm": func(o Options) (Connector, error) { return NewBinance("binance_coinm", o) },
	"bybit":         func(o Options) (Connector, error) { return NewBybit(o) },
	"okx":           func(o Options) (Connector, error) { return NewOKX(o) },
	"sim":           func(o Options) (Connector, error) { return NewSim(), nil },
}

// Supported returns every source id the connector library can construct,
// independent of which are configured for polling.
func Supported() []string {
	out := make([]string, 0, len(constructors))
	for id := range constructors {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// IsSupported reports whether the connector library can construct id.
func IsSupported(id string) bool {
	_, ok := constructors[id]
	return ok
}

// New constructs a single connector by source id.
func New(id string, opts Options) (Connector, error) {
	ctor, ok := constructors[id]
	if !ok {
		return nil, fmt.Errorf("unsupported source %q", id)
	}
	return ctor(opts)
}

// Registry maps source id -> connector instance. It is built once at startup
// from configuration and is read-only thereafter.
type Registry struct {
	connectors map[string]Connector
}

// NewRegistry builds one connector per configured source id. An unknown
// source id is a configuration error, not a runtime fetch error.
func NewRegistry(cfg *config.Config, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	connectors := make(map[string]Connector)
	for _, id := range cfg.Sources.EnabledSources() {
		ctor, ok := constructors[id]
		if !ok {
			return nil, fmt.Errorf("unsupported source %q", id)
		}

		conn, err := ctor(Options{
			Credentials: config.SourceCredentials(id),
			Sandbox:     cfg.Sources.Sandbox[id],
			Logger:      logger.With("source", id),
		})
		if err != nil {
			return nil, fmt.Errorf("construct connector %q: %w", id, err)
		}

		connectors[id] = conn
		logger.Info("connector registered", "source", id, "sandbox", cfg.Sources.Sandbox[id])
	}

	return &Registry{connectors: connectors}, nil
}

// NewStaticRegistry wraps pre-built connectors, used by tests.
func NewStaticRegistry(conns map[string]Connector) *Registry {
	out := make(map[string]Connector, len(conns))
	for id, c := range conns {
		out[id] = c
	}
	return &Registry{connectors: out}
}

// Get returns the connector for a configured source id.
func (r *Registry) Get(id string) (Connector, bool) {
	c, ok := r.connectors[id]
	return c, ok
}

// Configured returns the configured source ids in a stable order.
func (r *Registry) Configured() []string {
	out := make([]string, 0, len(r.connectors))
	for id := range r.connectors {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Has reports whether id is configured for polling.
func (r *Registry) Has(id string) bool {
	_, ok := r.connectors[id]
	return ok
}
