package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nexusfeed/nexusfeed/internal/model"
)

// normSymbol folds vendor dash notation into the canonical slash form so
// subscriptions match records regardless of which form the client used.
func normSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "-", "/")
}

// subscribeMsg is the client -> server control message.
type subscribeMsg struct {
	Op     string `json:"op"` // "subscribe" or "unsubscribe"
	Symbol string `json:"symbol"`
}

// client is one connected WebSocket consumer.
type client struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Publisher broadcasts normalized tickers to WebSocket subscribers keyed by
// instrument symbol.
type Publisher struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
	queue    *queue[model.Ticker]

	mu      sync.Mutex
	clients map[*client]struct{}
	subs    map[string]map[*client]struct{} // symbol -> subscribers

	wg sync.WaitGroup
}

// New creates a Publisher with the given broadcast queue capacity.
func New(queueSize int, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		queue:   newQueue[model.Ticker](queueSize),
		clients: make(map[*client]struct{}),
		subs:    make(map[string]map[*client]struct{}),
	}
}

// Start launches the broadcast loop.
func (p *Publisher) Start(ctx context.Context) error {
	p.wg.Add(1)
	go p.run()

	// Close the queue when the process context ends; run drains and exits.
	go func() {
		<-ctx.Done()
		p.queue.close()
	}()

	p.logger.Info("publisher started")
	return nil
}

// Stop closes the queue and waits for the broadcast loop to drain.
func (p *Publisher) Stop(ctx context.Context) error {
	p.queue.close()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("publisher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish enqueues a record for broadcast. It never blocks the caller.
func (p *Publisher) Publish(rec model.Ticker) {
	p.queue.send(rec)
}

// HandleTicker adapts Publish to the scheduler's handler interface.
func (p *Publisher) HandleTicker(rec model.Ticker) error {
	p.Publish(rec)
	return nil
}

// ServeWS upgrades an HTTP request to a WebSocket subscription session.
func (p *Publisher) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn}
	p.register(c)
	p.logger.Debug("websocket client connected", "client", c.id)

	defer func() {
		p.unregister(c)
		conn.Close()
		p.logger.Debug("websocket client disconnected", "client", c.id)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg subscribeMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			p.logger.Debug("ignoring malformed control message", "client", c.id)
			continue
		}

		switch msg.Op {
		case "subscribe":
			p.subscribe(c, msg.Symbol)
		case "unsubscribe":
			p.unsubscribe(c, msg.Symbol)
		}
	}
}

func (p *Publisher) register(c *client) {
	p.mu.Lock()
	p.clients[c] = struct{}{}
	p.mu.Unlock()
}

func (p *Publisher) unregister(c *client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.clients, c)
	for symbol, set := range p.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(p.subs, symbol)
		}
	}
}

func (p *Publisher) subscribe(c *client, symbol string) {
	sym := normSymbol(symbol)
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.subs[sym]
	if !ok {
		set = make(map[*client]struct{})
		p.subs[sym] = set
	}
	set[c] = struct{}{}
}

func (p *Publisher) unsubscribe(c *client, symbol string) {
	sym := normSymbol(symbol)
	p.mu.Lock()
	defer p.mu.Unlock()

	if set, ok := p.subs[sym]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(p.subs, sym)
		}
	}
}

// subscribers snapshots the subscriber set for a symbol.
func (p *Publisher) subscribers(symbol string) []*client {
	p.mu.Lock()
	defer p.mu.Unlock()

	set := p.subs[symbol]
	out := make([]*client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// run is the broadcast loop: drain the queue, write to each subscriber,
// drop clients whose writes fail.
func (p *Publisher) run() {
	defer p.wg.Done()

	for {
		rec, ok := p.queue.receive()
		if !ok {
			return
		}

		for _, c := range p.subscribers(normSymbol(rec.Symbol)) {
			if err := c.writeJSON(rec); err != nil {
				p.logger.Debug("dropping dead websocket client", "client", c.id, "err", err)
				p.unregister(c)
				c.conn.Close()
			}
		}
	}
}
