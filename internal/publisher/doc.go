// Package publisher streams normalized tickers to WebSocket subscribers.
//
// Clients subscribe per instrument symbol; records flow through an internal
// growable queue so the polling path never blocks on a slow consumer. A
// client whose write fails is dropped.
package publisher
