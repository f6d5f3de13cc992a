// Package server exposes the HTTP surface: on-demand fetches, aggregated
// market-data queries, source and symbol listings, the latest-price cache
// read, health, Prometheus metrics, and the websocket stream.
package server
