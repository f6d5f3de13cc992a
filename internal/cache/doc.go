// Package cache stores the most recent ticker per (source, symbol) in Redis
// for cheap latest-price reads, decoupled from the append-only sinks.
package cache
