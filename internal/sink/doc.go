// Package sink implements the append-only persistence sinks for ticker
// records.
//
// Sinks:
//   - CSV: one row per record in {source}_ticker.csv, header written once.
//   - JSON: a single array per source in {source}_ticker.json, rewritten on
//     every append. The rewrite preserves the canonical file format; it is
//     not crash-safe, and a line-delimited log would be the alternative if
//     that ever becomes a requirement.
//   - Postgres: optional batched archive into the tickers table.
//
// All sinks are append-only after Reset. Writes to the same destination file
// are serialized by a per-path lock held for the whole write, released on
// every exit path.
package sink
