// Package query implements the on-demand aggregated market-data queries.
//
// A market-data query fans out to the ticker, order book, and trades facets
// concurrently against one source's connector. Facets fail independently
// under a per-facet timeout; the merged result carries whichever facets
// succeeded plus an error map keyed by facet name for whichever failed.
// Symbol-directory queries and the source availability report are separate,
// synchronous paths.
package query
