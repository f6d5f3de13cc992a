// Package model defines the canonical record shapes all normalization output
// conforms to, independent of any vendor's payload structure.
//
// Records are immutable once produced: they are created per successful fetch,
// handed to the sink or the response merger, and never mutated.
package model
