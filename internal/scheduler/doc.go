// Package scheduler drives one independent periodic polling loop per
// (source, symbol) target.
//
// Each target runs the state machine
//
//	Idle -> Fetching -> Normalizing -> Persisting -> Idle
//	                 \-> Failed -> Idle
//
// with at most one fetch in flight per target at any instant. A failed tick
// is logged and the target waits for its next interval; one target's failure
// never affects another target's schedule. The first tick of every target
// fires immediately when the scheduler starts, after every configured
// source's sink has been reset.
package scheduler
