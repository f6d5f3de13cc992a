// Package database provides connection pool management for the optional
// PostgreSQL ticker archive.
//
// The file sinks are the canonical persistence path; the database sink is an
// additional append-only archive enabled by configuring a database host.
package database
