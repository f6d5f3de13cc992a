// Package metrics exposes the process's Prometheus collectors.
package metrics
