// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable
// interpolation. The loaded Config is an immutable snapshot: it is validated
// once at startup and passed by reference into the registry, scheduler, and
// sink constructors, never mutated afterwards.
package config
