// Package config loads, normalizes, and validates the TOML configuration
// consumed by the daemon and CLI. Configuration is resolved once at startup
// and passed explicitly to every component; nothing reads it ambiently.
package config
