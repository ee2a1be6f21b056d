// Package config loads, normalizes, and validates duewatch configuration.
//
// Configuration is TOML with a single file resolved from an explicit path,
// ~/.config/duewatch/config.toml, or ./duewatch.toml in that order. Defaults
// apply for every omitted value, paths are tilde-expanded and made absolute,
// and validation rejects configurations the daemon cannot run with (bad
// check_time, unknown timezone, enabled remote without credentials).
package config
