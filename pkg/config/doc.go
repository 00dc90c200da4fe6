// Package config provides configuration management for Meridian.
//
// Configuration is loaded from a YAML file, filled in with defaults, and
// validated before use. Environment variables following the naming
// convention MERIDIAN_SECTION_FIELD override file values; provider API
// keys additionally resolve through per-provider api_key_env indirection
// so secrets stay out of config files.
//
// # Configuration Precedence
//
// Values are applied in order, later overriding earlier:
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// Watcher watches the config file with fsnotify and invokes a reload
// callback after a debounce interval, so editor save patterns (write,
// rename, chmod in quick succession) trigger a single reload.
package config
