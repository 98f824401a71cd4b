// Package config loads, validates, and normalizes mosaic's TOML
// configuration. Defaults live in defaults.go and the embedded sample config
// documents every key for `mosaic config init`.
package config
