// Package config loads pack build definitions from YAML and server
// settings from the environment, validating cross-field invariants at
// load time.
package config
