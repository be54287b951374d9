// Package config loads platform configuration from YAML files with
// environment variable expansion, default values and validation.
package config
