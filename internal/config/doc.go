// Package config provides YAML-based configuration loading and validation
// for the synthesis service, including the remote service credential which
// may be supplied through the environment instead of the config file.
package config
