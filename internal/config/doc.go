// Package config defines the application configuration structure and
// loads it from environment variables and optional config files using
// viper, validating the result before the application starts.
package config
