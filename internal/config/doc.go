// Package config loads the server configuration with viper. Sources, from
// lowest to highest precedence: built-in defaults, an optional YAML file, and
// GOINTAKE_* environment variables (dotenv files are read into the
// environment first).
package config
