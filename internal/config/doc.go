// Package config loads the server configuration.
//
// Values come from three layers, later layers winning:
//
//	1. Default()
//	2. a YAML file (LINEUP_CONFIG_FILE, config.yaml or configs/config.yaml)
//	3. LINEUP_* environment variables
//
// Environment variable names are derived from the struct layout:
//
//	LINEUP_SERVER_PORT=9090
//	LINEUP_DATA_DEFAULT_SOURCE=data/mtcars.csv
//	LINEUP_DATA_WATCH=true
//	LINEUP_LOGGING_LEVEL=debug
//
// Paths may start with ~ and are expanded at load time. The whole
// configuration is validated before Load returns.
package config
