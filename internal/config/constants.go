package config

const (
	// AppName is reported in health responses and telemetry resources
	AppName = "lineup-if-fi"

	// EnvPrefix namespaces every environment variable, e.g. LINEUP_SERVER_PORT
	EnvPrefix = "LINEUP"

	// ConfigFileEnv points at an explicit config file
	ConfigFileEnv = "LINEUP_CONFIG_FILE"
)

// ConfigFileLocations are searched in order when ConfigFileEnv is unset
var ConfigFileLocations = []string{
	"config.yaml",
	"configs/config.yaml",
	"../configs/config.yaml",
}
