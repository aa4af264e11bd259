package config

const (
	// DefaultDatabasePath is the default path for the application database
	DefaultDatabasePath = "./passage.db"

	// DefaultPort matches the port the application historically listened on
	DefaultPort = 5000

	// ConfigFileEnv names the environment variable that selects a config file
	ConfigFileEnv = "CONFIG_FILE"
)
