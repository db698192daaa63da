package config

// CLIConfig is the configuration for bloombuddy-cli.
type CLIConfig struct {
	Server string `yaml:"server"`
	Output string `yaml:"output"` // table, json, yaml

	// Account is the session from the last account create or login.
	Account AccountProfile `yaml:"account,omitempty"`

	// SensorTokens maps sensor ids to their paired bearer tokens.
	SensorTokens map[string]string `yaml:"sensor_tokens,omitempty"`
}

// AccountProfile is a stored account session.
type AccountProfile struct {
	ID        string `yaml:"id,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Token     string `yaml:"token,omitempty"`
	ExpiresAt int64  `yaml:"expires_at,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:       "http://localhost:8080",
		Output:       "table",
		SensorTokens: make(map[string]string),
	}
}
