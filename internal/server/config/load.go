package config

import "github.com/MiaKoring/BloomBuddyServer/internal/infra/confloader"

// LegacySigningKeyEnv is the signing key variable of earlier deployments.
const LegacySigningKeyEnv = "JWT_KEY"

// Load builds the configuration from defaults, the optional YAML file at
// path, the optional .env file, the environment and overrides. The result
// is not verified.
func Load(path, dotEnv string, overrides map[string]any) (*ServerConfig, error) {
	cfg := Default()

	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithDotEnv(dotEnv),
		confloader.WithEnvAlias(LegacySigningKeyEnv, "auth.signing_key"),
		confloader.WithOverrides(overrides),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
