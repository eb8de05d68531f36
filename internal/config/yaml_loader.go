package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// yamlOverride binds a YAML key to the environment variable that takes precedence over it.
type yamlOverride struct {
	key    string
	envVar string
	apply  func(cfg *Config, v *viper.Viper, key string)
}

var yamlOverrides = []yamlOverride{
	{"jwt.algorithm", "JWT_ALGORITHM", func(c *Config, v *viper.Viper, k string) { c.JWT.Algorithm = v.GetString(k) }},
	{"jwt.access_token_expiry", "JWT_ACCESS_TOKEN_EXPIRY", func(c *Config, v *viper.Viper, k string) {
		c.JWT.AccessTokenExpiry = v.GetDuration(k)
	}},
	{"jwt.refresh_token_expiry", "JWT_REFRESH_TOKEN_EXPIRY", func(c *Config, v *viper.Viper, k string) {
		c.JWT.RefreshTokenExpiry = v.GetDuration(k)
	}},
	{"demo.session_limit", "DEMO_SESSION_LIMIT", func(c *Config, v *viper.Viper, k string) { c.Demo.SessionLimit = v.GetInt(k) }},
	{"demo.session_ttl", "DEMO_SESSION_TTL", func(c *Config, v *viper.Viper, k string) { c.Demo.SessionTTLSeconds = v.GetInt(k) }},
	{"logging.level", "LOGGING_LEVEL", func(c *Config, v *viper.Viper, k string) { c.Logging.Level = v.GetString(k) }},
	{"logging.format", "LOGGING_FORMAT", func(c *Config, v *viper.Viper, k string) { c.Logging.Format = v.GetString(k) }},
}

// loadYAMLConfig loads operational configuration from YAML files based on the environment.
// It first loads defaults.yaml, then overlays environment-specific configuration
// (local.yaml, nonprod.yaml, or prod.yaml). Both files are optional; a nil viper
// is returned when no defaults file exists.
func loadYAMLConfig(env Environment) (*viper.Viper, error) {
	v := newYAMLViper("defaults")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read defaults config: %w", err)
	}

	var envConfigFile string
	switch env {
	case NonProd:
		envConfigFile = "nonprod"
	case Prod:
		envConfigFile = "prod"
	case Local:
		fallthrough
	default:
		envConfigFile = "local"
	}

	envViper := newYAMLViper(envConfigFile)
	if err := envViper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read %s config: %w", envConfigFile, err)
		}
		return v, nil
	}

	if err := v.MergeConfigMap(envViper.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to merge environment config: %w", err)
	}

	return v, nil
}

func newYAMLViper(name string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName(name)
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")
	return v
}

// applyYAMLOverrides copies YAML values into cfg for every key whose
// environment variable is unset. Environment variables always win.
func applyYAMLOverrides(cfg *Config, v *viper.Viper) {
	if v == nil {
		return
	}
	for _, o := range yamlOverrides {
		if !v.IsSet(o.key) {
			continue
		}
		if _, ok := os.LookupEnv(o.envVar); ok {
			continue
		}
		o.apply(cfg, v, o.key)
	}
}
