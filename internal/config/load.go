package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over file values. Returns a validated Config or an error.
func Load() (*Config, error) {
	return load("")
}

// LoadFromFile is Load with an explicit config file path, used by tests
// and tooling that cannot rely on the working directory.
func LoadFromFile(configPath string) (*Config, error) {
	return load(configPath)
}

func load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars can carry everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("MNEMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not surface env-only keys through Unmarshal,
	// so the critical ones are bound explicitly.
	bindEnvs := []struct {
		key    string
		envVar string
	}{
		{"server.port", "MNEMO_SERVER_PORT"},
		{"server.log_level", "MNEMO_SERVER_LOG_LEVEL"},
		{"server.shutdown_timeout_seconds", "MNEMO_SERVER_SHUTDOWN_TIMEOUT_SECONDS"},
		{"database.url", "MNEMO_DATABASE_URL"},
		{"database.auto_migrate", "MNEMO_DATABASE_AUTO_MIGRATE"},
		{"database.max_open_conns", "MNEMO_DATABASE_MAX_OPEN_CONNS"},
		{"database.max_idle_conns", "MNEMO_DATABASE_MAX_IDLE_CONNS"},
		{"auth.jwt_secret", "MNEMO_AUTH_JWT_SECRET"},
		{"auth.token_lifetime_minutes", "MNEMO_AUTH_TOKEN_LIFETIME_MINUTES"},
	}
	for _, env := range bindEnvs {
		if err := v.BindEnv(env.key, env.envVar); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", env.envVar, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
