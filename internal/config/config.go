package config

// LoggingConfig configures the process-wide slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// TimeoutsConfig holds the gateway's tunable time budgets.
type TimeoutsConfig struct {
	RequestTimeoutSeconds  int `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds" validate:"omitempty,min=1"`
	ConnectTimeoutSeconds  int `mapstructure:"connect_timeout_seconds" yaml:"connect_timeout_seconds" validate:"omitempty,min=1"`
	ShutdownGraceSeconds   int `mapstructure:"shutdown_grace_seconds" yaml:"shutdown_grace_seconds" validate:"omitempty,min=1"`
}

// GlobalSettings bundles the ambient, non-provider-specific configuration.
type GlobalSettings struct {
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`
}

// Config is the gateway's full configuration surface: which providers are
// enabled, each one's settings fragment, and the ambient global settings.
// Deliberately a three-field surface - no per-route policy, no auth, no
// rate limiting.
type Config struct {
	EnabledProviders []string                  `mapstructure:"enabled_providers" yaml:"enabled_providers" validate:"omitempty,dive,required"`
	ProviderSettings map[string]map[string]any `mapstructure:"provider_settings" yaml:"provider_settings"`
	GlobalSettings   GlobalSettings            `mapstructure:"global_settings" yaml:"global_settings"`
}

// SetDefaults fills in zero-valued optional fields.
func (c *Config) SetDefaults() {
	if c.ProviderSettings == nil {
		c.ProviderSettings = make(map[string]map[string]any)
	}
	if c.GlobalSettings.Logging.Level == "" {
		c.GlobalSettings.Logging.Level = "info"
	}
	if c.GlobalSettings.Logging.Format == "" {
		c.GlobalSettings.Logging.Format = "text"
	}
	if c.GlobalSettings.Timeouts.RequestTimeoutSeconds == 0 {
		c.GlobalSettings.Timeouts.RequestTimeoutSeconds = 60
	}
	if c.GlobalSettings.Timeouts.ConnectTimeoutSeconds == 0 {
		c.GlobalSettings.Timeouts.ConnectTimeoutSeconds = 10
	}
	if c.GlobalSettings.Timeouts.ShutdownGraceSeconds == 0 {
		c.GlobalSettings.Timeouts.ShutdownGraceSeconds = 5
	}
}
