package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// ErrMissingCredentials is returned by Validate when either Kraken API secret
// is absent. Credential failures are fatal before any network call.
var ErrMissingCredentials = errors.New("missing Kraken credentials: set KRAKEN_API_KEY and KRAKEN_SECRET_KEY")

// Config holds all configuration for the application.
type Config struct {
	Kraken  Kraken  `mapstructure:"kraken"`
	Trading Trading `mapstructure:"trading"`
	Ledger  Ledger  `mapstructure:"ledger"`
	Logger  Logger  `mapstructure:"logger"`
}

// Kraken holds the configuration for the Kraken API.
type Kraken struct {
	ApiKey         string  `mapstructure:"apiKey"`
	SecretKey      string  `mapstructure:"secretKey"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Trading holds the configuration for the purchase logic.
type Trading struct {
	Pair string `mapstructure:"pair"`
}

// Ledger holds the configuration for the accumulation ledger file.
type Ledger struct {
	Path string `mapstructure:"path"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables. The
// config file is optional; credentials normally come from the environment
// (or a .env file loaded before this is called).
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Credentials are read from the conventional variable names.
	_ = viper.BindEnv("kraken.apiKey", "KRAKEN_API_KEY")
	_ = viper.BindEnv("kraken.secretKey", "KRAKEN_SECRET_KEY")

	// Set default values
	viper.SetDefault("kraken.rate_limit", 1) // requests per second
	viper.SetDefault("kraken.rate_limit_burst", 1)
	viper.SetDefault("trading.pair", "ZECEUR")
	viper.SetDefault("ledger.path", "zcash_accumulation.json")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	err = viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil // run on env vars and defaults alone
	}

	err = viper.Unmarshal(&config)
	return
}

// Validate fails fast when required settings are absent.
func (c *Config) Validate() error {
	if c.Kraken.ApiKey == "" || c.Kraken.SecretKey == "" {
		return ErrMissingCredentials
	}
	return nil
}
