package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	t.Run("MissingBoth", func(t *testing.T) {
		cfg := Config{}
		assert.ErrorIs(t, cfg.Validate(), ErrMissingCredentials)
	})

	t.Run("MissingSecret", func(t *testing.T) {
		cfg := Config{Kraken: Kraken{ApiKey: "key"}}
		assert.ErrorIs(t, cfg.Validate(), ErrMissingCredentials)
	})

	t.Run("EmptyStringsRejected", func(t *testing.T) {
		cfg := Config{Kraken: Kraken{ApiKey: "", SecretKey: ""}}
		assert.ErrorIs(t, cfg.Validate(), ErrMissingCredentials)
	})

	t.Run("BothPresent", func(t *testing.T) {
		cfg := Config{Kraken: Kraken{ApiKey: "key", SecretKey: "secret"}}
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("KRAKEN_API_KEY", "env_key")
	t.Setenv("KRAKEN_SECRET_KEY", "env_secret")

	cfg, err := LoadConfig(t.TempDir()) // no config file: defaults + env only

	assert.NoError(t, err)
	assert.Equal(t, "env_key", cfg.Kraken.ApiKey)
	assert.Equal(t, "env_secret", cfg.Kraken.SecretKey)
	assert.Equal(t, "ZECEUR", cfg.Trading.Pair)
	assert.Equal(t, "zcash_accumulation.json", cfg.Ledger.Path)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.NoError(t, cfg.Validate())
}
