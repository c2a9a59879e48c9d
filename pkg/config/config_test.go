package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load("test-service")
	require.NoError(t, err)

	assert.Equal(t, "test-service", cfg.Server.ServiceName)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "cardshield", cfg.Database.DBName)
	assert.Equal(t, "env", cfg.Crypto.KeystoreProvider)
	assert.Equal(t, "medium", cfg.Fraud.Sensitivity)
	assert.True(t, cfg.Fraud.Enabled)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window())
}

func TestLoadFraudSensitivity(t *testing.T) {
	tests := []struct {
		name        string
		sensitivity string
		wantErr     bool
	}{
		{name: "low is valid", sensitivity: "low"},
		{name: "medium is valid", sensitivity: "medium"},
		{name: "high is valid", sensitivity: "high"},
		{name: "unknown is rejected", sensitivity: "paranoid", wantErr: true},
		{name: "empty falls back to default", sensitivity: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.sensitivity != "" {
				os.Setenv("FRAUD_SENSITIVITY", tt.sensitivity)
			}

			cfg, err := Load("test-service")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.sensitivity != "" {
				assert.Equal(t, tt.sensitivity, cfg.Fraud.Sensitivity)
			}
		})
	}
}

func TestLoadEnabledRules(t *testing.T) {
	os.Clearenv()
	os.Setenv("FRAUD_ENABLED_RULES", "velocity, geolocation ,card_pattern")

	cfg, err := Load("test-service")
	require.NoError(t, err)

	assert.Equal(t, []string{"velocity", "geolocation", "card_pattern"}, cfg.Fraud.EnabledRules)
}

func TestLoadRateLimitOverrides(t *testing.T) {
	t.Run("valid JSON overrides", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("RATE_LIMIT_ENDPOINTS", `{"POST:/api/v1/risk/analyze": {"authenticated_limit": 300, "window_seconds": 30}}`)

		cfg, err := Load("test-service")
		require.NoError(t, err)

		override, ok := cfg.RateLimit.EndpointOverrides["POST:/api/v1/risk/analyze"]
		require.True(t, ok)
		assert.Equal(t, 300, override.AuthenticatedLimit)
		assert.Equal(t, 30, override.WindowSeconds)
	})

	t.Run("invalid JSON is rejected", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("RATE_LIMIT_ENDPOINTS", `{not json}`)

		_, err := Load("test-service")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RATE_LIMIT_ENDPOINTS")
	})
}

func TestCircuitBreakerSettingsFor(t *testing.T) {
	cfg := CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		TimeoutSeconds:   30,
		IntervalSeconds:  60,
		ServiceOverrides: map[string]CircuitBreakerSettings{
			"twilio": {FailureThreshold: 3, TimeoutSeconds: 10},
		},
	}

	t.Run("returns defaults for unknown service", func(t *testing.T) {
		settings := cfg.SettingsFor("keystore")
		assert.Equal(t, 5, settings.FailureThreshold)
		assert.Equal(t, 30, settings.TimeoutSeconds)
	})

	t.Run("applies partial overrides", func(t *testing.T) {
		settings := cfg.SettingsFor("twilio")
		assert.Equal(t, 3, settings.FailureThreshold)
		assert.Equal(t, 10, settings.TimeoutSeconds)
		assert.Equal(t, 1, settings.SuccessThreshold)
		assert.Equal(t, 60, settings.IntervalSeconds)
	})
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     "5433",
		User:     "shield",
		Password: "secret",
		DBName:   "cardshield",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=shield password=secret dbname=cardshield sslmode=require",
		cfg.DSN(),
	)
}
