package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "babylog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		env         map[string]string
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "success: file overrides defaults",
			body: `
auth:
  secret: s3cret
ai:
  complex_model: gemini-2.5-pro
  retry_base_delay: 250ms
rate_limit:
  chat:
    limit: 5
    period: 30s
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "s3cret", cfg.Auth.Secret)
				assert.Equal(t, "gemini-2.5-pro", cfg.AI.ComplexModel)
				assert.Equal(t, "gemini-2.5-flash-lite", cfg.AI.SimpleModel)
				assert.Equal(t, 250*time.Millisecond, cfg.AI.RetryBaseDelay)
				assert.Equal(t, Window{Limit: 5, Period: 30 * time.Second}, cfg.RateLimit.Chat)
				assert.Equal(t, ":8080", cfg.Server.Addr)
			},
		},
		{
			name: "success: env wins over file",
			body: "auth:\n  secret: from-file\n",
			env: map[string]string{
				"BABYLOG_AUTH_SECRET": "from-env",
				"BABYLOG_REDIS_DB":    "3",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "from-env", cfg.Auth.Secret)
				assert.Equal(t, 3, cfg.Redis.DB)
			},
		},
		{
			name:        "failure: missing secret",
			body:        "server:\n  addr: :9090\n",
			expectError: true,
		},
		{
			name:        "failure: bad integer env",
			body:        "auth:\n  secret: x\n",
			env:         map[string]string{"BABYLOG_SMTP_PORT": "smtp"},
			expectError: true,
		},
		{
			name:        "failure: unknown timezone",
			body:        "auth:\n  secret: x\ntimezone: Mars/Olympus\n",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(writeConfig(t, tt.body))
			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
