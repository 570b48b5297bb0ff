package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bcnelson/fulcrum-data-manager/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "DB_DRIVER", "DB_DSN", "LOG_LEVEL", "ASPECT_VALUES_MODE", "METRICS_ENABLED"} {
		unsetenv(t, key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "data/fulcrum.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.OIDC.Enabled)

	schema, err := cfg.Aspects.Schema()
	require.NoError(t, err)
	assert.Equal(t, validation.RangeSchema, schema)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://localhost/fulcrum")
	t.Setenv("ASPECT_VALUES_MODE", "exact")
	t.Setenv("API_TOKEN", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "secret", cfg.API.Token)

	schema, err := cfg.Aspects.Schema()
	require.NoError(t, err)
	assert.Equal(t, validation.ExactSchema, schema)
}

func TestLoadEnvFile(t *testing.T) {
	unsetenv(t, "DB_DSN")
	unsetenv(t, "LOG_FORMAT")
	t.Setenv("LOG_LEVEL", "warn")

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DB_DSN=file.db\nLOG_FORMAT=console\nLOG_LEVEL=debug\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file.db", cfg.Database.DSN)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "warn", cfg.Log.Level, "process environment wins over the file")
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "data/fulcrum.db"},
		Log:      LogConfig{Level: "info", Format: "json"},
		Aspects:  AspectConfig{ValuesMode: "range"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "modernc driver", mutate: func(c *Config) { c.Database.Driver = "sqlite" }},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: "DB_DRIVER",
		},
		{
			name:    "empty dsn",
			mutate:  func(c *Config) { c.Database.DSN = "" },
			wantErr: "DB_DSN",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "LOG_FORMAT",
		},
		{
			name:    "unknown aspect mode",
			mutate:  func(c *Config) { c.Aspects.ValuesMode = "fuzzy" },
			wantErr: "aspect values mode",
		},
		{
			name: "oidc without issuer",
			mutate: func(c *Config) {
				c.OIDC.Enabled = true
			},
			wantErr: "OIDC_ISSUER_URL",
		},
		{
			name: "oidc with short secret",
			mutate: func(c *Config) {
				c.OIDC = OIDCConfig{
					Enabled:       true,
					IssuerURL:     "https://issuer.example.com",
					ClientID:      "fulcrum",
					ClientSecret:  "shh",
					RedirectURL:   "http://localhost:8080/auth/callback",
					SessionSecret: "too-short",
				}
			},
			wantErr: "32 bytes",
		},
		{
			name: "oidc complete",
			mutate: func(c *Config) {
				c.OIDC = OIDCConfig{
					Enabled:       true,
					IssuerURL:     "https://issuer.example.com",
					ClientID:      "fulcrum",
					ClientSecret:  "shh",
					RedirectURL:   "http://localhost:8080/auth/callback",
					SessionSecret: "0123456789abcdef0123456789abcdef",
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSessionSecretHex(t *testing.T) {
	c := OIDCConfig{SessionSecret: "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"}
	secret, err := c.GetSessionSecretBytes()
	require.NoError(t, err)
	assert.Len(t, secret, 32)
	assert.Equal(t, byte(0x1f), secret[31])
}

func TestOIDCLists(t *testing.T) {
	c := OIDCConfig{Scopes: "openid, email", AllowedDomains: "example.com, example.org"}
	assert.Equal(t, []string{"openid", "email"}, c.GetScopes())
	assert.Equal(t, []string{"example.com", "example.org"}, c.GetAllowedDomains())

	empty := OIDCConfig{}
	assert.Equal(t, []string{"openid", "email", "profile"}, empty.GetScopes())
	assert.Nil(t, empty.GetAllowedDomains())
}
