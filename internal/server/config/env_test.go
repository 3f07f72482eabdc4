package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func Test_parseEnv(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	err := parseEnv(cfg, lookupFrom(map[string]string{
		"HASKER_HTTP_ADDR":                      ":7000",
		"HASKER_ACCESS_TOKEN_VALIDITY_DURATION": "30s",
		"HASKER_SMTP_PORT":                      "587",
		"HASKER_AVATAR_MAX_SIZE":                "2048",
		"HASKER_AVATAR_CONTENT_TYPES":           "image/png, image/gif,",
		"HASKER_LOGIN_RATE_LIMIT":               "0.5",
		"HASKER_LOG_LEVEL":                      "",
		"OTHER_HTTP_ADDR":                       ":1",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, int64(2048), cfg.AvatarMaxSize)
	assert.Equal(t, []string{"image/png", "image/gif"}, cfg.AvatarContentTypes)
	assert.Equal(t, 0.5, cfg.LoginRateLimit)
	assert.Equal(t, "info", cfg.LogLevel)
}

func Test_parseEnv_InvalidNumber(t *testing.T) {
	cfg := &Config{}
	err := parseEnv(cfg, lookupFrom(map[string]string{"HASKER_MAX_TAGS": "three"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HASKER_MAX_TAGS")
}

func Test_loadDotEnv(t *testing.T) {
	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HASKER_TEST_DOTENV_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("HASKER_TEST_DOTENV_VALUE") })

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("HASKER_TEST_DOTENV_VALUE"))
}
