package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	t.Setenv(DefaultConfigEnv, path)
	return path
}

func TestLoad_MissingTokenFailsWithConfigMissing(t *testing.T) {
	writeConfig(t, `
[pretalx]
api_version = "v1"
`)
	_, err := Load()
	require.Error(t, err)
	var missing *apperrors.ConfigMissing
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "pretalx.api_token", missing.Field)
}

func TestLoad_AppliesDefaultsAndOverrides(t *testing.T) {
	writeConfig(t, `
[pretalx]
api_token = "secret"
base_url = "https://pretalx.example.org"

[ratelimit]
calls = 10
seconds = 2

[cache]
max_entries = 500
`)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Pretalx.APIToken)
	assert.Equal(t, "v1", cfg.Pretalx.APIVersion, "default api_version")
	assert.Equal(t, "https://pretalx.example.org", cfg.Pretalx.BaseURL)
	assert.Equal(t, "Pretalx-Version", cfg.Pretalx.VersionHeader, "default version header")

	assert.Equal(t, 10, cfg.RateLimit.Calls)
	assert.Equal(t, 2, cfg.RateLimit.Seconds)
	assert.Equal(t, 2, cfg.RateLimit.Burst, "unset burst keeps its default")

	assert.True(t, cfg.Cache.Prepopulate, "prepopulate defaults to true")
	assert.Equal(t, 500, cfg.Cache.MaxEntries)

	assert.Nil(t, cfg.Storage, "optional storage section absent by default")
	assert.Nil(t, cfg.Communication, "optional communication section absent by default")
}

func TestLoad_OptionalSectionsEnableOnPresence(t *testing.T) {
	writeConfig(t, `
[pretalx]
api_token = "secret"

[storage]
provider = "local"
local_path = "/tmp/artifacts"

[communication]
email_provider = "mailgun"
`)
	cfg, err := Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Storage)
	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.Equal(t, "/tmp/artifacts", cfg.Storage.LocalPath)

	require.NotNil(t, cfg.Communication)
	assert.Equal(t, "mailgun", cfg.Communication.EmailProvider)
}

func TestLoad_MissingFileStillAppliesDefaultsButFailsOnRequiredToken(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DefaultConfigEnv, filepath.Join(dir, "does-not-exist.toml"))

	_, err := Load()
	require.Error(t, err)
	var missing *apperrors.ConfigMissing
	require.ErrorAs(t, err, &missing)
}

func TestParseDuration_FallsBackOnInvalid(t *testing.T) {
	fallback := 5 * time.Minute
	assert.Equal(t, fallback, ParseDuration("", fallback))
	assert.Equal(t, fallback, ParseDuration("not-a-duration", fallback))
}
