package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchFormLimits(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 50, cfg.Video.MaxNameLength)
	assert.Equal(t, 200, cfg.Video.MaxDescriptionLength)
	assert.Equal(t, int64(100000000), cfg.Video.MaxSizeBytes)
	assert.Equal(t, float64(600), cfg.Video.MaxDurationSeconds)
	assert.False(t, cfg.Video.StorageEnabled)
	assert.Equal(t, 30*time.Minute, cfg.Video.SignedURLTTL)
	assert.Equal(t, 2, cfg.Ingest.Workers)
}

func TestFromViperFallsBackOnInvalidValues(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("VIDEO_MAX_NAME_LENGTH", -1)
	v.Set("VIDEO_MAX_SIZE", 0)
	v.Set("VIDEO_SIGNED_URL_TTL", "soon")
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg := fromViper(v)
	assert.Equal(t, 50, cfg.Video.MaxNameLength)
	assert.Equal(t, int64(100000000), cfg.Video.MaxSizeBytes)
	assert.Equal(t, 30*time.Minute, cfg.Video.SignedURLTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestLoadReadsEnvironment(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("PORT", "9090")
	t.Setenv("ENABLE_VIDEO_STORAGE", "true")
	t.Setenv("VIDEO_MAX_DESCRIPTION_LENGTH", "120")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.Video.StorageEnabled)
	assert.Equal(t, 120, cfg.Video.MaxDescriptionLength)
}
