package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("GATEWAY_API_KEY", "")
	t.Setenv("CONFIG_SECRET", "test-secret")
	return dataDir
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t)
	t.Setenv("GATEWAY_BASE_URL", "http://gw.local/api/")
	t.Setenv("GATEWAY_TIMEOUT", "bogus")
	t.Setenv("UPLOAD_CONCURRENCY", "0")
	t.Setenv("FEATURE_CINEMATOGRAPHY", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://gw.local/api", cfg.GatewayBaseURL)
	assert.Equal(t, 120*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 1, cfg.UploadConcurrency)
	assert.Equal(t, 45, cfg.MaxRequestMB)
	assert.True(t, cfg.Features.AssetCategories)
	assert.False(t, cfg.Features.Cinematography)
	assert.DirExists(t, cfg.DataDir)
}

func TestLoadRejectsNonPositiveRequestCap(t *testing.T) {
	setEnv(t)
	t.Setenv("MAX_REQUEST_MB", "0")

	_, err := Load()
	assert.ErrorContains(t, err, "MAX_REQUEST_MB")
}

func TestInitConfigPersistsSealedKey(t *testing.T) {
	dataDir := setEnv(t)
	require.NoError(t, InitConfig(dataDir))

	require.NoError(t, UpdateGatewayConfig(GatewayConfig{BaseURL: "https://gw.example/api/", APIKey: "k-123"}))
	require.NoError(t, UpdateFeatures(Features{ScriptRefinement: true}))

	raw, err := os.ReadFile(filepath.Join(dataDir, "config.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "k-123")

	cfg := GetCurrentConfig()
	assert.Equal(t, "https://gw.example/api", cfg.Gateway.BaseURL)
	assert.Equal(t, "k-123", cfg.Gateway.APIKey)
	assert.Equal(t, 120*time.Second, cfg.Gateway.Timeout)

	// a fresh start picks the saved settings back up
	require.NoError(t, InitConfig(dataDir))
	cfg = GetCurrentConfig()
	assert.Equal(t, "https://gw.example/api", cfg.Gateway.BaseURL)
	assert.Equal(t, "k-123", cfg.Gateway.APIKey)
	assert.Equal(t, Features{ScriptRefinement: true}, cfg.Features)
}

func TestUpdateGatewayConfigKeepsKey(t *testing.T) {
	dataDir := setEnv(t)
	t.Setenv("GATEWAY_API_KEY", "env-key")
	require.NoError(t, InitConfig(dataDir))

	require.NoError(t, UpdateGatewayConfig(GatewayConfig{BaseURL: "http://other"}))
	assert.Equal(t, "env-key", GetCurrentConfig().Gateway.APIKey)

	assert.Error(t, UpdateGatewayConfig(GatewayConfig{BaseURL: "/"}))
}

func TestGetCurrentConfigReturnsCopy(t *testing.T) {
	dataDir := setEnv(t)
	require.NoError(t, InitConfig(dataDir))

	cfg := GetCurrentConfig()
	cfg.CORSOrigins[0] = "mutated"
	cfg.Port = "1"

	fresh := GetCurrentConfig()
	assert.NotEqual(t, "mutated", fresh.CORSOrigins[0])
	assert.NotEqual(t, "1", fresh.Port)
}
