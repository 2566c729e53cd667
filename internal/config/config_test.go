package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	t.Setenv("HONEYCOMB_ARCHIVE_SIGNING_KEY", "")
	t.Setenv("HONEYCOMB_ARCHIVE_DATA_DIR", "")
	t.Setenv("HONEYCOMB_LLM_MODE", "")
	t.Setenv("HONEYCOMB_LLM_BASE_URL", "")
	t.Setenv("HONEYCOMB_LLM_API_KEY", "")
	t.Setenv("HONEYCOMB_CALLBACK_URL", "")
	t.Setenv("HONEYCOMB_DETECT_THRESHOLD", "")
	t.Setenv("HONEYCOMB_SESSION_MAX_AGE", "")
	t.Setenv("OPENAI_API_KEY", "")
	viper.Reset()
	viper.SetEnvPrefix("HONEYCOMB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.SetDefault(KeyServerPort, DefaultServerPort)
	viper.SetDefault(KeyRateGlobalRPM, DefaultRateGlobalRPM)
	viper.SetDefault(KeyRatePerCallerRPM, DefaultRatePerCallerRPM)
	viper.SetDefault(KeyLLMMode, DefaultLLMMode)
	viper.SetDefault(KeyLLMModel, DefaultLLMModel)
	viper.SetDefault(KeyLLMMaxTokens, DefaultLLMMaxTokens)
	viper.SetDefault(KeyLLMTemperature, DefaultLLMTemperature)
	viper.SetDefault(KeyLLMTimeout, DefaultLLMTimeout)
	viper.SetDefault(KeyAgentPersona, DefaultPersona)
	viper.SetDefault(KeyAgentMemoryTurns, DefaultMemoryTurns)
	viper.SetDefault(KeyAgentMinTurns, DefaultMinTurns)
	viper.SetDefault(KeyAgentMaxTurns, DefaultMaxTurns)
	viper.SetDefault(KeyAgentTermination, DefaultTerminationKeywords)
	viper.SetDefault(KeyCallbackTimeout, DefaultCallbackTimeout)
	viper.SetDefault(KeySessionMaxAge, DefaultSessionMaxAge)
	viper.SetDefault(KeySessionSweepSchedule, DefaultSweepSchedule)
	viper.SetDefault(KeyDetectThreshold, DefaultDetectThreshold)
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultServerPort, cfg.ServerPort)
	assert.Equal(t, LLMModeLocal, cfg.LLMMode)
	assert.Equal(t, DefaultLocalBaseURL, cfg.LLMBaseURL)
	assert.Equal(t, DefaultLLMMaxTokens, cfg.LLMMaxTokens)
	assert.Equal(t, DefaultLLMTemperature, cfg.LLMTemperature)
	assert.Equal(t, DefaultLLMTimeout, cfg.LLMTimeout)
	assert.Equal(t, DefaultPersona, cfg.Persona)
	assert.Equal(t, DefaultMemoryTurns, cfg.MemoryTurns)
	assert.Equal(t, DefaultMinTurns, cfg.MinTurns)
	assert.Equal(t, DefaultMaxTurns, cfg.MaxTurns)
	assert.Equal(t, DefaultTerminationKeywords, cfg.TerminationKeywords)
	assert.Equal(t, DefaultCallbackTimeout, cfg.CallbackTimeout)
	assert.Equal(t, DefaultSessionMaxAge, cfg.SessionMaxAge)
	assert.Equal(t, DefaultSweepSchedule, cfg.SweepSchedule)
	assert.Equal(t, DefaultDetectThreshold, cfg.DetectThreshold)
	assert.True(t, cfg.UsingDefaultSigningKey(), "should report default key when none is set")
	assert.True(t, len(cfg.SigningKey) >= 64, "derived key is hex of 32 bytes")
}

func TestLoad_ExplicitSigningKey(t *testing.T) {
	resetViper(t)
	t.Setenv("HONEYCOMB_ARCHIVE_SIGNING_KEY", "my-signing-key-at-least-32-chars!")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "my-signing-key-at-least-32-chars!", cfg.SigningKey)
	assert.False(t, cfg.UsingDefaultSigningKey())
}

func TestLoad_InvalidSigningKeyLength(t *testing.T) {
	resetViper(t)
	t.Setenv("HONEYCOMB_ARCHIVE_SIGNING_KEY", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive.signing_key must be at least 32 bytes")
}

func TestLoad_InvalidLLMMode(t *testing.T) {
	resetViper(t)
	t.Setenv("HONEYCOMB_LLM_MODE", "hybrid")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.mode")
}

func TestLoad_RemoteModeKeepsBaseURLEmpty(t *testing.T) {
	resetViper(t)
	t.Setenv("HONEYCOMB_LLM_MODE", "remote")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, LLMModeRemote, cfg.LLMMode)
	assert.Empty(t, cfg.LLMBaseURL, "remote mode uses the client default endpoint")
}

func TestLoad_OpenAIKeyFallback(t *testing.T) {
	resetViper(t)
	t.Setenv("OPENAI_API_KEY", "sk-test-fallback")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-test-fallback", cfg.LLMAPIKey)
}

func TestLoad_ExplicitLLMKeyWinsOverFallback(t *testing.T) {
	resetViper(t)
	t.Setenv("HONEYCOMB_LLM_API_KEY", "hc-key")
	t.Setenv("OPENAI_API_KEY", "sk-ignored")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "hc-key", cfg.LLMAPIKey)
}

func TestLoad_CustomDataDir(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	t.Setenv("HONEYCOMB_ARCHIVE_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
}

func TestLoad_InvalidDetectThreshold(t *testing.T) {
	resetViper(t)
	t.Setenv("HONEYCOMB_DETECT_THRESHOLD", "1.5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detect.threshold")
}

func TestConfig_ReportsDBPath(t *testing.T) {
	cfg := &Config{DataDir: "/data/honeycomb"}
	assert.Equal(t, "/data/honeycomb/reports.db", cfg.ReportsDBPath())
}

func TestConfig_EnsureDataDir(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{DataDir: dir + "/nested/deep"}
	require.NoError(t, cfg.EnsureDataDir())
}

func TestDeriveDefaultKey_Deterministic(t *testing.T) {
	k1 := deriveDefaultKey("/home/user/.honeycomb", "test-salt")
	k2 := deriveDefaultKey("/home/user/.honeycomb", "test-salt")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64, "hex encoding of a 32-byte digest")
}

func TestDeriveDefaultKey_DifferentPaths(t *testing.T) {
	k1 := deriveDefaultKey("/home/alice/.honeycomb", "report-signing")
	k2 := deriveDefaultKey("/home/bob/.honeycomb", "report-signing")
	assert.NotEqual(t, k1, k2)
}

func TestValidateSigningKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"32 raw bytes", "abcdefghijklmnopqrstuvwxyz012345", false},
		{"longer raw key", "this-raw-signing-key-is-well-over-32-bytes-long", false},
		{"64 hex chars", strings.Repeat("ab", 32), false},
		{"too short", "short", true},
		{"31 bytes", strings.Repeat("x", 31), true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSigningKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_SessionMaxAgeDuration(t *testing.T) {
	resetViper(t)
	t.Setenv("HONEYCOMB_SESSION_MAX_AGE", "30m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.SessionMaxAge)
}
