package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_MODEL", "")
	os.Unsetenv("GEMINI_MODEL")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	require.Equal(t, "", cfg.Gemini.APIKey)
	require.Equal(t, "gemma-3-1b-it", cfg.Gemini.Model)
	require.Equal(t, "https://generativelanguage.googleapis.com", cfg.Gemini.BaseURL)
	require.Equal(t, "Korean", cfg.Advice.Language)
	require.Equal(t, ":8000", cfg.HTTPAddr)
	require.Equal(t, time.Duration(0), cfg.RequestTimeout)
}

func TestLoadFromEnvFileDoesNotOverrideProcessEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "GEMINI_API_KEY=from-file\nADVICE_TONE=calm\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("GEMINI_API_KEY", "from-process")
	t.Setenv("ADVICE_TONE", "")
	os.Unsetenv("ADVICE_TONE")
	t.Cleanup(func() { os.Unsetenv("ADVICE_TONE") })

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, "from-process", cfg.Gemini.APIKey)
	require.Equal(t, "calm", cfg.Advice.Tone)
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	t.Setenv("HTTP_CLIENT_TIMEOUT", "soon")

	_, err := LoadFrom("")
	require.Error(t, err)
}
