package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorCmd_AllChecksPassWithDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HONEYCOMB_ARCHIVE_DATA_DIR", dir)

	var buf bytes.Buffer
	doctorCmd.SetOut(&buf)
	doctorCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"doctor"})

	err := rootCmd.Execute()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Data directory:")
	assert.Contains(t, out, dir)
	assert.Contains(t, out, "Intel patterns:")
	assert.Contains(t, out, "Safety rules:")
	assert.Contains(t, out, "LLM provider: local")
	assert.Contains(t, out, "Signing key:")
	assert.Contains(t, out, "Reports DB:")
	assert.Contains(t, out, "All checks passed.")
}

func TestDoctorCmd_FailsRemoteModeWithoutKey(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HONEYCOMB_ARCHIVE_DATA_DIR", dir)
	t.Setenv("HONEYCOMB_LLM_MODE", "remote")
	t.Setenv("HONEYCOMB_LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	var buf bytes.Buffer
	doctorCmd.SetOut(&buf)
	doctorCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"doctor"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preflight checks failed")
	assert.Contains(t, buf.String(), "no API key")
}

func TestDoctorCmd_WarnsOnDefaultSigningKey(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HONEYCOMB_ARCHIVE_DATA_DIR", dir)

	var buf bytes.Buffer
	doctorCmd.SetOut(&buf)
	doctorCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"doctor"})

	err := rootCmd.Execute()
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "using generated default")
}
