package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCmd_EmbeddedDefaults(t *testing.T) {
	rootCmd.SetArgs([]string{"validate"})
	err := rootCmd.Execute()
	require.NoError(t, err)
}

func TestValidateCmd_AcceptsGoodOverride(t *testing.T) {
	dir := t.TempDir()
	patterns := filepath.Join(dir, "patterns.yaml")
	yaml := `recognizers:
  - name: crypto_wallet
    kind: account
    patterns:
      - name: btc_address
        regex: "\\b(bc1|[13])[a-zA-HJ-NP-Z0-9]{25,39}\\b"
        score: 0.8
`
	require.NoError(t, os.WriteFile(patterns, []byte(yaml), 0o600))

	rootCmd.SetArgs([]string{"validate", "--patterns", patterns})
	err := rootCmd.Execute()
	require.NoError(t, err)
}

func TestValidateCmd_RejectsBadRegex(t *testing.T) {
	dir := t.TempDir()
	patterns := filepath.Join(dir, "patterns.yaml")
	yaml := `recognizers:
  - name: broken
    kind: upi
    patterns:
      - name: broken
        regex: "["
        score: 0.5
`
	require.NoError(t, os.WriteFile(patterns, []byte(yaml), 0o600))

	rootCmd.SetArgs([]string{"validate", "--patterns", patterns})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidateCmd_MissingFile(t *testing.T) {
	rootCmd.SetArgs([]string{"validate", "--patterns", filepath.Join(t.TempDir(), "nope.yaml")})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}
