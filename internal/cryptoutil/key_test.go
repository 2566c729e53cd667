package cryptoutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHexString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"empty", "", true},
		{"lowercase hex", "deadbeef", true},
		{"uppercase hex", "DEADBEEF", true},
		{"mixed case", "DeAdBeEf", true},
		{"digits only", "0123456789", true},
		{"contains g", "0123abcg", false},
		{"space", "ab cd", false},
		{"punctuation", "abcd!!", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHexString(tt.in))
		})
	}
}

func TestResolveKey_HexDecodes(t *testing.T) {
	got, err := ResolveKey(strings.Repeat("ab", 32), 32)
	require.NoError(t, err)
	assert.Equal(t, []byte(strings.Repeat("\xab", 32)), got)
}

func TestResolveKey_RawPassesThrough(t *testing.T) {
	raw := "this-raw-signing-key-is-well-over-32-bytes-long"
	got, err := ResolveKey(raw, 32)
	require.NoError(t, err)
	assert.Equal(t, []byte(raw), got)
}

func TestResolveKey_ExactRawLength(t *testing.T) {
	// 32 chars of hex alphabet, below the 64-char hex threshold: raw.
	key := "abcdefabcdefabcdefabcdefabcdefab"
	got, err := ResolveKey(key, 32)
	require.NoError(t, err)
	assert.Equal(t, []byte(key), got)
}

func TestResolveKey_OddLengthHexIsRaw(t *testing.T) {
	key := strings.Repeat("a", 65)
	got, err := ResolveKey(key, 32)
	require.NoError(t, err)
	assert.Equal(t, []byte(key), got)
}

func TestResolveKey_TooShort(t *testing.T) {
	_, err := ResolveKey("short", 32)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 raw bytes or 64 hex characters")
}
