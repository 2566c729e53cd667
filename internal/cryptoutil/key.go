// Package cryptoutil resolves operator-supplied key material. Keys may
// be given as raw bytes or hex-encoded; hex is recognized by shape so a
// generated key can be pasted straight from `openssl rand -hex 32`.
package cryptoutil

import (
	"encoding/hex"
	"fmt"
)

// IsHexString reports whether s consists entirely of hexadecimal
// characters. The empty string counts as hex; length checks are the
// caller's concern.
func IsHexString(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// ResolveKey turns a key string into key material of at least minBytes
// bytes. A string of 2*minBytes or more even-length hex characters is
// decoded; anything else is taken as raw bytes. Too-short input is an
// error either way.
func ResolveKey(key string, minBytes int) ([]byte, error) {
	if len(key) >= 2*minBytes && len(key)%2 == 0 && IsHexString(key) {
		decoded, err := hex.DecodeString(key)
		if err == nil {
			return decoded, nil
		}
	}
	if len(key) < minBytes {
		return nil, fmt.Errorf("key must be at least %d raw bytes or %d hex characters (got %d)", minBytes, 2*minBytes, len(key))
	}
	return []byte(key), nil
}
