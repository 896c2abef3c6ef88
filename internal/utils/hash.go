package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func HashString(s string) string {
	hasher := sha256.New()
	hasher.Write([]byte(s))
	return hex.EncodeToString(hasher.Sum(nil))
}

// HashKey hashes parts joined by NUL, so ("ab", "c") and ("a", "bc") differ.
// It is used for cache keys that embed credentials.
func HashKey(parts ...string) string {
	return HashString(strings.Join(parts, "\x00"))
}
