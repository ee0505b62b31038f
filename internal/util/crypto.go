package util

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

const streamKeyBytes = 16

// GenerateStreamKey returns a random hex stream key. The key doubles as
// the publish credential and the HLS filename prefix, so it stays
// filesystem-safe.
func GenerateStreamKey() (string, error) {
	bytes := make([]byte, streamKeyBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// MaskKey shortens a stream key for log output.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "-****"
}
