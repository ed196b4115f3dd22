package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// TokenBytes is the entropy of an auth token; its hex form is twice as long.
const TokenBytes = 32

// RandomToken returns a new opaque auth token of 2*TokenBytes hex
// characters read from the system CSPRNG.
func RandomToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
