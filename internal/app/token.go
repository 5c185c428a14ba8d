package app

import (
	"crypto/rand"
	"encoding/hex"
)

// newSessionToken returns 64 hex characters of entropy. The token is the
// only credential a disconnected player holds, so it must not be guessable
// from player id or timestamps.
func newSessionToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(b)
}
