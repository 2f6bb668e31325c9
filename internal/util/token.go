package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewSessionToken returns a 64-char hex string from 32 random bytes
// (256 bits of entropy). Panics only if the OS entropy source is broken.
func NewSessionToken() string {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf[:])
}
