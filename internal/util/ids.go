package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewReqID generates a short identifier (16 hex characters) for
// correlating requests across logs and responses.
func NewReqID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
