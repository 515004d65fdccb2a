// Package idhash computes deterministic identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSignerHash binds a release schedule to its creator.
// Formula: SHA256(creator|nonce)
// Returns hex-encoded hash (64 characters).
func ComputeSignerHash(creator string, nonce uint64) string {
	data := fmt.Sprintf("%s|%d", creator, nonce)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
