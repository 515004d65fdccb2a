package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the size of a Solana public key in bytes.
const PublicKeyLength = 32

// PublicKey is a 32-byte ed25519 public key or program derived address.
type PublicKey [PublicKeyLength]byte

// ParsePublicKey decodes a base58 public key.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	decoded, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("decode base58 %q: %w", s, err)
	}
	if len(decoded) != PublicKeyLength {
		return pk, fmt.Errorf("public key %q: expected %d bytes, got %d", s, PublicKeyLength, len(decoded))
	}
	copy(pk[:], decoded)
	return pk, nil
}

// MustParsePublicKey is ParsePublicKey for constants. Panics on error.
func MustParsePublicKey(s string) PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// IsValidAddress reports whether s is a base58 encoded 32-byte key.
func IsValidAddress(s string) bool {
	_, err := ParsePublicKey(s)
	return err == nil
}

// String returns the base58 encoding.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Bytes returns a copy of the key bytes.
func (pk PublicKey) Bytes() []byte {
	return append([]byte(nil), pk[:]...)
}

// IsOnCurve reports whether b decodes to a point on the ed25519 curve.
// Program derived addresses are always off the curve.
func IsOnCurve(b []byte) bool {
	if len(b) != PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
