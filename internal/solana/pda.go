package solana

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Seed limits enforced by the runtime.
const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

// PDA marker appended to every derivation hash input.
const pdaMarker = "ProgramDerivedAddress"

// Seed prefixes of the accounts this service addresses.
const (
	SeedRegistry      = "trd"
	SeedWalletBinding = "saa"
	SeedTokenlock     = "tokenlock"
	SeedEscrow        = "escrow"
)

var (
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")
	ErrNoViableBump          = errors.New("unable to find a viable program address bump seed")
	ErrOnCurve               = errors.New("derived address is on the curve")
)

// CreateProgramAddress hashes seeds with programID. Fails if the result is on the curve.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return PublicKey{}, ErrMaxSeedLengthExceeded
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return PublicKey{}, ErrMaxSeedLengthExceeded
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var pk PublicKey
	copy(pk[:], h.Sum(nil))
	if IsOnCurve(pk[:]) {
		return PublicKey{}, ErrOnCurve
	}
	return pk, nil
}

// FindProgramAddress searches bump seeds from 255 down and returns the first
// off-curve address together with its bump.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump > 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		pk, err := CreateProgramAddress(withBump, programID)
		if errors.Is(err, ErrMaxSeedLengthExceeded) {
			return PublicKey{}, 0, err
		}
		if err == nil {
			return pk, uint8(bump), nil
		}
	}
	return PublicKey{}, 0, ErrNoViableBump
}

// Deriver derives the addresses of one program and caches the results.
type Deriver struct {
	programID PublicKey
	cache     *lru.Cache[string, PublicKey]
}

// NewDeriver creates a deriver for programID keeping up to cacheSize addresses.
func NewDeriver(programID PublicKey, cacheSize int) (*Deriver, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[string, PublicKey](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create pda cache: %w", err)
	}
	return &Deriver{programID: programID, cache: cache}, nil
}

// ProgramID returns the program the deriver derives for.
func (d *Deriver) ProgramID() PublicKey {
	return d.programID
}

// Derive returns the program address of seeds.
func (d *Deriver) Derive(seeds ...[]byte) (PublicKey, error) {
	key := cacheKey(seeds)
	if pk, ok := d.cache.Get(key); ok {
		return pk, nil
	}
	pk, _, err := FindProgramAddress(seeds, d.programID)
	if err != nil {
		return PublicKey{}, err
	}
	d.cache.Add(key, pk)
	return pk, nil
}

// RegistryAddress derives ["trd", mint].
func (d *Deriver) RegistryAddress(mint string) (string, error) {
	m, err := ParsePublicKey(mint)
	if err != nil {
		return "", err
	}
	pk, err := d.Derive([]byte(SeedRegistry), m[:])
	if err != nil {
		return "", err
	}
	return pk.String(), nil
}

// WalletBindingAddress derives ["saa", mint, wallet].
func (d *Deriver) WalletBindingAddress(mint, wallet string) (string, error) {
	m, err := ParsePublicKey(mint)
	if err != nil {
		return "", err
	}
	w, err := ParsePublicKey(wallet)
	if err != nil {
		return "", err
	}
	pk, err := d.Derive([]byte(SeedWalletBinding), m[:], w[:])
	if err != nil {
		return "", err
	}
	return pk.String(), nil
}

// DeploymentAddress derives ["tokenlock", mint, nonce(le u64)].
func (d *Deriver) DeploymentAddress(mint string, nonce uint64) (string, error) {
	m, err := ParsePublicKey(mint)
	if err != nil {
		return "", err
	}
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], nonce)
	pk, err := d.Derive([]byte(SeedTokenlock), m[:], n[:])
	if err != nil {
		return "", err
	}
	return pk.String(), nil
}

// EscrowAddress derives ["escrow", deployment].
func (d *Deriver) EscrowAddress(deployment string) (string, error) {
	dep, err := ParsePublicKey(deployment)
	if err != nil {
		return "", err
	}
	pk, err := d.Derive([]byte(SeedEscrow), dep[:])
	if err != nil {
		return "", err
	}
	return pk.String(), nil
}

func cacheKey(seeds [][]byte) string {
	var b strings.Builder
	for _, s := range seeds {
		b.WriteByte(byte(len(s)))
		b.Write(s)
	}
	return b.String()
}
