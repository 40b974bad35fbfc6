// Package apikey implements the opaque 128-bit client credentials. Raw keys
// travel to clients as 32 hex chars; only the SHA-256 hash (64 hex chars) is
// ever persisted.
package apikey

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/playgambit/backend/internal/errs"
)

// Key is a raw api key (a UUIDv4). Not safe to store.
type Key [16]byte

// New generates a fresh random key.
func New() Key {
	return Key(uuid.New())
}

// Parse reads the 32-hex-char display form of a key.
func Parse(s string) (Key, error) {
	if len(s) != 32 {
		return Key{}, errs.ErrMalformedAPIKey
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, errs.ErrMalformedAPIKey
	}
	var k Key
	copy(k[:], b)
	return k, nil
}

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Hash returns the SHA-256 of the raw key, safe to persist and compare.
func (k Key) Hash() Hashed {
	return Hashed(sha256.Sum256(k[:]))
}

// Hashed is a hashed api key, stored as 64 lowercase hex chars.
type Hashed [32]byte

// ParseHashed reads the 64-char hex form. Anything that is not exactly 64
// lowercase hex digits is rejected.
func ParseHashed(s string) (Hashed, error) {
	if len(s) != 64 {
		return Hashed{}, errs.ErrMalformedAPIKey
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return Hashed{}, errs.ErrMalformedAPIKey
		}
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hashed{}, errs.ErrMalformedAPIKey
	}
	var h Hashed
	copy(h[:], b)
	return h, nil
}

func (h Hashed) String() string {
	return hex.EncodeToString(h[:])
}
