// Package credential derives the symmetric key that protects a logship store.
//
// The key is computed from a stable per-installation seed, the store's own
// path, so a store can be reopened by the same installation without any
// secret being persisted next to it. This keeps on-disk compatibility with
// existing stores. It is not a secrecy guarantee: anyone who knows the path
// can derive the same key.
package credential

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the size in bytes of the AEAD key returned by StoreKey.
const KeySize = 32

var hkdfInfoStore = []byte("logship.store.v1")

// ErrEmptySeed is returned when no seed material is supplied.
var ErrEmptySeed = errors.New("credential: empty seed")

// SeedFromPath returns the seed for the store at path: its cleaned absolute
// form. Relative paths that cannot be resolved are used as given.
func SeedFromPath(path string) []byte {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return []byte(filepath.Clean(path))
}

// Derive hashes seed with SHA-512 and returns the hex encoding of the digest
// as key material. seed and the raw digest are zeroed before returning; the
// caller owns the returned slice and should Zero it when done.
func Derive(seed []byte) ([]byte, error) {
	defer Zero(seed)
	if len(seed) == 0 {
		return nil, ErrEmptySeed
	}

	digest := sha512.Sum512(seed)
	defer Zero(digest[:])

	material := make([]byte, hex.EncodedLen(len(digest)))
	hex.Encode(material, digest[:])
	return material, nil
}

// StoreKey expands key material into a KeySize-byte AEAD key with
// HKDF-SHA256. material is borrowed and not zeroed.
func StoreKey(material []byte) ([]byte, error) {
	if len(material) == 0 {
		return nil, ErrEmptySeed
	}
	reader := hkdf.New(sha256.New, material, nil, hkdfInfoStore)
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		Zero(key)
		return nil, fmt.Errorf("credential: hkdf: %w", err)
	}
	return key, nil
}

// ForPath runs the whole derivation for a store path and returns the AEAD
// key. Intermediate material is zeroed.
func ForPath(path string) ([]byte, error) {
	material, err := Derive(SeedFromPath(path))
	if err != nil {
		return nil, err
	}
	defer Zero(material)
	return StoreKey(material)
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	clear(b)
}
