package store

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/chacha20poly1305"
)

// sealVersion is the first byte of every sealed column value. It is part of
// the AAD, so changing it on disk breaks authentication.
const sealVersion byte = 0x01

// sealOverhead is version + XChaCha20 nonce + Poly1305 tag + codec byte.
const sealOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead + 1

// Values at least this long are zstd-compressed before sealing.
const compressThreshold = 512

// Plaintext codec prefixes.
const (
	codecRaw  byte = 0x00
	codecZstd byte = 0x01
)

var errSealedTooShort = errors.New("sealed value too short")

// sealer encrypts and decrypts individual column values. Each value is bound
// to its column name through the AAD so values cannot be swapped between
// columns.
type sealer struct {
	aead cipher.AEAD
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

func newSealer(key []byte) (*sealer, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &sealer{aead: aead, enc: enc, dec: dec}, nil
}

// seal returns [version][nonce][ciphertext+tag] for value in column.
func (s *sealer) seal(column, value string) ([]byte, error) {
	plain := make([]byte, 0, len(value)+1)
	if len(value) >= compressThreshold {
		plain = append(plain, codecZstd)
		plain = s.enc.EncodeAll([]byte(value), plain)
	} else {
		plain = append(plain, codecRaw)
		plain = append(plain, value...)
	}

	out := make([]byte, 1+chacha20poly1305.NonceSizeX, 1+chacha20poly1305.NonceSizeX+len(plain)+s.aead.Overhead())
	out[0] = sealVersion
	nonce := out[1:]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.aead.Seal(out, nonce, plain, aad(sealVersion, column)), nil
}

// open reverses seal. A wrong key, a tampered value or a value moved from
// another column all fail authentication.
func (s *sealer) open(column string, blob []byte) (string, error) {
	if len(blob) < sealOverhead {
		return "", errSealedTooShort
	}
	if blob[0] != sealVersion {
		return "", fmt.Errorf("sealed value version %d not supported", blob[0])
	}
	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	plain, err := s.aead.Open(nil, nonce, blob[1+chacha20poly1305.NonceSizeX:], aad(blob[0], column))
	if err != nil {
		return "", fmt.Errorf("open %s: %w", column, err)
	}

	switch plain[0] {
	case codecRaw:
		return string(plain[1:]), nil
	case codecZstd:
		raw, err := s.dec.DecodeAll(plain[1:], nil)
		if err != nil {
			return "", fmt.Errorf("decompress %s: %w", column, err)
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("unknown codec %d in %s", plain[0], column)
	}
}

// close stops the zstd codec goroutines. The sealer is unusable afterwards.
func (s *sealer) close() {
	s.enc.Close()
	s.dec.Close()
}

func aad(version byte, column string) []byte {
	b := make([]byte, 1+len(column))
	b[0] = version
	copy(b[1:], column)
	return b
}
