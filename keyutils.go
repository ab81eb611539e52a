// keyutils.go: Key length policy, generation, import/export and zeroization.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	goerrors "github.com/agilira/go-errors"
)

// Key sizes in bytes for the two supported AES key classes.
const (
	// KeySize128 is the byte length of a 128-bit key.
	KeySize128 = 16

	// KeySize256 is the byte length of a 256-bit key.
	KeySize256 = 32
)

// ClassifyKey classifies raw key material by bit length.
//
// It returns 128 or 256 for keys of 16 or 32 bytes respectively, and fails
// with ErrInvalidKeyLength for any other length. The function is pure and
// never inspects the key bytes themselves.
//
// Example:
//
//	bits, err := crypto.ClassifyKey(key)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("key strength:", bits) // 128 or 256
func ClassifyKey(key []byte) (int, error) {
	switch len(key) {
	case KeySize128:
		return 128, nil
	case KeySize256:
		return 256, nil
	default:
		richErr := goerrors.New(ErrCodeInvalidKeyLength, fmt.Sprintf("key must be %d or %d bytes, got %d", KeySize128, KeySize256, len(key)))
		return 0, fmt.Errorf("%w: %w", ErrInvalidKeyLength, richErr)
	}
}

// ValidateKeyLength checks a key against an explicit allow-list of bit
// lengths. With no allow-list it accepts both 128 and 256.
//
// Example:
//
//	// Only 256-bit keys are acceptable for wrapping here.
//	if err := crypto.ValidateKeyLength(key, 256); err != nil {
//		return err
//	}
func ValidateKeyLength(key []byte, allowedBits ...int) error {
	bits, err := ClassifyKey(key)
	if err != nil {
		return err
	}
	if len(allowedBits) == 0 {
		return nil
	}
	for _, allowed := range allowedBits {
		if bits == allowed {
			return nil
		}
	}
	richErr := goerrors.New(ErrCodeInvalidKeyLength, fmt.Sprintf("%d-bit key not in allowed set %v", bits, allowedBits))
	return fmt.Errorf("%w: %w", ErrInvalidKeyLength, richErr)
}

// GenerateKey256 generates a cryptographically secure random 256-bit key.
//
// This is the key class all new data should be encrypted under; 128-bit
// keys exist only for legacy material and are expected to be rotated.
//
// Example:
//
//	key, err := crypto.GenerateKey256()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(len(key)) // 32
func GenerateKey256() ([]byte, error) {
	return randomBytes(KeySize256, "KEY_GEN_ERROR", "failed to generate 256-bit key")
}

// GenerateKey128 generates a cryptographically secure random 128-bit key.
//
// New deployments should prefer GenerateKey256; this exists for
// interoperability with systems that still provision 128-bit keys.
func GenerateKey128() ([]byte, error) {
	return randomBytes(KeySize128, "KEY_GEN_ERROR", "failed to generate 128-bit key")
}

// GenerateIV generates a cryptographically secure random 16-byte IV
// suitable for AES-CBC.
func GenerateIV() ([]byte, error) {
	return randomBytes(IVSize, "IV_GEN_ERROR", "failed to generate IV")
}

func randomBytes(n int, code, msg string) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, goerrors.Wrap(err, goerrors.ErrorCode(code), msg)
	}
	return b, nil
}

// KeyToBase64 encodes a key as a base64 string for text-based storage or
// transport. The inverse is KeyFromBase64.
func KeyToBase64(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// KeyFromBase64 decodes a base64 string to a key and re-validates its
// length. Decoding succeeds only for well-formed base64 of exactly 16 or
// 32 bytes, so a truncated or corrupted encoding can never round-trip
// into a structurally valid key.
//
// Example:
//
//	key, err := crypto.KeyFromBase64(stored)
//	if err != nil {
//		log.Fatal(err)
//	}
func KeyFromBase64(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, goerrors.Wrap(err, "BASE64_DECODE_ERROR", "failed to decode base64 key")
	}
	if _, err := ClassifyKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// KeyToHex encodes a key as a lowercase hexadecimal string.
func KeyToHex(key []byte) string {
	return hex.EncodeToString(key)
}

// KeyFromHex decodes a hexadecimal string to a key and re-validates its
// length, mirroring KeyFromBase64.
func KeyFromHex(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, goerrors.Wrap(err, "HEX_DECODE_ERROR", "failed to decode hex key")
	}
	if _, err := ClassifyKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Zeroize securely wipes a byte slice in place.
//
// Call this on key material and recovered plaintext as soon as it is no
// longer needed so secrets do not linger in memory.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GetKeyFingerprint generates a short, non-cryptographic identifier for a
// key: the first 8 bytes of its SHA-256 hash, hex-encoded. Useful for
// logging and key selection without exposing key material. Returns the
// empty string for an empty key.
func GetKeyFingerprint(key []byte) string {
	if len(key) == 0 {
		return ""
	}
	hash := sha256.Sum256(key)
	return fmt.Sprintf("%016x", hash[:8])
}
