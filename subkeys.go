// subkeys.go: Per-version sub-key derivation (key splitting).
//
// A master key is never used directly for two cryptographic purposes.
// Every encrypt/decrypt call derives a fresh (encryption, authentication)
// pair from the master key and the cipher version; nothing is cached, so
// there is no key-lifetime state to invalidate.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"

	goerrors "github.com/agilira/go-errors"
	"golang.org/x/crypto/hkdf"
)

// aeadSplitInfo is the HKDF info prefix for VersionAead derivation. The
// one-byte version tag is appended so key material derived for different
// protocol versions can never collide, even under master-key reuse.
const aeadSplitInfo = "AEAD key splitting"

// subKeys is the per-operation (encryption, authentication) key pair.
// auth is nil exactly for VersionUnauthenticated, where no tag exists.
type subKeys struct {
	enc  []byte
	auth []byte
}

// deriveSubKeys derives the sub-key pair for one operation.
//
// VersionUnauthenticated performs no derivation: the master key itself is
// the encryption key, and only 128-bit masters are accepted (256-bit keys
// must never operate unauthenticated). VersionAesCbcHmac hashes the master
// with SHA-256 (128-bit) or SHA-512 (256-bit) and splits the digest into
// two key-length halves. VersionAead runs HKDF-SHA256 with a nil salt and
// the version-tagged info string, always yielding 256-bit sub-keys
// regardless of the master key length.
func deriveSubKeys(key []byte, version CipherVersion) (*subKeys, error) {
	bits, err := ClassifyKey(key)
	if err != nil {
		return nil, err
	}

	switch version {
	case VersionUnauthenticated:
		if bits != 128 {
			richErr := goerrors.New(ErrCodeIncompatibleKeyVersion, fmt.Sprintf("unauthenticated cipher version requires a 128-bit key, got %d-bit", bits))
			return nil, fmt.Errorf("%w: %w", ErrIncompatibleKeyVersion, richErr)
		}
		return &subKeys{enc: key}, nil

	case VersionAesCbcHmac:
		// SHA-256 output is exactly 2x16 bytes, SHA-512 exactly 2x32:
		// the split is always exact, no truncation.
		if bits == 128 {
			digest := sha256.Sum256(key)
			return &subKeys{enc: digest[:KeySize128], auth: digest[KeySize128:]}, nil
		}
		digest := sha512.Sum512(key)
		return &subKeys{enc: digest[:KeySize256], auth: digest[KeySize256:]}, nil

	case VersionAead:
		info := append([]byte(aeadSplitInfo), byte(VersionAead))
		okm := make([]byte, 2*KeySize256)
		if _, err := io.ReadFull(hkdf.New(sha256.New, key, nil, info), okm); err != nil {
			richErr := goerrors.Wrap(err, ErrCodeSubKeyDerivation, "HKDF expansion failed")
			return nil, fmt.Errorf("sub-key derivation failed: %w", richErr)
		}
		return &subKeys{enc: okm[:KeySize256], auth: okm[KeySize256:]}, nil

	default:
		richErr := goerrors.New(ErrCodeUnknownVersion, fmt.Sprintf("cannot derive sub-keys for unknown cipher version %d", version))
		return nil, fmt.Errorf("%w: %w", ErrUnknownCipherVersion, richErr)
	}
}

// zeroize wipes both halves of the pair.
func (s *subKeys) zeroize() {
	// The unauthenticated variant aliases the caller's master key; never
	// wipe that through the alias.
	if s.auth != nil {
		Zeroize(s.enc)
		Zeroize(s.auth)
	}
}
