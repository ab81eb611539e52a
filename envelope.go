// envelope.go: Versioned encrypt-then-MAC envelopes (legacy and standard).
//
// Wire layouts handled here:
//
//	VersionUnauthenticated: [IV(16) if random IV] || ciphertext
//	VersionAesCbcHmac:      0x01 || [IV(16) if random IV] || ciphertext || tag(32)
//
// The VersionAesCbcHmac tag covers (optional IV || ciphertext) but NOT the
// version byte. That exclusion is a legacy wire-compatibility wrinkle:
// ciphertexts encrypted years ago by other clients authenticate exactly
// this region, and changing it would invalidate them. VersionAead (see
// aead.go) closes the gap by authenticating its whole envelope.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// computeTag computes HMAC-SHA-256 of the concatenated parts.
func computeTag(authKey []byte, parts ...[]byte) []byte {
	mac := hmac.New(sha256.New, authKey)
	for _, p := range parts {
		mac.Write(p)
	}
	return mac.Sum(nil)
}

// sealEnvelope produces a VersionUnauthenticated or VersionAesCbcHmac
// envelope. The caller supplies the IV and says whether it should travel
// with the ciphertext (prependIV) or is a shared fixed constant.
func sealEnvelope(key, plaintext, iv []byte, prependIV bool, padding PaddingMode, version CipherVersion) ([]byte, error) {
	if version != VersionUnauthenticated && version != VersionAesCbcHmac {
		richErr := goerrors.New(ErrCodeUnknownVersion, fmt.Sprintf("cipher version %d is not handled by the CBC envelope", version))
		return nil, fmt.Errorf("%w: %w", ErrUnknownCipherVersion, richErr)
	}

	sk, err := deriveSubKeys(key, version)
	if err != nil {
		return nil, err
	}
	defer sk.zeroize()

	ciphertext, err := encryptCBC(sk.enc, iv, plaintext, padding)
	if err != nil {
		return nil, err
	}

	bodyLen := len(ciphertext)
	if prependIV {
		bodyLen += IVSize
	}
	if version == VersionUnauthenticated {
		out := make([]byte, 0, bodyLen)
		if prependIV {
			out = append(out, iv...)
		}
		return append(out, ciphertext...), nil
	}

	// Version byte first, then the body, then the tag over the body alone.
	out := make([]byte, 0, VersionTagSize+bodyLen+MacSize)
	out = append(out, byte(version))
	if prependIV {
		out = append(out, iv...)
	}
	out = append(out, ciphertext...)
	tag := computeTag(sk.auth, out[VersionTagSize:])
	return append(out, tag...), nil
}

// openEnvelope authenticates (for VersionAesCbcHmac) and decrypts an
// envelope. The tag is verified in constant time before any block is
// decrypted; plaintext is never produced from an unverified envelope.
func openEnvelope(key, ciphertext []byte, randomIV bool, padding PaddingMode, version CipherVersion) ([]byte, error) {
	sk, err := deriveSubKeys(key, version)
	if err != nil {
		return nil, err
	}
	defer sk.zeroize()

	body := ciphertext
	switch version {
	case VersionUnauthenticated:
		// Legacy data: nothing to trim, nothing to verify.

	case VersionAesCbcHmac:
		minLen := VersionTagSize + MacSize
		if randomIV {
			minLen += IVSize
		}
		if len(ciphertext) < minLen {
			richErr := goerrors.New(ErrCodeAuthFailed, fmt.Sprintf("envelope of %d bytes is too short to carry an authentication tag", len(ciphertext)))
			return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, richErr)
		}
		if CipherVersion(ciphertext[0]) != version {
			richErr := goerrors.New(ErrCodeUnknownVersion, fmt.Sprintf("envelope announces version %d, expected %d", ciphertext[0], version))
			return nil, fmt.Errorf("%w: %w", ErrUnknownCipherVersion, richErr)
		}

		body = ciphertext[VersionTagSize : len(ciphertext)-MacSize]
		providedTag := ciphertext[len(ciphertext)-MacSize:]
		expectedTag := computeTag(sk.auth, body)
		if !hmac.Equal(expectedTag, providedTag) {
			richErr := goerrors.New(ErrCodeAuthFailed, "authentication tag mismatch")
			return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, richErr)
		}

	default:
		richErr := goerrors.New(ErrCodeUnknownVersion, fmt.Sprintf("cipher version %d is not handled by the CBC envelope", version))
		return nil, fmt.Errorf("%w: %w", ErrUnknownCipherVersion, richErr)
	}

	iv := fixedIV[:]
	if randomIV {
		if len(body) < IVSize {
			richErr := goerrors.New(ErrCodeDecrypt, fmt.Sprintf("envelope body of %d bytes cannot contain a %d-byte IV", len(body), IVSize))
			return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, richErr)
		}
		iv = body[:IVSize]
		body = body[IVSize:]
	}

	return decryptCBC(sk.enc, iv, body, padding)
}
