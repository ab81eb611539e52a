// aead.go: AEAD envelope (AES-CBC-then-HMAC with associated data).
//
// Wire layout:
//
//	VersionAead: 0x02 || IV(16) || ciphertext || tag(32)
//
// Unlike VersionAesCbcHmac, the version byte and the IV sit inside the
// authenticated region, and the tag additionally covers caller-supplied
// associated data that is authenticated but never stored in the envelope.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/hmac"
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// sealAead produces a VersionAead envelope. Sub-keys are always 256-bit
// regardless of the master key class. associatedData may be nil.
func sealAead(key, plaintext, iv, associatedData []byte, padding PaddingMode) ([]byte, error) {
	sk, err := deriveSubKeys(key, VersionAead)
	if err != nil {
		return nil, err
	}
	defer sk.zeroize()

	ciphertext, err := encryptCBC(sk.enc, iv, plaintext, padding)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, VersionTagSize+IVSize+len(ciphertext)+MacSize)
	out = append(out, byte(VersionAead))
	out = append(out, iv...)
	out = append(out, ciphertext...)
	tag := computeTag(sk.auth, out, associatedData)
	return append(out, tag...), nil
}

// openAead authenticates and decrypts a VersionAead envelope. The tag is
// recomputed over (envelope body || associatedData) and compared in
// constant time before any decryption happens, so mismatched associated
// data fails exactly like a tampered envelope.
func openAead(key, ciphertext, associatedData []byte, padding PaddingMode) ([]byte, error) {
	sk, err := deriveSubKeys(key, VersionAead)
	if err != nil {
		return nil, err
	}
	defer sk.zeroize()

	if len(ciphertext) < VersionTagSize+IVSize+MacSize {
		richErr := goerrors.New(ErrCodeAuthFailed, fmt.Sprintf("AEAD envelope of %d bytes is too short", len(ciphertext)))
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, richErr)
	}

	authenticated := ciphertext[:len(ciphertext)-MacSize]
	providedTag := ciphertext[len(ciphertext)-MacSize:]
	expectedTag := computeTag(sk.auth, authenticated, associatedData)
	if !hmac.Equal(expectedTag, providedTag) {
		richErr := goerrors.New(ErrCodeAuthFailed, "authentication tag mismatch")
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, richErr)
	}

	// The version byte was just verified under the tag; this check only
	// guards against internal misuse.
	if CipherVersion(authenticated[0]) != VersionAead {
		richErr := goerrors.New(ErrCodeUnknownVersion, fmt.Sprintf("authenticated envelope announces version %d, expected %d", authenticated[0], VersionAead))
		return nil, fmt.Errorf("%w: %w", ErrUnknownCipherVersion, richErr)
	}

	iv := authenticated[VersionTagSize : VersionTagSize+IVSize]
	body := authenticated[VersionTagSize+IVSize:]
	return decryptCBC(sk.enc, iv, body, padding)
}
