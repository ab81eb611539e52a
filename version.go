// version.go: Cipher version tags and wire-format constants.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/aes"
	"crypto/sha256"
)

// CipherVersion identifies the on-wire envelope format of a ciphertext.
//
// The version is encoded as a single leading byte for VersionAesCbcHmac and
// VersionAead envelopes. VersionUnauthenticated envelopes carry no version
// byte at all; they are only legal for 128-bit keys and exist solely for
// backward compatibility with ciphertexts produced before authentication
// was introduced.
type CipherVersion byte

const (
	// VersionUnauthenticated is the legacy format: AES-CBC with no
	// authentication tag and no version byte. Only valid with 128-bit keys.
	VersionUnauthenticated CipherVersion = 0

	// VersionAesCbcHmac is the standard format: AES-CBC followed by
	// HMAC-SHA-256 over (optional IV || ciphertext), with a leading
	// version byte and a trailing 32-byte tag.
	VersionAesCbcHmac CipherVersion = 1

	// VersionAead is the hardened format: AES-CBC-then-HMAC where the
	// version byte and IV are inside the authenticated region and the
	// MAC additionally covers caller-supplied associated data.
	VersionAead CipherVersion = 2
)

// Wire-format sizes in bytes. All fields are raw byte arrays, so there are
// no endianness concerns; the envelope is plain concatenation.
const (
	// IVSize is the AES-CBC initialization vector length (one AES block).
	IVSize = aes.BlockSize

	// VersionTagSize is the length of the leading version byte.
	VersionTagSize = 1

	// MacSize is the length of the HMAC-SHA-256 authentication tag.
	MacSize = sha256.Size
)

// fixedIV is the well-known constant IV used when callers opt out of random
// IVs (key wrapping). It is deliberately not secret; confidentiality in the
// fixed-IV modes comes from the wrapped payload being itself random key
// material.
var fixedIV = [IVSize]byte{
	0x88, 0x88, 0x88, 0x88, 0x88, 0x88, 0x88, 0x88,
	0x88, 0x88, 0x88, 0x88, 0x88, 0x88, 0x88, 0x88,
}

// String returns a human-readable name for the cipher version.
func (v CipherVersion) String() string {
	switch v {
	case VersionUnauthenticated:
		return "unauthenticated"
	case VersionAesCbcHmac:
		return "aes-cbc-hmac"
	case VersionAead:
		return "aead"
	default:
		return "unknown"
	}
}

// detectVersion inspects the leading byte of an envelope and reports the
// cipher version it announces. ok is false when the leading byte is not a
// recognized version tag or the ciphertext is empty; VersionUnauthenticated
// is never detected here because legacy envelopes carry no version byte.
func detectVersion(ciphertext []byte) (version CipherVersion, ok bool) {
	if len(ciphertext) == 0 {
		return 0, false
	}
	switch CipherVersion(ciphertext[0]) {
	case VersionAesCbcHmac:
		return VersionAesCbcHmac, true
	case VersionAead:
		return VersionAead, true
	default:
		return 0, false
	}
}
