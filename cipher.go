// cipher.go: Public encryption facade and error taxonomy.
//
// This is the entry point for all envelope operations. Each use case maps
// to a fixed (IV policy, padding, cipher version) tuple so call sites can
// never mix parameters that would produce an undecryptable or weakened
// envelope.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"errors"
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// Public standard errors for drop-in compatibility.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrInvalidKeyLength is returned when a key is neither 128 nor 256
	// bits where one of those is required.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length")

	// ErrIncompatibleKeyVersion is returned when a cipher version is
	// requested with a key length it structurally forbids (the
	// unauthenticated version with a 256-bit key).
	ErrIncompatibleKeyVersion = errors.New("crypto: cipher version incompatible with key length")

	// ErrInvalidIVLength is returned when an IV is not exactly 16 bytes.
	ErrInvalidIVLength = errors.New("crypto: invalid IV length")

	// ErrInvalidBlockLength is returned when unpadded data is not a
	// multiple of the AES block size.
	ErrInvalidBlockLength = errors.New("crypto: invalid block length")

	// ErrAuthenticationFailed is returned on MAC verification mismatch.
	// Verification always happens before any plaintext is produced.
	ErrAuthenticationFailed = errors.New("crypto: authentication failed")

	// ErrAuthenticationRequired is returned when a 256-bit key is asked to
	// decrypt data that lacks a recognized authentication envelope.
	ErrAuthenticationRequired = errors.New("crypto: authentication required")

	// ErrDecryptionFailed is returned when block decryption or unpadding
	// fails structurally after authentication succeeded.
	ErrDecryptionFailed = errors.New("crypto: decryption failed")

	// ErrAeadNotEnabled is returned when the AEAD facade path is invoked
	// while administratively disabled.
	ErrAeadNotEnabled = errors.New("crypto: AEAD cipher version not enabled")

	// ErrUnknownCipherVersion is returned when a leading version byte does
	// not match any recognized tag where detection is mandatory.
	ErrUnknownCipherVersion = errors.New("crypto: unknown cipher version")
)

// Error codes for rich error handling
const (
	ErrCodeInvalidKeyLength       = "CRYPTO_INVALID_KEY_LENGTH"
	ErrCodeIncompatibleKeyVersion = "CRYPTO_INCOMPATIBLE_KEY_VERSION"
	ErrCodeInvalidIVLength        = "CRYPTO_INVALID_IV_LENGTH"
	ErrCodeInvalidBlockLength     = "CRYPTO_INVALID_BLOCK_LENGTH"
	ErrCodeInvalidPadding         = "CRYPTO_INVALID_PADDING"
	ErrCodeAuthFailed             = "CRYPTO_AUTH_FAILED"
	ErrCodeAuthRequired           = "CRYPTO_AUTH_REQUIRED"
	ErrCodeDecrypt                = "CRYPTO_DECRYPT"
	ErrCodeAeadDisabled           = "CRYPTO_AEAD_DISABLED"
	ErrCodeUnknownVersion         = "CRYPTO_UNKNOWN_VERSION"
	ErrCodeSubKeyDerivation       = "CRYPTO_SUBKEY_DERIVATION"
)

// aeadEnabled gates the public AEAD entry points. The VersionAead codec is
// complete and covered by tests; the facade keeps it unreachable until the
// protocol rollout lets peers decrypt v2 envelopes.
const aeadEnabled = false

// EncryptBytes encrypts a plaintext byte slice into a VersionAesCbcHmac
// envelope: random IV, PKCS#7 padding, encrypt-then-MAC.
//
// The returned envelope is self-describing; DecryptBytes recovers the
// plaintext given only the same key. The key may be 128- or 256-bit.
//
// Example:
//
//	key, _ := crypto.GenerateKey256()
//	envelope, err := crypto.EncryptBytes(data, key)
//	if err != nil {
//		log.Fatal(err)
//	}
func EncryptBytes(plaintext, key []byte) ([]byte, error) {
	iv, err := GenerateIV()
	if err != nil {
		return nil, err
	}
	return sealEnvelope(key, plaintext, iv, true, PaddingPKCS7, VersionAesCbcHmac)
}

// DecryptBytes decrypts an envelope produced by EncryptBytes, or a legacy
// unauthenticated envelope under a 128-bit key.
//
// The cipher version is auto-detected from the leading byte. Data without
// a recognized version byte is only ever decrypted for 128-bit keys
// (legacy ciphertexts predate the version byte); under a 256-bit key such
// data fails with ErrAuthenticationRequired, because 256-bit keys must
// never operate unauthenticated.
//
// The function will return an error if:
//   - The key length is invalid
//   - Authentication fails (tampering detected)
//   - The key class forbids unauthenticated data
//   - The envelope is structurally malformed
func DecryptBytes(ciphertext, key []byte) ([]byte, error) {
	bits, err := ClassifyKey(key)
	if err != nil {
		return nil, err
	}

	if version, ok := detectVersion(ciphertext); ok {
		switch version {
		case VersionAesCbcHmac:
			return openEnvelope(key, ciphertext, true, PaddingPKCS7, VersionAesCbcHmac)
		case VersionAead:
			if !aeadEnabled {
				richErr := goerrors.New(ErrCodeAeadDisabled, "AEAD envelopes are not enabled; use DecryptBytesAead once rolled out")
				return nil, fmt.Errorf("%w: %w", ErrAeadNotEnabled, richErr)
			}
			return openAead(key, ciphertext, nil, PaddingPKCS7)
		}
	}

	if bits == 256 {
		richErr := goerrors.New(ErrCodeAuthRequired, "256-bit keys must never decrypt unauthenticated data")
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationRequired, richErr)
	}
	return openEnvelope(key, ciphertext, true, PaddingPKCS7, VersionUnauthenticated)
}

// Encrypt encrypts a UTF-8 string. Convenience wrapper around EncryptBytes.
func Encrypt(plaintext string, key []byte) ([]byte, error) {
	return EncryptBytes([]byte(plaintext), key)
}

// Decrypt decrypts an envelope and interprets the plaintext as UTF-8.
// Convenience wrapper around DecryptBytes.
func Decrypt(ciphertext, key []byte) (string, error) {
	plaintext, err := DecryptBytes(ciphertext, key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptBytesUnauthenticated produces a legacy VersionUnauthenticated
// envelope: random IV, PKCS#7 padding, no version byte, no tag. It exists
// for compatibility testing against systems that still emit the legacy
// format and requires a 128-bit key; never use it for new data.
func EncryptBytesUnauthenticated(plaintext, key []byte) ([]byte, error) {
	iv, err := GenerateIV()
	if err != nil {
		return nil, err
	}
	return sealEnvelope(key, plaintext, iv, true, PaddingPKCS7, VersionUnauthenticated)
}

// EncryptKey wraps one symmetric key with another.
//
// Key wrapping uses the fixed IV and no padding: the payload is always
// block-aligned random key material, so neither a random IV nor padding
// adds anything, and the deterministic output lets identical wrap results
// be deduplicated at rest. The cipher version follows the wrapping key's
// class: 128-bit wrapping keys produce legacy unauthenticated wraps (such
// keys are always rotated to 256-bit before authentication is mandated),
// 256-bit wrapping keys produce authenticated VersionAesCbcHmac wraps.
//
// Example:
//
//	master, _ := crypto.GenerateKey256()
//	dataKey, _ := crypto.GenerateKey256()
//	wrapped, err := crypto.EncryptKey(master, dataKey)
func EncryptKey(wrappingKey, key []byte) ([]byte, error) {
	bits, err := ClassifyKey(wrappingKey)
	if err != nil {
		return nil, err
	}
	if _, err := ClassifyKey(key); err != nil {
		return nil, err
	}

	version := VersionAesCbcHmac
	if bits == 128 {
		version = VersionUnauthenticated
	}
	return sealEnvelope(wrappingKey, key, fixedIV[:], false, PaddingNone, version)
}

// DecryptKey unwraps a symmetric key wrapped by EncryptKey. The cipher
// version is selected by the wrapping key's class, never by sniffing the
// wrapped bytes: a 16-byte legacy wrap could begin with any value.
func DecryptKey(wrappingKey, wrappedKey []byte) ([]byte, error) {
	bits, err := ClassifyKey(wrappingKey)
	if err != nil {
		return nil, err
	}

	version := VersionAesCbcHmac
	if bits == 128 {
		version = VersionUnauthenticated
	}
	key, err := openEnvelope(wrappingKey, wrappedKey, false, PaddingNone, version)
	if err != nil {
		return nil, err
	}
	if _, err := ClassifyKey(key); err != nil {
		Zeroize(key)
		return nil, err
	}
	return key, nil
}

// EncryptPrivateKey encrypts an externally-serialized private-key blob:
// random IV, PKCS#7 padding, VersionAesCbcHmac. The blob is treated as
// opaque bytes; (de)serialization of the key structure is the caller's
// concern.
func EncryptPrivateKey(serializedKey, encryptionKey []byte) ([]byte, error) {
	iv, err := GenerateIV()
	if err != nil {
		return nil, err
	}
	return sealEnvelope(encryptionKey, serializedKey, iv, true, PaddingPKCS7, VersionAesCbcHmac)
}

// DecryptPrivateKey decrypts a private-key blob encrypted by
// EncryptPrivateKey. Unlike DecryptBytes there is no legacy fallback:
// private keys were never stored unauthenticated, so the envelope must be
// VersionAesCbcHmac.
func DecryptPrivateKey(ciphertext, encryptionKey []byte) ([]byte, error) {
	if _, err := ClassifyKey(encryptionKey); err != nil {
		return nil, err
	}
	return openEnvelope(encryptionKey, ciphertext, true, PaddingPKCS7, VersionAesCbcHmac)
}

// EncryptBytesAead encrypts a plaintext into a VersionAead envelope whose
// tag additionally covers associatedData (authenticated, not encrypted,
// not stored). Currently gated by the protocol rollout: calling it fails
// with ErrAeadNotEnabled.
func EncryptBytesAead(plaintext, key, associatedData []byte) ([]byte, error) {
	if !aeadEnabled {
		richErr := goerrors.New(ErrCodeAeadDisabled, "AEAD encryption is not enabled pending protocol rollout")
		return nil, fmt.Errorf("%w: %w", ErrAeadNotEnabled, richErr)
	}
	iv, err := GenerateIV()
	if err != nil {
		return nil, err
	}
	return sealAead(key, plaintext, iv, associatedData, PaddingPKCS7)
}

// DecryptBytesAead decrypts a VersionAead envelope, verifying the tag over
// the envelope and associatedData before decrypting. Gated like
// EncryptBytesAead.
func DecryptBytesAead(ciphertext, key, associatedData []byte) ([]byte, error) {
	if !aeadEnabled {
		richErr := goerrors.New(ErrCodeAeadDisabled, "AEAD decryption is not enabled pending protocol rollout")
		return nil, fmt.Errorf("%w: %w", ErrAeadNotEnabled, richErr)
	}
	return openAead(key, ciphertext, associatedData, PaddingPKCS7)
}

// DetectCipherVersion reports the cipher version announced by an
// envelope's leading byte. It fails with ErrUnknownCipherVersion when the
// byte matches no known tag; legacy envelopes carry no version byte and
// are therefore never detected here.
func DetectCipherVersion(ciphertext []byte) (CipherVersion, error) {
	version, ok := detectVersion(ciphertext)
	if !ok {
		richErr := goerrors.New(ErrCodeUnknownVersion, "leading byte matches no known cipher version")
		return 0, fmt.Errorf("%w: %w", ErrUnknownCipherVersion, richErr)
	}
	return version, nil
}
