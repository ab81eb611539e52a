// cbc.go: Raw AES-CBC block transforms with selectable padding.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// PaddingMode selects how plaintext is aligned to the AES block size.
type PaddingMode int

const (
	// PaddingPKCS7 applies PKCS#7 block padding; any plaintext length is
	// accepted.
	PaddingPKCS7 PaddingMode = iota

	// PaddingNone passes data through unpadded; lengths must already be a
	// multiple of the AES block size. Used for key wrapping, where the
	// payload is always block-aligned key material.
	PaddingNone
)

// encryptCBC performs raw AES-CBC encryption with the derived encryption
// key. The IV must be exactly one AES block; the caller decides whether it
// travels with the ciphertext.
func encryptCBC(encKey, iv, plaintext []byte, padding PaddingMode) ([]byte, error) {
	if len(iv) != IVSize {
		richErr := goerrors.New(ErrCodeInvalidIVLength, fmt.Sprintf("IV must be %d bytes, got %d", IVSize, len(iv)))
		return nil, fmt.Errorf("%w: %w", ErrInvalidIVLength, richErr)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeInvalidKeyLength, "failed to initialize AES cipher")
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyLength, richErr)
	}

	switch padding {
	case PaddingPKCS7:
		// Assemble the padded plaintext in a pooled scratch buffer so the
		// sensitive copy is zeroed on return.
		padLen := aes.BlockSize - len(plaintext)%aes.BlockSize
		scratch := getBuffer(len(plaintext) + padLen)
		defer putBuffer(scratch)
		src := (*scratch)[:len(plaintext)+padLen]
		copy(src, plaintext)
		for i := len(plaintext); i < len(src); i++ {
			src[i] = byte(padLen)
		}
		ciphertext := make([]byte, len(src))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, src)
		return ciphertext, nil

	case PaddingNone:
		if len(plaintext)%aes.BlockSize != 0 {
			richErr := goerrors.New(ErrCodeInvalidBlockLength, fmt.Sprintf("unpadded plaintext length %d is not a multiple of %d", len(plaintext), aes.BlockSize))
			return nil, fmt.Errorf("%w: %w", ErrInvalidBlockLength, richErr)
		}
		ciphertext := make([]byte, len(plaintext))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)
		return ciphertext, nil

	default:
		richErr := goerrors.New(ErrCodeInvalidPadding, fmt.Sprintf("unknown padding mode %d", padding))
		return nil, fmt.Errorf("invalid padding mode: %w", richErr)
	}
}

// decryptCBC performs raw AES-CBC decryption. Structural failures (block
// misalignment, bad padding) surface as distinct errors and never return
// garbage plaintext. With authenticated versions the MAC has already been
// verified by the time this runs, so padding failures indicate an internal
// inconsistency rather than tampering; they are still reported, never
// swallowed.
func decryptCBC(encKey, iv, ciphertext []byte, padding PaddingMode) ([]byte, error) {
	if len(iv) != IVSize {
		richErr := goerrors.New(ErrCodeInvalidIVLength, fmt.Sprintf("IV must be %d bytes, got %d", IVSize, len(iv)))
		return nil, fmt.Errorf("%w: %w", ErrInvalidIVLength, richErr)
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		richErr := goerrors.New(ErrCodeInvalidBlockLength, fmt.Sprintf("ciphertext length %d is not a multiple of %d", len(ciphertext), aes.BlockSize))
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlockLength, richErr)
	}
	if padding == PaddingPKCS7 && len(ciphertext) == 0 {
		richErr := goerrors.New(ErrCodeDecrypt, "padded ciphertext cannot be empty")
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, richErr)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeInvalidKeyLength, "failed to initialize AES cipher")
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyLength, richErr)
	}

	if padding == PaddingPKCS7 {
		// Decrypt into pooled scratch; only the unpadded plaintext copy
		// leaves this function, the scratch is zeroed on return.
		scratch := getBuffer(len(ciphertext))
		defer putBuffer(scratch)
		padded := (*scratch)[:len(ciphertext)]
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

		unpadded, err := pkcs7Unpad(padded, aes.BlockSize)
		if err != nil {
			richErr := goerrors.Wrap(err, ErrCodeDecrypt, "PKCS#7 unpadding failed")
			return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, richErr)
		}
		return unpadded, nil
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}

// pkcs7Unpad strips and validates PKCS#7 padding.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, goerrors.New(ErrCodeDecrypt, "invalid padded length")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, goerrors.New(ErrCodeDecrypt, "invalid padding length byte")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, goerrors.New(ErrCodeDecrypt, "inconsistent padding bytes")
		}
	}
	result := make([]byte, len(data)-padLen)
	copy(result, data[:len(data)-padLen])
	return result, nil
}
