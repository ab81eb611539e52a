// cbc_test.go: Test cases for the raw CBC transforms and padding.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"bytes"
	"crypto/aes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptCBC_RoundTripPKCS7(t *testing.T) {
	key := make([]byte, KeySize256)
	iv := make([]byte, IVSize)

	// Lengths straddling block boundaries, including empty.
	for _, n := range []int{0, 1, 15, 16, 17, 31, 32, 100} {
		plaintext := bytes.Repeat([]byte{0x5A}, n)
		ciphertext, err := encryptCBC(key, iv, plaintext, PaddingPKCS7)
		require.NoError(t, err, "length %d", n)
		assert.Equal(t, 0, len(ciphertext)%aes.BlockSize)
		assert.Greater(t, len(ciphertext), n, "PKCS#7 always adds at least one padding byte")

		decrypted, err := decryptCBC(key, iv, ciphertext, PaddingPKCS7)
		require.NoError(t, err, "length %d", n)
		assert.Equal(t, plaintext, decrypted, "length %d", n)
	}
}

func TestEncryptCBC_RoundTripNoPadding(t *testing.T) {
	key := make([]byte, KeySize128)
	iv := fixedIV[:]
	plaintext := bytes.Repeat([]byte{0x11}, 48)

	ciphertext, err := encryptCBC(key, iv, plaintext, PaddingNone)
	require.NoError(t, err)
	assert.Len(t, ciphertext, 48, "unpadded ciphertext keeps the plaintext length")

	decrypted, err := decryptCBC(key, iv, ciphertext, PaddingNone)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptCBC_Errors(t *testing.T) {
	key := make([]byte, KeySize256)

	t.Run("bad IV length", func(t *testing.T) {
		_, err := encryptCBC(key, make([]byte, 12), []byte("data"), PaddingPKCS7)
		assert.ErrorIs(t, err, ErrInvalidIVLength)
	})

	t.Run("misaligned input without padding", func(t *testing.T) {
		_, err := encryptCBC(key, make([]byte, IVSize), []byte("seventeen bytes!!"), PaddingNone)
		assert.ErrorIs(t, err, ErrInvalidBlockLength)
	})

	t.Run("unknown padding mode", func(t *testing.T) {
		_, err := encryptCBC(key, make([]byte, IVSize), []byte("data"), PaddingMode(42))
		assert.Error(t, err)
	})

	t.Run("bad key length reaches the cipher", func(t *testing.T) {
		_, err := encryptCBC(make([]byte, 10), make([]byte, IVSize), []byte("data"), PaddingPKCS7)
		assert.ErrorIs(t, err, ErrInvalidKeyLength)
	})
}

func TestDecryptCBC_Errors(t *testing.T) {
	key := make([]byte, KeySize256)
	iv := make([]byte, IVSize)

	t.Run("bad IV length", func(t *testing.T) {
		_, err := decryptCBC(key, make([]byte, 8), make([]byte, 16), PaddingPKCS7)
		assert.ErrorIs(t, err, ErrInvalidIVLength)
	})

	t.Run("misaligned ciphertext", func(t *testing.T) {
		_, err := decryptCBC(key, iv, make([]byte, 17), PaddingPKCS7)
		assert.ErrorIs(t, err, ErrInvalidBlockLength)
	})

	t.Run("empty padded ciphertext", func(t *testing.T) {
		_, err := decryptCBC(key, iv, nil, PaddingPKCS7)
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	})

	t.Run("empty unpadded ciphertext is legal", func(t *testing.T) {
		plaintext, err := decryptCBC(key, iv, nil, PaddingNone)
		require.NoError(t, err)
		assert.Empty(t, plaintext)
	})
}

func TestPKCS7Unpad(t *testing.T) {
	t.Run("valid padding", func(t *testing.T) {
		data := append([]byte("hello"), bytes.Repeat([]byte{11}, 11)...)
		out, err := pkcs7Unpad(data, aes.BlockSize)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), out)
	})

	t.Run("full padding block", func(t *testing.T) {
		out, err := pkcs7Unpad(bytes.Repeat([]byte{16}, 16), aes.BlockSize)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("zero padding byte", func(t *testing.T) {
		data := make([]byte, 16)
		_, err := pkcs7Unpad(data, aes.BlockSize)
		assert.Error(t, err)
	})

	t.Run("padding byte above block size", func(t *testing.T) {
		data := make([]byte, 16)
		data[15] = 17
		_, err := pkcs7Unpad(data, aes.BlockSize)
		assert.Error(t, err)
	})

	t.Run("inconsistent padding bytes", func(t *testing.T) {
		data := bytes.Repeat([]byte{4}, 16)
		data[13] = 3
		_, err := pkcs7Unpad(data, aes.BlockSize)
		assert.Error(t, err)
	})

	t.Run("misaligned input", func(t *testing.T) {
		_, err := pkcs7Unpad(make([]byte, 15), aes.BlockSize)
		assert.Error(t, err)
	})
}
