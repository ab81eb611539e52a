// subkeys_test.go: Test cases for per-version sub-key derivation.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSubKeys_Unauthenticated(t *testing.T) {
	t.Run("128-bit key passes through", func(t *testing.T) {
		key := make([]byte, KeySize128)
		key[0] = 0xAA

		sk, err := deriveSubKeys(key, VersionUnauthenticated)
		require.NoError(t, err)
		assert.Equal(t, key, sk.enc, "legacy version uses the master key directly")
		assert.Nil(t, sk.auth, "legacy version has no authentication sub-key")
	})

	t.Run("256-bit key is rejected", func(t *testing.T) {
		_, err := deriveSubKeys(make([]byte, KeySize256), VersionUnauthenticated)
		assert.ErrorIs(t, err, ErrIncompatibleKeyVersion)
	})
}

func TestDeriveSubKeys_Standard128(t *testing.T) {
	// SHA-256(000102...0f) split in half.
	key := make([]byte, KeySize128)
	for i := range key {
		key[i] = byte(i)
	}

	sk, err := deriveSubKeys(key, VersionAesCbcHmac)
	require.NoError(t, err)
	assert.Equal(t, "be45cb2605bf36bebde684841a28f0fd", hex.EncodeToString(sk.enc))
	assert.Equal(t, "43c69850a3dce5fedba69928ee3a8991", hex.EncodeToString(sk.auth))
}

func TestDeriveSubKeys_Standard256(t *testing.T) {
	key := make([]byte, KeySize256)
	key[31] = 0x01

	sk, err := deriveSubKeys(key, VersionAesCbcHmac)
	require.NoError(t, err)
	assert.Len(t, sk.enc, KeySize256)
	assert.Len(t, sk.auth, KeySize256)
	assert.NotEqual(t, sk.enc, sk.auth, "encryption and authentication sub-keys must differ")
	assert.NotEqual(t, key, sk.enc, "sub-keys must not equal the master key")
}

func TestDeriveSubKeys_Aead(t *testing.T) {
	t.Run("HKDF vector for zero key", func(t *testing.T) {
		sk, err := deriveSubKeys(make([]byte, KeySize256), VersionAead)
		require.NoError(t, err)
		assert.Equal(t,
			"b39242665ccad167674cc50d79bb07536b98309664ef74b7636408c4a2d4f193",
			hex.EncodeToString(sk.enc))
		assert.Equal(t,
			"3f6268b76f3e68fefa629fc706754750744ce8adf638b320d1ebc492f8edaa6f",
			hex.EncodeToString(sk.auth))
	})

	t.Run("128-bit master still yields 256-bit sub-keys", func(t *testing.T) {
		sk, err := deriveSubKeys(make([]byte, KeySize128), VersionAead)
		require.NoError(t, err)
		assert.Len(t, sk.enc, KeySize256)
		assert.Len(t, sk.auth, KeySize256)
	})

	t.Run("different masters derive different pairs", func(t *testing.T) {
		keyA := make([]byte, KeySize256)
		keyB := make([]byte, KeySize256)
		keyB[0] = 0x01

		skA, err := deriveSubKeys(keyA, VersionAead)
		require.NoError(t, err)
		skB, err := deriveSubKeys(keyB, VersionAead)
		require.NoError(t, err)
		assert.NotEqual(t, skA.enc, skB.enc)
		assert.NotEqual(t, skA.auth, skB.auth)
	})
}

func TestDeriveSubKeys_VersionsDiffer(t *testing.T) {
	// The same master must never produce the same encryption sub-key for
	// two versions.
	key := make([]byte, KeySize256)
	standard, err := deriveSubKeys(key, VersionAesCbcHmac)
	require.NoError(t, err)
	aead, err := deriveSubKeys(key, VersionAead)
	require.NoError(t, err)
	assert.NotEqual(t, standard.enc, aead.enc)
	assert.NotEqual(t, standard.auth, aead.auth)
}

func TestDeriveSubKeys_Errors(t *testing.T) {
	_, err := deriveSubKeys(make([]byte, 24), VersionAesCbcHmac)
	assert.ErrorIs(t, err, ErrInvalidKeyLength)

	_, err = deriveSubKeys(make([]byte, KeySize256), CipherVersion(7))
	assert.ErrorIs(t, err, ErrUnknownCipherVersion)
}

func TestSubKeys_Zeroize(t *testing.T) {
	t.Run("derived pairs are wiped", func(t *testing.T) {
		sk, err := deriveSubKeys(make([]byte, KeySize256), VersionAesCbcHmac)
		require.NoError(t, err)
		sk.zeroize()
		assert.Equal(t, make([]byte, KeySize256), sk.enc)
		assert.Equal(t, make([]byte, KeySize256), sk.auth)
	})

	t.Run("aliased master key survives", func(t *testing.T) {
		key := make([]byte, KeySize128)
		key[0] = 0xAA
		sk, err := deriveSubKeys(key, VersionUnauthenticated)
		require.NoError(t, err)
		sk.zeroize()
		assert.Equal(t, byte(0xAA), key[0], "zeroize must not wipe the caller's master key")
	})
}
