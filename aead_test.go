// aead_test.go: Test cases for the AEAD envelope codec.
//
// The facade keeps VersionAead gated; these tests exercise the codec
// directly so the format is proven before the rollout flips the gate.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealAead_RoundTrip(t *testing.T) {
	key := make([]byte, KeySize256)
	key[3] = 0x77
	iv, err := GenerateIV()
	require.NoError(t, err)
	plaintext := []byte("aead payload")
	associatedData := []byte("record:42")

	envelope, err := sealAead(key, plaintext, iv, associatedData, PaddingPKCS7)
	require.NoError(t, err)

	// version(1) || IV(16) || ciphertext(1 block) || tag(32)
	assert.Equal(t, byte(VersionAead), envelope[0])
	assert.Equal(t, iv, envelope[VersionTagSize:VersionTagSize+IVSize])
	assert.Len(t, envelope, VersionTagSize+IVSize+16+MacSize)

	recovered, err := openAead(key, envelope, associatedData, PaddingPKCS7)
	require.NoError(t, err)
	assert.Equal(t, plaintext, recovered)
}

func TestSealAead_NilAssociatedData(t *testing.T) {
	key := make([]byte, KeySize256)
	iv, err := GenerateIV()
	require.NoError(t, err)

	envelope, err := sealAead(key, []byte("no context"), iv, nil, PaddingPKCS7)
	require.NoError(t, err)

	recovered, err := openAead(key, envelope, nil, PaddingPKCS7)
	require.NoError(t, err)
	assert.Equal(t, []byte("no context"), recovered)

	// nil and empty associated data authenticate identically.
	recovered, err = openAead(key, envelope, []byte{}, PaddingPKCS7)
	require.NoError(t, err)
	assert.Equal(t, []byte("no context"), recovered)
}

func TestOpenAead_AssociatedDataMismatch(t *testing.T) {
	key := make([]byte, KeySize256)
	iv, err := GenerateIV()
	require.NoError(t, err)

	envelope, err := sealAead(key, []byte("bound payload"), iv, []byte("context-a"), PaddingPKCS7)
	require.NoError(t, err)

	_, err = openAead(key, envelope, []byte("context-b"), PaddingPKCS7)
	assert.ErrorIs(t, err, ErrAuthenticationFailed, "wrong associated data must fail like tampering")

	_, err = openAead(key, envelope, nil, PaddingPKCS7)
	assert.ErrorIs(t, err, ErrAuthenticationFailed, "missing associated data must fail like tampering")
}

func TestOpenAead_TamperGrid(t *testing.T) {
	key := make([]byte, KeySize256)
	iv, err := GenerateIV()
	require.NoError(t, err)

	envelope, err := sealAead(key, []byte("whole-envelope authentication"), iv, []byte("ad"), PaddingPKCS7)
	require.NoError(t, err)

	// Unlike the standard envelope, even the version byte sits under the
	// tag, so every offset fails the same way.
	for _, offset := range []int{0, VersionTagSize, VersionTagSize + IVSize, len(envelope) - MacSize, len(envelope) - 1} {
		tampered := make([]byte, len(envelope))
		copy(tampered, envelope)
		tampered[offset] ^= 0x01

		_, err := openAead(key, tampered, []byte("ad"), PaddingPKCS7)
		assert.ErrorIs(t, err, ErrAuthenticationFailed, "offset %d", offset)
	}
}

func TestOpenAead_TooShort(t *testing.T) {
	key := make([]byte, KeySize256)
	for _, n := range []int{0, 1, VersionTagSize + IVSize + MacSize - 1} {
		_, err := openAead(key, make([]byte, n), nil, PaddingPKCS7)
		assert.ErrorIs(t, err, ErrAuthenticationFailed, "length %d", n)
	}
}

func TestSealAead_128BitMaster(t *testing.T) {
	// AEAD derivation upgrades every master to 256-bit sub-keys, so legacy
	// masters can adopt the hardened format without rotation.
	key := make([]byte, KeySize128)
	key[0] = 0x01
	iv, err := GenerateIV()
	require.NoError(t, err)

	envelope, err := sealAead(key, []byte("legacy master"), iv, nil, PaddingPKCS7)
	require.NoError(t, err)
	recovered, err := openAead(key, envelope, nil, PaddingPKCS7)
	require.NoError(t, err)
	assert.Equal(t, []byte("legacy master"), recovered)
}
