// keyutils_test.go: Test cases for key utilities.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto_test

import (
	"bytes"
	"errors"
	"testing"

	crypto "github.com/agilira/larnax"
)

func TestClassifyKey(t *testing.T) {
	bits, err := crypto.ClassifyKey(make([]byte, crypto.KeySize128))
	if err != nil {
		t.Fatalf("Unexpected error for 16-byte key: %v", err)
	}
	if bits != 128 {
		t.Errorf("Expected 128, got %d", bits)
	}

	bits, err = crypto.ClassifyKey(make([]byte, crypto.KeySize256))
	if err != nil {
		t.Fatalf("Unexpected error for 32-byte key: %v", err)
	}
	if bits != 256 {
		t.Errorf("Expected 256, got %d", bits)
	}

	for _, n := range []int{0, 8, 15, 17, 24, 31, 33, 64} {
		if _, err := crypto.ClassifyKey(make([]byte, n)); !errors.Is(err, crypto.ErrInvalidKeyLength) {
			t.Errorf("Expected ErrInvalidKeyLength for %d-byte key, got %v", n, err)
		}
	}
}

func TestValidateKeyLength(t *testing.T) {
	key256 := make([]byte, crypto.KeySize256)
	key128 := make([]byte, crypto.KeySize128)

	if err := crypto.ValidateKeyLength(key256); err != nil {
		t.Errorf("Unexpected error with empty allow-list: %v", err)
	}
	if err := crypto.ValidateKeyLength(key256, 256); err != nil {
		t.Errorf("Unexpected error for allowed class: %v", err)
	}
	if err := crypto.ValidateKeyLength(key128, 256); !errors.Is(err, crypto.ErrInvalidKeyLength) {
		t.Errorf("Expected ErrInvalidKeyLength for disallowed class, got %v", err)
	}
	if err := crypto.ValidateKeyLength(key128, 128, 256); err != nil {
		t.Errorf("Unexpected error for multi-class allow-list: %v", err)
	}
	if err := crypto.ValidateKeyLength(make([]byte, 3), 128); !errors.Is(err, crypto.ErrInvalidKeyLength) {
		t.Errorf("Expected ErrInvalidKeyLength for invalid key, got %v", err)
	}
}

func TestGenerateKeys(t *testing.T) {
	key256, err := crypto.GenerateKey256()
	if err != nil {
		t.Fatalf("Failed to generate 256-bit key: %v", err)
	}
	if len(key256) != crypto.KeySize256 {
		t.Errorf("Expected %d bytes, got %d", crypto.KeySize256, len(key256))
	}

	key128, err := crypto.GenerateKey128()
	if err != nil {
		t.Fatalf("Failed to generate 128-bit key: %v", err)
	}
	if len(key128) != crypto.KeySize128 {
		t.Errorf("Expected %d bytes, got %d", crypto.KeySize128, len(key128))
	}

	other, err := crypto.GenerateKey256()
	if err != nil {
		t.Fatalf("Failed to generate second key: %v", err)
	}
	if bytes.Equal(key256, other) {
		t.Error("Two generated keys must not be equal")
	}
}

func TestGenerateIV(t *testing.T) {
	iv, err := crypto.GenerateIV()
	if err != nil {
		t.Fatalf("Failed to generate IV: %v", err)
	}
	if len(iv) != crypto.IVSize {
		t.Errorf("Expected %d-byte IV, got %d", crypto.IVSize, len(iv))
	}
	other, _ := crypto.GenerateIV()
	if bytes.Equal(iv, other) {
		t.Error("Two generated IVs must not be equal")
	}
}

func TestKeyBase64RoundTrip(t *testing.T) {
	key, _ := crypto.GenerateKey256()
	encoded := crypto.KeyToBase64(key)

	decoded, err := crypto.KeyFromBase64(encoded)
	if err != nil {
		t.Fatalf("Failed to decode key: %v", err)
	}
	if !bytes.Equal(key, decoded) {
		t.Error("Key does not round-trip through base64")
	}

	if _, err := crypto.KeyFromBase64("not-base64!!!"); err == nil {
		t.Error("Expected error for malformed base64")
	}
	// Well-formed base64 of a wrong-length key must still fail.
	if _, err := crypto.KeyFromBase64(crypto.KeyToBase64(make([]byte, 20))); !errors.Is(err, crypto.ErrInvalidKeyLength) {
		t.Errorf("Expected ErrInvalidKeyLength for 20-byte encoded key, got %v", err)
	}
}

func TestKeyHexRoundTrip(t *testing.T) {
	key, _ := crypto.GenerateKey128()
	encoded := crypto.KeyToHex(key)

	decoded, err := crypto.KeyFromHex(encoded)
	if err != nil {
		t.Fatalf("Failed to decode key: %v", err)
	}
	if !bytes.Equal(key, decoded) {
		t.Error("Key does not round-trip through hex")
	}

	if _, err := crypto.KeyFromHex("zzzz"); err == nil {
		t.Error("Expected error for malformed hex")
	}
	if _, err := crypto.KeyFromHex("00112233"); !errors.Is(err, crypto.ErrInvalidKeyLength) {
		t.Errorf("Expected ErrInvalidKeyLength for 4-byte hex key, got %v", err)
	}
}

func TestZeroize(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	crypto.Zeroize(data)
	for i, b := range data {
		if b != 0 {
			t.Errorf("Byte %d not zeroed: %d", i, b)
		}
	}
	crypto.Zeroize(nil) // must not panic
}

func TestGetKeyFingerprint(t *testing.T) {
	key, _ := crypto.GenerateKey256()

	fp := crypto.GetKeyFingerprint(key)
	if len(fp) != 16 {
		t.Errorf("Expected 16 hex chars, got %d (%q)", len(fp), fp)
	}
	if fp != crypto.GetKeyFingerprint(key) {
		t.Error("Fingerprint must be stable for the same key")
	}

	other, _ := crypto.GenerateKey256()
	if fp == crypto.GetKeyFingerprint(other) {
		t.Error("Different keys must have different fingerprints")
	}
	if crypto.GetKeyFingerprint(nil) != "" {
		t.Error("Expected empty fingerprint for empty key")
	}
}
