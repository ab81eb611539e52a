// Package crypto provides versioned symmetric encryption envelopes for Go applications.
//
// This package offers a compact set of symmetric primitives including:
//   - AES-CBC encryption authenticated with HMAC-SHA-256 (encrypt-then-MAC)
//   - Versioned wire envelopes with automatic version detection on decrypt
//   - Hash-based and HKDF-SHA256 sub-key derivation from a single master key
//   - Key wrapping for 128- and 256-bit symmetric keys and serialized private keys
//   - Legacy support for unauthenticated ciphertexts produced by old clients
//   - Master-key rings with generation tracking and rotation
//   - External key-provider plugin architecture with a software fallback
//   - Streaming encryption for large payloads with per-chunk authentication
//   - Secure memory zeroization and buffer pooling for sensitive data
//
// Every authenticated envelope is verified in constant time before a single
// block is decrypted; plaintext is never produced from an unverified
// ciphertext.
//
// # Quick Start
//
// Basic encryption and decryption:
//
//	// Generate a new 256-bit encryption key
//	key, err := crypto.GenerateKey256()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Encrypt some data
//	ciphertext, err := crypto.Encrypt("sensitive data", key)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Decrypt the data
//	plaintext, err := crypto.Decrypt(ciphertext, key)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Println(plaintext) // Output: sensitive data
//
// # Cipher Versions
//
// Each ciphertext carries (or implies) a cipher version that fixes its wire
// layout and sub-key derivation:
//
//	VersionUnauthenticated — legacy AES-128-CBC with no tag and no version
//	byte. Produced only by EncryptBytesUnauthenticated and by 128-bit key
//	wrapping; accepted on decrypt for backward compatibility.
//
//	VersionAesCbcHmac — the standard version. AES-CBC with sub-keys split
//	from a hash of the master key, followed by an HMAC-SHA-256 tag.
//
//	VersionAead — HKDF-derived sub-keys, the whole envelope authenticated
//	together with caller-supplied associated data. Not yet enabled on the
//	package facade; see EncryptBytesAead.
//
// DecryptBytes inspects the leading byte and routes to the right opener, so
// callers never track which version wrote a ciphertext. A 256-bit key refuses
// to decrypt anything unauthenticated.
//
// # Key Management
//
// Key utilities for import/export and validation:
//
//	// Generate and export a key
//	key, _ := crypto.GenerateKey256()
//	base64Key := crypto.KeyToBase64(key)
//	hexKey := crypto.KeyToHex(key)
//
//	// Import a key; length is validated on the way in
//	importedKey, err := crypto.KeyFromBase64(base64Key)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Generate a fingerprint for identification
//	fingerprint := crypto.GetKeyFingerprint(key)
//	fmt.Println("Key fingerprint:", fingerprint)
//
//	// Securely wipe sensitive data
//	crypto.Zeroize(key)
//
// Wrapping one key under another:
//
//	wrapped, err := crypto.EncryptKey(masterKey, dataKey)
//	if err != nil {
//		log.Fatal(err)
//	}
//	dataKey, err = crypto.DecryptKey(masterKey, wrapped)
//
// # Error Handling
//
// All functions return standard Go errors for maximum compatibility.
// Sentinel errors support errors.Is, and each failure additionally wraps a
// coded error from github.com/agilira/go-errors for auditing.
//
// Example error handling:
//
//	plaintext, err := crypto.DecryptBytes(ciphertext, key)
//	if err != nil {
//		if errors.Is(err, crypto.ErrAuthenticationFailed) {
//			// Ciphertext was tampered with or the key is wrong
//		} else if errors.Is(err, crypto.ErrAuthenticationRequired) {
//			// 256-bit keys refuse unauthenticated ciphertexts
//		}
//		// Handle other errors
//	}
//
// # Key Rings and Rotation
//
// Master-key generations with wrap/unwrap and rotation:
//
//	kr := crypto.NewKeyring()
//
//	gen, err := kr.GenerateMaster("vault-master", 256)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := kr.ActivateMaster(gen.ID); err != nil {
//		log.Fatal(err)
//	}
//
//	// Wrap a data key under the active generation
//	wrapped, genID, err := kr.WrapKey(dataKey)
//
//	// Rotate and re-wrap under the new generation
//	if _, err := kr.RotateMaster(); err != nil {
//		log.Fatal(err)
//	}
//	rewrapped, newGenID, err := kr.RewrapKey(wrapped, genID)
//
// # External Key Providers
//
// Master keys can live outside process memory. The provider architecture
// uses github.com/agilira/go-plugins for out-of-process plugins (PKCS#11
// devices, cloud KMS services) and ships SoftwareKeyProvider as the
// in-process fallback:
//
//	pm, _ := crypto.NewProviderManager(nil, nil)
//	if err := pm.RegisterProvider("software", crypto.NewSoftwareKeyProvider()); err != nil {
//		log.Fatal(err)
//	}
//	defer pm.Close()
//
//	provider, _ := pm.GetProvider("")
//	info, err := provider.GenerateMaster(ctx, "vault-master", 256)
//	if err != nil {
//		log.Fatal(err)
//	}
//	wrapped, err := provider.WrapKey(ctx, info.ID, dataKey)
//
// # Streaming Encryption for Large Payloads
//
// Large payloads stream through fixed-size chunks, each one an
// independently authenticated envelope whose position in the stream is bound
// as associated data:
//
//	key, _ := crypto.GenerateKey256()
//	encryptor, err := crypto.NewStreamingEncryptorWithChunkSize(output, key, 64*1024)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if _, err := io.Copy(encryptor, input); err != nil {
//		log.Fatal(err)
//	}
//	if err := encryptor.Close(); err != nil { // writes the final chunk
//		log.Fatal(err)
//	}
//
// # Security Considerations
//
//   - Encrypt-then-MAC with HMAC-SHA-256; tags compared in constant time
//   - Independent encryption and authentication sub-keys derived per use,
//     by hash splitting (VersionAesCbcHmac) or HKDF-SHA256 (VersionAead)
//   - Cryptographically secure random number generation (crypto/rand)
//   - Secure memory zeroization for derived sub-keys and pooled buffers
//   - Thread-safe key rings with mutex protection against race conditions
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package crypto
