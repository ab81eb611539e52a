// keyring.go: Master-key generations, rotation and wrap-at-rest.
//
// A Keyring tracks versioned master keys ("generations") and wraps data
// keys under the active generation using the envelope facade. Legacy
// 128-bit masters are first-class citizens here because deployed data
// still references them, but the only rotation target is 256-bit: once a
// legacy master is upgraded, every new wrap is authenticated.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	goerrors "github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// KeyGeneration represents one versioned master key.
type KeyGeneration struct {
	ID         string    `json:"id"`         // Unique identifier for the generation
	Key        []byte    `json:"-"`          // The master key (never serialized)
	Generation int       `json:"generation"` // Incremental generation number
	Bits       int       `json:"bits"`       // Key class: 128 (legacy) or 256
	CreatedAt  time.Time `json:"created_at"` // Creation timestamp
	Status     string    `json:"status"`     // "pending", "active", "deprecated", "revoked"
	Purpose    string    `json:"purpose"`    // Free-form purpose label
}

// Key generation status constants.
const (
	StatusPending    = "pending"    // Generated, not yet activated
	StatusActive     = "active"     // Current wrap target
	StatusDeprecated = "deprecated" // Unwrap-only, superseded by a newer generation
	StatusRevoked    = "revoked"    // Unusable, key material wiped
)

// Error codes for keyring operations
const (
	ErrCodeGenerationNotFound = "KEYRING_GENERATION_NOT_FOUND"
	ErrCodeGenerationInactive = "KEYRING_GENERATION_INACTIVE"
	ErrCodeKeyGeneration      = "KEYRING_KEY_GENERATION"
	ErrCodeKeyRotation        = "KEYRING_KEY_ROTATION"
	ErrCodeKeySerialization   = "KEYRING_KEY_SERIALIZATION"
)

// Keyring manages master-key generations. Safe for concurrent use.
type Keyring struct {
	mu             sync.RWMutex
	active         *KeyGeneration
	previous       *KeyGeneration
	generations    map[string]*KeyGeneration
	maxGenerations int
}

// NewKeyring creates an empty keyring keeping up to 10 generations.
func NewKeyring() *Keyring {
	return &Keyring{
		generations:    make(map[string]*KeyGeneration),
		maxGenerations: 10,
	}
}

// NewKeyringWithOptions creates a keyring with a custom generation limit.
func NewKeyringWithOptions(maxGenerations int) *Keyring {
	kr := NewKeyring()
	kr.maxGenerations = maxGenerations
	return kr
}

// GenerateMaster generates a new master key generation in pending state.
// bits must be 128 or 256; 128 exists only to model legacy deployments.
func (kr *Keyring) GenerateMaster(purpose string, bits int) (*KeyGeneration, error) {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	return kr.generateMasterLocked(purpose, bits)
}

func (kr *Keyring) generateMasterLocked(purpose string, bits int) (*KeyGeneration, error) {
	var key []byte
	var err error
	switch bits {
	case 128:
		key, err = GenerateKey128()
	case 256:
		key, err = GenerateKey256()
	default:
		richErr := goerrors.New(ErrCodeKeyGeneration, fmt.Sprintf("master keys must be 128 or 256 bits, got %d", bits))
		return nil, fmt.Errorf("key generation failed: %w", richErr)
	}
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeKeyGeneration, "failed to generate master key")
		return nil, fmt.Errorf("key generation failed: %w", richErr)
	}

	idBytes := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, idBytes); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeKeyGeneration, "failed to generate generation ID")
		return nil, fmt.Errorf("generation ID failed: %w", richErr)
	}

	generation := &KeyGeneration{
		ID:         fmt.Sprintf("mk_%x", idBytes),
		Key:        key,
		Generation: kr.nextGeneration(),
		Bits:       bits,
		CreatedAt:  timecache.CachedTime().UTC(),
		Status:     StatusPending,
		Purpose:    purpose,
	}
	kr.generations[generation.ID] = generation
	return generation, nil
}

// ActivateMaster promotes a generation to the active wrap target. The
// previously active generation is kept deprecated so existing wraps can
// still be opened.
func (kr *Keyring) ActivateMaster(id string) error {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	return kr.activateMasterLocked(id)
}

func (kr *Keyring) activateMasterLocked(id string) error {
	generation, exists := kr.generations[id]
	if !exists {
		richErr := goerrors.New(ErrCodeGenerationNotFound, fmt.Sprintf("generation %s not found", id))
		return fmt.Errorf("generation not found: %w", richErr)
	}
	if generation.Status == StatusRevoked {
		richErr := goerrors.New(ErrCodeGenerationInactive, fmt.Sprintf("cannot activate revoked generation %s", id))
		return fmt.Errorf("generation revoked: %w", richErr)
	}
	if err := ValidateKeyLength(generation.Key); err != nil {
		return err
	}

	if kr.active != nil {
		kr.previous = kr.active
		kr.active.Status = StatusDeprecated
	}
	generation.Status = StatusActive
	kr.active = generation
	return nil
}

// RotateMaster generates and activates a fresh 256-bit master in one step.
func (kr *Keyring) RotateMaster(purpose string) (*KeyGeneration, error) {
	kr.mu.Lock()
	defer kr.mu.Unlock()

	generation, err := kr.generateMasterLocked(purpose, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate new master: %w", err)
	}
	if err := kr.activateMasterLocked(generation.ID); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeKeyRotation, "failed to activate new master")
		return nil, fmt.Errorf("master rotation failed: %w", richErr)
	}
	kr.cleanupOldGenerations()
	return generation, nil
}

// UpgradeLegacyMaster rotates a 128-bit active master to 256-bit. This is
// the operational form of the rule that legacy keys are always rotated to
// 256-bit before authentication is mandated; it fails if the active
// master is already 256-bit.
func (kr *Keyring) UpgradeLegacyMaster(purpose string) (*KeyGeneration, error) {
	kr.mu.Lock()
	defer kr.mu.Unlock()

	if kr.active == nil {
		richErr := goerrors.New(ErrCodeGenerationNotFound, "no active master to upgrade")
		return nil, fmt.Errorf("no active master: %w", richErr)
	}
	if kr.active.Bits != 128 {
		richErr := goerrors.New(ErrCodeKeyRotation, "active master is not a legacy 128-bit key")
		return nil, fmt.Errorf("nothing to upgrade: %w", richErr)
	}

	generation, err := kr.generateMasterLocked(purpose, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate upgraded master: %w", err)
	}
	if err := kr.activateMasterLocked(generation.ID); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeKeyRotation, "failed to activate upgraded master")
		return nil, fmt.Errorf("legacy upgrade failed: %w", richErr)
	}
	kr.cleanupOldGenerations()
	return generation, nil
}

// WrapKey wraps a data key under the active master and returns the wrapped
// bytes plus the generation ID needed to unwrap later. 128-bit masters
// produce legacy unauthenticated wraps, 256-bit masters authenticated
// wraps; the envelope facade enforces that mapping.
func (kr *Keyring) WrapKey(key []byte) ([]byte, string, error) {
	kr.mu.RLock()
	active := kr.active
	kr.mu.RUnlock()

	if active == nil || active.Status != StatusActive {
		richErr := goerrors.New(ErrCodeGenerationInactive, "no active master generation")
		return nil, "", fmt.Errorf("no active master: %w", richErr)
	}

	wrapped, err := EncryptKey(active.Key, key)
	if err != nil {
		return nil, "", fmt.Errorf("key wrap failed: %w", err)
	}
	return wrapped, active.ID, nil
}

// UnwrapKey unwraps a data key using the named generation, which may be
// deprecated (legacy data) but not revoked.
func (kr *Keyring) UnwrapKey(wrapped []byte, generationID string) ([]byte, error) {
	generation, err := kr.MasterByID(generationID)
	if err != nil {
		return nil, err
	}
	key, err := DecryptKey(generation.Key, wrapped)
	if err != nil {
		return nil, fmt.Errorf("key unwrap failed: %w", err)
	}
	return key, nil
}

// RewrapKey unwraps a data key from an old generation and wraps it under
// the active one. Used during rotation to migrate stored wraps without
// exposing the data key to the caller.
func (kr *Keyring) RewrapKey(wrapped []byte, fromGenerationID string) ([]byte, string, error) {
	key, err := kr.UnwrapKey(wrapped, fromGenerationID)
	if err != nil {
		return nil, "", err
	}
	defer Zeroize(key)
	return kr.WrapKey(key)
}

// ActiveMaster returns the currently active generation.
func (kr *Keyring) ActiveMaster() (*KeyGeneration, error) {
	kr.mu.RLock()
	defer kr.mu.RUnlock()

	if kr.active == nil {
		richErr := goerrors.New(ErrCodeGenerationNotFound, "no active master generation")
		return nil, fmt.Errorf("no active master: %w", richErr)
	}
	return kr.active, nil
}

// MasterByID returns a specific generation by ID for legacy unwrapping.
func (kr *Keyring) MasterByID(id string) (*KeyGeneration, error) {
	kr.mu.RLock()
	defer kr.mu.RUnlock()

	generation, exists := kr.generations[id]
	if !exists {
		richErr := goerrors.New(ErrCodeGenerationNotFound, fmt.Sprintf("generation %s not found", id))
		return nil, fmt.Errorf("generation not found: %w", richErr)
	}
	if generation.Status == StatusRevoked {
		richErr := goerrors.New(ErrCodeGenerationInactive, fmt.Sprintf("generation %s is revoked", id))
		return nil, fmt.Errorf("generation revoked: %w", richErr)
	}
	return generation, nil
}

// ListGenerations returns metadata copies of all generations, without key
// material.
func (kr *Keyring) ListGenerations() []*KeyGeneration {
	kr.mu.RLock()
	defer kr.mu.RUnlock()

	generations := make([]*KeyGeneration, 0, len(kr.generations))
	for _, generation := range kr.generations {
		generations = append(generations, &KeyGeneration{
			ID:         generation.ID,
			Generation: generation.Generation,
			Bits:       generation.Bits,
			CreatedAt:  generation.CreatedAt,
			Status:     generation.Status,
			Purpose:    generation.Purpose,
		})
	}
	return generations
}

// RevokeMaster revokes a generation and wipes its key material. The active
// generation cannot be revoked; rotate first.
func (kr *Keyring) RevokeMaster(id string) error {
	kr.mu.Lock()
	defer kr.mu.Unlock()

	generation, exists := kr.generations[id]
	if !exists {
		richErr := goerrors.New(ErrCodeGenerationNotFound, fmt.Sprintf("generation %s not found", id))
		return fmt.Errorf("generation not found: %w", richErr)
	}
	if kr.active != nil && kr.active.ID == id {
		richErr := goerrors.New(ErrCodeKeyRotation, "cannot revoke the active master - rotate first")
		return fmt.Errorf("cannot revoke active master: %w", richErr)
	}

	generation.Status = StatusRevoked
	Zeroize(generation.Key)
	generation.Key = nil
	return nil
}

// Export serializes keyring metadata as JSON. Key material is never
// included; this is for auditing and persistence of the generation map.
func (kr *Keyring) Export() ([]byte, error) {
	kr.mu.RLock()
	defer kr.mu.RUnlock()

	exportData := struct {
		Generations    []*KeyGeneration `json:"generations"`
		ActiveMaster   string           `json:"active_master,omitempty"`
		PreviousMaster string           `json:"previous_master,omitempty"`
		MaxGenerations int              `json:"max_generations"`
	}{
		MaxGenerations: kr.maxGenerations,
	}
	for _, generation := range kr.generations {
		exportData.Generations = append(exportData.Generations, &KeyGeneration{
			ID:         generation.ID,
			Generation: generation.Generation,
			Bits:       generation.Bits,
			CreatedAt:  generation.CreatedAt,
			Status:     generation.Status,
			Purpose:    generation.Purpose,
		})
	}
	if kr.active != nil {
		exportData.ActiveMaster = kr.active.ID
	}
	if kr.previous != nil {
		exportData.PreviousMaster = kr.previous.ID
	}

	data, err := json.Marshal(exportData)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeKeySerialization, "failed to marshal keyring metadata")
		return nil, fmt.Errorf("export failed: %w", richErr)
	}
	return data, nil
}

func (kr *Keyring) nextGeneration() int {
	maxGeneration := 0
	for _, generation := range kr.generations {
		if generation.Generation > maxGeneration {
			maxGeneration = generation.Generation
		}
	}
	return maxGeneration + 1
}

// cleanupOldGenerations drops revoked generations beyond the limit. The
// active and previous generations are always kept.
func (kr *Keyring) cleanupOldGenerations() {
	if len(kr.generations) <= kr.maxGenerations {
		return
	}
	for id, generation := range kr.generations {
		if generation.Status != StatusRevoked {
			continue
		}
		if kr.active != nil && kr.active.ID == id {
			continue
		}
		if kr.previous != nil && kr.previous.ID == id {
			continue
		}
		Zeroize(generation.Key)
		delete(kr.generations, id)
	}
}
