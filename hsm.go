// hsm.go: External key-provider plugin interface.
//
// Master keys do not have to live in process memory. This module defines a
// plugin-based provider architecture powered by github.com/agilira/go-plugins
// for backing the envelope operations with PKCS#11 devices, cloud KMS
// services, or an in-process software fallback. Providers only need the
// symmetric surface this library uses: random generation, master-key
// generation, and key wrap/unwrap.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"context"
	"fmt"
	"sync"
	"time"

	goerrors "github.com/agilira/go-errors"
	goplugins "github.com/agilira/go-plugins"
	"github.com/agilira/go-timecache"
)

// ProviderKeyInfo describes a master key held by a provider. The key
// material itself never leaves the provider for non-extractable keys.
type ProviderKeyInfo struct {
	ID          string    `json:"id"`          // Provider-scoped key identifier
	Label       string    `json:"label"`       // Human-readable label
	Bits        int       `json:"bits"`        // Key class: 128 or 256
	CreatedAt   time.Time `json:"created_at"`  // Creation timestamp
	Extractable bool      `json:"extractable"` // Whether raw key bytes can be exported
}

// KeyProvider is the interface every key-provider plugin implements.
//
// Wrap and unwrap follow this library's envelope semantics: a 128-bit
// provider key produces legacy unauthenticated wraps, a 256-bit key
// authenticated wraps. Hardware providers that implement their own
// wrapping format must still round-trip WrapKey/UnwrapKey losslessly.
type KeyProvider interface {
	// Provider information
	Name() string

	// Lifecycle management
	Initialize(ctx context.Context, config map[string]interface{}) error
	Close() error
	IsHealthy() bool

	// Key management
	GenerateMaster(ctx context.Context, label string, bits int) (*ProviderKeyInfo, error)
	ListKeys(ctx context.Context) ([]*ProviderKeyInfo, error)
	DeleteKey(ctx context.Context, keyID string) error

	// Cryptographic operations
	WrapKey(ctx context.Context, keyID string, key []byte) ([]byte, error)
	UnwrapKey(ctx context.Context, keyID string, wrappedKey []byte) ([]byte, error)
	GenerateRandom(ctx context.Context, length int) ([]byte, error)
}

// ProviderRequest represents a request routed to a provider plugin.
type ProviderRequest struct {
	Operation string                 `json:"operation"` // Operation type (wrap, unwrap, generate, random)
	KeyID     string                 `json:"key_id"`    // Key identifier for the operation
	Data      []byte                 `json:"data"`      // Operation payload
	Params    map[string]interface{} `json:"params"`    // Operation parameters
}

// ProviderResponse represents a response from a provider plugin.
type ProviderResponse struct {
	Success bool             `json:"success"`  // Operation success status
	Data    []byte           `json:"data"`     // Response payload
	KeyInfo *ProviderKeyInfo `json:"key_info"` // Key information (for key operations)
	Error   string           `json:"error"`    // Error message (if any)
}

// Common provider errors with codes for auditing
var (
	ErrProviderNotInitialized = goerrors.New("PROVIDER_001", "key provider not initialized")
	ErrProviderKeyNotFound    = goerrors.New("PROVIDER_002", "key not found in provider")
	ErrProviderNotFound       = goerrors.New("PROVIDER_003", "key provider not found")
	ErrProviderUnhealthy      = goerrors.New("PROVIDER_004", "key provider failed health check")
	ErrProviderInvalidParams  = goerrors.New("PROVIDER_005", "invalid provider operation parameters")
)

// ProviderManagerConfig configures the provider manager.
type ProviderManagerConfig struct {
	DefaultProvider  string                            `json:"default_provider"`  // Provider used when none is named
	ProviderConfigs  map[string]map[string]interface{} `json:"provider_configs"`  // Per-provider configurations
	OperationTimeout time.Duration                     `json:"operation_timeout"` // Default operation timeout
}

// ProviderManager manages key providers using the go-plugins framework.
// Out-of-process providers register through the plugin manager; in-process
// providers (such as SoftwareKeyProvider) register directly.
type ProviderManager struct {
	mu              sync.RWMutex
	pluginManager   *goplugins.Manager[ProviderRequest, ProviderResponse]
	activeProviders map[string]KeyProvider
	defaultProvider string
	config          *ProviderManagerConfig
}

// NewProviderManager creates a provider manager with plugin support.
func NewProviderManager(config *ProviderManagerConfig, pluginManager *goplugins.Manager[ProviderRequest, ProviderResponse]) (*ProviderManager, error) {
	if config == nil {
		config = &ProviderManagerConfig{
			OperationTimeout: 10 * time.Second,
		}
	}
	return &ProviderManager{
		pluginManager:   pluginManager,
		activeProviders: make(map[string]KeyProvider),
		config:          config,
	}, nil
}

// RegisterProvider initializes and registers a key provider.
func (m *ProviderManager) RegisterProvider(name string, provider KeyProvider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}

	ctx := context.Background()
	if timeout := m.config.OperationTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := provider.Initialize(ctx, m.config.ProviderConfigs[name]); err != nil {
		return fmt.Errorf("failed to initialize key provider %s: %w", name, err)
	}
	m.activeProviders[name] = provider

	if m.defaultProvider == "" || m.config.DefaultProvider == name {
		m.defaultProvider = name
	}
	return nil
}

// GetProvider returns a registered provider by name, or the default when
// name is empty. Unhealthy providers are never handed out.
func (m *ProviderManager) GetProvider(name string) (KeyProvider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if name == "" {
		name = m.defaultProvider
	}
	provider, exists := m.activeProviders[name]
	if !exists {
		return nil, fmt.Errorf("%w: provider %s", ErrProviderNotFound, name)
	}
	if !provider.IsHealthy() {
		return nil, fmt.Errorf("%w: provider %s", ErrProviderUnhealthy, name)
	}
	return provider, nil
}

// Close shuts down all registered providers.
func (m *ProviderManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, provider := range m.activeProviders {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to close some providers: %v", errs)
	}
	return nil
}

// SoftwareKeyProvider is an in-process KeyProvider backed by this
// library's envelope operations. It is the fallback for deployments
// without hardware and the reference implementation plugin authors can
// test against.
type SoftwareKeyProvider struct {
	mu          sync.RWMutex
	keys        map[string]*softwareKey
	initialized bool
	closed      bool
	nextID      int
}

type softwareKey struct {
	info *ProviderKeyInfo
	key  []byte
}

// NewSoftwareKeyProvider creates an uninitialized software provider;
// register it with a ProviderManager or call Initialize directly.
func NewSoftwareKeyProvider() *SoftwareKeyProvider {
	return &SoftwareKeyProvider{keys: make(map[string]*softwareKey)}
}

// Name implements KeyProvider.
func (p *SoftwareKeyProvider) Name() string { return "software" }

// Initialize implements KeyProvider. The software provider takes no
// configuration.
func (p *SoftwareKeyProvider) Initialize(_ context.Context, _ map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("%w: provider is closed", ErrProviderNotInitialized)
	}
	p.initialized = true
	return nil
}

// Close wipes all held key material.
func (p *SoftwareKeyProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, sk := range p.keys {
		Zeroize(sk.key)
	}
	p.keys = make(map[string]*softwareKey)
	p.initialized = false
	p.closed = true
	return nil
}

// IsHealthy reports whether the provider is initialized and usable.
func (p *SoftwareKeyProvider) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialized && !p.closed
}

// GenerateMaster generates and stores a master key of the given class.
func (p *SoftwareKeyProvider) GenerateMaster(_ context.Context, label string, bits int) (*ProviderKeyInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized || p.closed {
		return nil, ErrProviderNotInitialized
	}

	var key []byte
	var err error
	switch bits {
	case 128:
		key, err = GenerateKey128()
	case 256:
		key, err = GenerateKey256()
	default:
		return nil, fmt.Errorf("%w: master keys must be 128 or 256 bits, got %d", ErrProviderInvalidParams, bits)
	}
	if err != nil {
		return nil, err
	}

	p.nextID++
	info := &ProviderKeyInfo{
		ID:          fmt.Sprintf("swk_%04d", p.nextID),
		Label:       label,
		Bits:        bits,
		CreatedAt:   timecache.CachedTime().UTC(),
		Extractable: false,
	}
	p.keys[info.ID] = &softwareKey{info: info, key: key}
	return info, nil
}

// ListKeys returns metadata for all held keys.
func (p *SoftwareKeyProvider) ListKeys(_ context.Context) ([]*ProviderKeyInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.initialized || p.closed {
		return nil, ErrProviderNotInitialized
	}
	infos := make([]*ProviderKeyInfo, 0, len(p.keys))
	for _, sk := range p.keys {
		infos = append(infos, sk.info)
	}
	return infos, nil
}

// DeleteKey wipes and removes a key.
func (p *SoftwareKeyProvider) DeleteKey(_ context.Context, keyID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized || p.closed {
		return ErrProviderNotInitialized
	}
	sk, exists := p.keys[keyID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrProviderKeyNotFound, keyID)
	}
	Zeroize(sk.key)
	delete(p.keys, keyID)
	return nil
}

// WrapKey wraps a data key under a held master using the envelope facade.
func (p *SoftwareKeyProvider) WrapKey(_ context.Context, keyID string, key []byte) ([]byte, error) {
	sk, err := p.lookup(keyID)
	if err != nil {
		return nil, err
	}
	return EncryptKey(sk.key, key)
}

// UnwrapKey unwraps a data key wrapped by WrapKey.
func (p *SoftwareKeyProvider) UnwrapKey(_ context.Context, keyID string, wrappedKey []byte) ([]byte, error) {
	sk, err := p.lookup(keyID)
	if err != nil {
		return nil, err
	}
	return DecryptKey(sk.key, wrappedKey)
}

// GenerateRandom returns cryptographically secure random bytes.
func (p *SoftwareKeyProvider) GenerateRandom(_ context.Context, length int) ([]byte, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: length must be positive", ErrProviderInvalidParams)
	}
	return randomBytes(length, "PROVIDER_RANDOM_ERROR", "failed to generate random bytes")
}

func (p *SoftwareKeyProvider) lookup(keyID string) (*softwareKey, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.initialized || p.closed {
		return nil, ErrProviderNotInitialized
	}
	sk, exists := p.keys[keyID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderKeyNotFound, keyID)
	}
	return sk, nil
}
