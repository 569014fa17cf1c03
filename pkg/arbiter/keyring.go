package arbiter

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeyProvider abstracts the signing backend so the in-memory keys used in
// development can be swapped for an HSM or cloud KMS.
type KeyProvider interface {
	Sign(msg []byte) ([]byte, error)
	PublicKey() ed25519.PublicKey
	seed() []byte
}

// MemoryKeyProvider holds an Ed25519 keypair in process memory.
type MemoryKeyProvider struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewMemoryKeyProvider generates a fresh random keypair.
func NewMemoryKeyProvider() (*MemoryKeyProvider, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &MemoryKeyProvider{pub: pub, priv: priv}, nil
}

// NewMemoryKeyProviderFromSeed builds a deterministic keypair from a
// 32-byte seed.
func NewMemoryKeyProviderFromSeed(seed []byte) (*MemoryKeyProvider, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &MemoryKeyProvider{pub: priv.Public().(ed25519.PublicKey), priv: priv}, nil
}

func (m *MemoryKeyProvider) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(m.priv, msg), nil
}

func (m *MemoryKeyProvider) PublicKey() ed25519.PublicKey { return m.pub }

func (m *MemoryKeyProvider) seed() []byte { return m.priv.Seed() }

// Keyring signs arbitration artifacts for one tenant, or acts as the
// master ring tenant rings derive from.
type Keyring struct {
	provider KeyProvider
}

// NewKeyring wraps a provider.
func NewKeyring(p KeyProvider) *Keyring {
	return &Keyring{provider: p}
}

// PublicKey exposes the verification key.
func (k *Keyring) PublicKey() ed25519.PublicKey { return k.provider.PublicKey() }

// DeriveForTenant derives a deterministic tenant keypair with
// HKDF-SHA256: the master seed is the input key material and the tenant
// id the info parameter. The same master and tenant always yield the
// same keypair, so verification keys can be recomputed anywhere the
// master is held.
func (k *Keyring) DeriveForTenant(tenantID string) (*Keyring, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id must not be empty")
	}
	reader := hkdf.New(sha256.New, k.provider.seed(), []byte("plang-tenant-kdf"), []byte(tenantID))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(reader, seed); err != nil {
		return nil, fmt.Errorf("hkdf derivation failed: %w", err)
	}
	provider, err := NewMemoryKeyProviderFromSeed(seed)
	if err != nil {
		return nil, err
	}
	return NewKeyring(provider), nil
}
