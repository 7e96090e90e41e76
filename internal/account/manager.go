package account

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/sha3"

	"github.com/AlexZinkM/record-agent/internal/crypto"
	"github.com/AlexZinkM/record-agent/internal/errs"
)

const (
	signingKeyDomain = "account_sk_sig"
	randomizerDomain = "account_r_sig"
)

// Manager creates accounts and owns every operation that touches private key
// material. It is safe for concurrent use if the provider is.
type Manager struct {
	provider crypto.Provider
}

// NewManager returns a Manager backed by provider.
func NewManager(provider crypto.Provider) *Manager {
	return &Manager{provider: provider}
}

// Provider returns the cryptographic capability the manager was built with.
func (m *Manager) Provider() crypto.Provider {
	return m.provider
}

// Generate creates a fresh account from the provider's entropy source.
func (m *Manager) Generate() (*Account, error) {
	seed, err := m.provider.RandomField()
	if err != nil {
		return nil, fmt.Errorf("failed to sample seed: %w", err)
	}
	return m.fromSeedField(seed)
}

// FromSeed deterministically derives an account from a 64-bit seed. The same seed
// always produces the same account.
func (m *Manager) FromSeed(seed uint64) (*Account, error) {
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], seed)
	key := sha3.Sum256(le[:])

	stream, err := chacha20.NewUnauthenticatedCipher(key[:], make([]byte, chacha20.NonceSize))
	if err != nil {
		return nil, fmt.Errorf("failed to init seed rng: %w", err)
	}
	buf := make([]byte, 64)
	stream.XORKeyStream(buf, buf)
	defer clear(buf)

	return m.fromSeedField(crypto.FieldFromBigInt(new(big.Int).SetBytes(buf)))
}

// FromPrivateKeyString parses "APrivateKey1..." and derives the account.
func (m *Manager) FromPrivateKeyString(s string) (*Account, error) {
	raw, err := decodeChecked(privateKeyPrefix, s, len(crypto.Field{}))
	if err != nil {
		return nil, errs.Validation("invalid private key: %v", err)
	}
	seed, err := crypto.FieldFromBytes(raw)
	if err != nil {
		return nil, errs.Validation("invalid private key: %v", err)
	}
	acc, err := m.fromSeedField(seed)
	if err != nil {
		return nil, errs.Validation("invalid private key: %v", err)
	}
	return acc, nil
}

// ParseAddress parses an address string and checks that it is a valid group element.
func (m *Manager) ParseAddress(s string) (Address, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return Address{}, err
	}
	if _, err := m.provider.PointX(addr.Point()); err != nil {
		return Address{}, errs.Validation("invalid address: %v", err)
	}
	return addr, nil
}

// fromSeedField runs the whole derivation chain, so an Account can never hold a
// view key or address that does not belong to its private key.
func (m *Manager) fromSeedField(seed crypto.Field) (*Account, error) {
	p := m.provider

	skDomain, err := p.HashToField([]byte(signingKeyDomain))
	if err != nil {
		return nil, err
	}
	skField, err := p.Hash(skDomain, seed)
	if err != nil {
		return nil, err
	}
	rDomain, err := p.HashToField([]byte(randomizerDomain))
	if err != nil {
		return nil, err
	}
	rField, err := p.Hash(rDomain, seed)
	if err != nil {
		return nil, err
	}
	rSig, err := p.ScalarFromField(rField)
	if err != nil {
		return nil, fmt.Errorf("failed to derive randomizer: %w", err)
	}

	pk := PrivateKey{seed: seed, skSig: crypto.SigningKey(skField), rSig: rSig}
	if pk.pkSig, err = p.SigningPublicKey(pk.skSig); err != nil {
		return nil, fmt.Errorf("failed to derive signing public key: %w", err)
	}
	if pk.prSig, err = p.MulBase(rSig); err != nil {
		return nil, fmt.Errorf("failed to derive randomizer point: %w", err)
	}

	vk, err := m.viewKeyFrom(pk.pkSig, pk.prSig)
	if err != nil {
		return nil, err
	}
	addr, err := p.MulBase(vk.Scalar())
	if err != nil {
		return nil, fmt.Errorf("failed to derive address: %w", err)
	}

	return &Account{privateKey: pk, viewKey: vk, address: Address(addr)}, nil
}

func (m *Manager) viewKeyFrom(pkSig, prSig crypto.Point) (ViewKey, error) {
	pkX, err := m.provider.PointX(pkSig)
	if err != nil {
		return ViewKey{}, err
	}
	prX, err := m.provider.PointX(prSig)
	if err != nil {
		return ViewKey{}, err
	}
	h, err := m.provider.Hash(pkX, prX)
	if err != nil {
		return ViewKey{}, err
	}
	s, err := m.provider.ScalarFromField(h)
	if err != nil {
		return ViewKey{}, fmt.Errorf("failed to derive view key: %w", err)
	}
	return ViewKey(s), nil
}
