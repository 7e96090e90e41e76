package account

import (
	"fmt"

	"github.com/AlexZinkM/record-agent/internal/crypto"
	"github.com/AlexZinkM/record-agent/internal/errs"
)

const sigLen = 64

// Signature carries the public signing material alongside the signature itself,
// so a verifier only needs the signer's address.
type Signature struct {
	sig   [sigLen]byte
	pkSig crypto.Point
	prSig crypto.Point
}

func (s Signature) String() string {
	raw := make([]byte, 0, sigLen+2*len(crypto.Point{}))
	raw = append(raw, s.sig[:]...)
	raw = append(raw, s.pkSig[:]...)
	raw = append(raw, s.prSig[:]...)
	return encodeChecked(signaturePrefix, raw)
}

// ParseSignature parses "sign1...".
func ParseSignature(s string) (Signature, error) {
	raw, err := decodeChecked(signaturePrefix, s, sigLen+2*len(crypto.Point{}))
	if err != nil {
		return Signature{}, errs.Validation("invalid signature: %v", err)
	}
	var sig Signature
	copy(sig.sig[:], raw[:sigLen])
	copy(sig.pkSig[:], raw[sigLen:sigLen+32])
	copy(sig.prSig[:], raw[sigLen+32:])
	return sig, nil
}

// Sign signs msg with the account's signing key.
func (m *Manager) Sign(acc *Account, msg []byte) (Signature, error) {
	raw, err := m.provider.Sign(acc.privateKey.skSig, msg)
	if err != nil {
		return Signature{}, errs.Crypto("sign", err)
	}
	if len(raw) != sigLen {
		return Signature{}, errs.Crypto("sign", fmt.Errorf("unexpected signature length %d", len(raw)))
	}
	sig := Signature{pkSig: acc.privateKey.pkSig, prSig: acc.privateKey.prSig}
	copy(sig.sig[:], raw)
	return sig, nil
}

// Verify checks that sig over msg was produced by the account behind addr.
func (m *Manager) Verify(addr Address, msg []byte, sig Signature) bool {
	vk, err := m.viewKeyFrom(sig.pkSig, sig.prSig)
	if err != nil {
		return false
	}
	derived, err := m.provider.MulBase(vk.Scalar())
	if err != nil || Address(derived) != addr {
		return false
	}
	return m.provider.Verify(sig.pkSig, msg, sig.sig[:])
}
