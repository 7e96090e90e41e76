package account

import (
	"fmt"

	"github.com/AlexZinkM/record-agent/internal/crypto"
	"github.com/AlexZinkM/record-agent/internal/errs"
)

// PrivateKeyDomain separates private key backups from any other field encrypted
// with the same password.
const PrivateKeyDomain = "private_key"

const (
	memberKey   = "key"
	memberNonce = "nonce"
)

// EncryptField hides f under secret. The domain is mixed into the blinding factor,
// so the same (f, secret) under two domains never shares a key.
//
//	blinding = Hash(H(domain), nonce, H(secret))
//	ciphertext = Enc({key: blinding*f, nonce}, H(secret))
func (m *Manager) EncryptField(f crypto.Field, secret, domain string) (crypto.Ciphertext, error) {
	if secret == "" {
		return crypto.Ciphertext{}, errs.Validation("secret must not be empty")
	}
	p := m.provider

	domainField, err := p.HashToField([]byte(domain))
	if err != nil {
		return crypto.Ciphertext{}, err
	}
	secretField, err := p.HashToField([]byte(secret))
	if err != nil {
		return crypto.Ciphertext{}, err
	}
	nonce, err := p.RandomField()
	if err != nil {
		return crypto.Ciphertext{}, fmt.Errorf("failed to sample nonce: %w", err)
	}
	blinding, err := p.Hash(domainField, nonce, secretField)
	if err != nil {
		return crypto.Ciphertext{}, err
	}

	pt := crypto.Plaintext{
		{Name: memberKey, Value: p.Mul(blinding, f)},
		{Name: memberNonce, Value: nonce},
	}
	ct, err := p.EncryptSymmetric(pt, secretField)
	if err != nil {
		return crypto.Ciphertext{}, errs.Crypto("encrypt field", err)
	}
	return ct, nil
}

// DecryptField reverses EncryptField. A wrong secret is rejected by the symmetric
// layer; a wrong domain yields a different field element.
func (m *Manager) DecryptField(ct crypto.Ciphertext, secret, domain string) (crypto.Field, error) {
	if secret == "" {
		return crypto.Field{}, errs.Validation("secret must not be empty")
	}
	p := m.provider

	domainField, err := p.HashToField([]byte(domain))
	if err != nil {
		return crypto.Field{}, err
	}
	secretField, err := p.HashToField([]byte(secret))
	if err != nil {
		return crypto.Field{}, err
	}

	pt, err := p.DecryptSymmetric(ct, secretField)
	if err != nil {
		return crypto.Field{}, errs.Crypto("decrypt field", err)
	}
	key, err := pt.Find(memberKey)
	if err != nil {
		return crypto.Field{}, errs.Crypto("decrypt field", err)
	}
	nonce, err := pt.Find(memberNonce)
	if err != nil {
		return crypto.Field{}, errs.Crypto("decrypt field", err)
	}

	blinding, err := p.Hash(domainField, nonce, secretField)
	if err != nil {
		return crypto.Field{}, err
	}
	f, err := p.Div(key, blinding)
	if err != nil {
		return crypto.Field{}, errs.Crypto("decrypt field", err)
	}
	return f, nil
}

// EncryptPrivateKey backs up the account's private key under secret.
func (m *Manager) EncryptPrivateKey(acc *Account, secret string) (crypto.Ciphertext, error) {
	return m.EncryptField(acc.privateKey.seed, secret, PrivateKeyDomain)
}

// DecryptPrivateKey recovers the account from a backup made by EncryptPrivateKey.
func (m *Manager) DecryptPrivateKey(ct crypto.Ciphertext, secret string) (*Account, error) {
	seed, err := m.DecryptField(ct, secret, PrivateKeyDomain)
	if err != nil {
		return nil, err
	}
	acc, err := m.fromSeedField(seed)
	if err != nil {
		return nil, errs.Crypto("recover private key", err)
	}
	return acc, nil
}
