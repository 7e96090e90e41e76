package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// EncryptSymmetric encrypts pt under key with AES-GCM. The AES key is stretched from
// the field key with scrypt and a fresh salt; a fresh GCM nonce is drawn per call,
// so encrypting the same plaintext twice never yields the same ciphertext.
func (b *BN254) EncryptSymmetric(pt Plaintext, key Field) (Ciphertext, error) {
	ct := Ciphertext{LogN: b.logN, R: b.r, P: b.p}

	if _, err := io.ReadFull(b.rand, ct.Salt[:]); err != nil {
		return Ciphertext{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	if _, err := io.ReadFull(b.rand, ct.Nonce[:]); err != nil {
		return Ciphertext{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesGCM, err := newGCM(key, ct)
	if err != nil {
		return Ciphertext{}, err
	}

	plaintext, err := pt.marshal()
	if err != nil {
		return Ciphertext{}, fmt.Errorf("failed to marshal plaintext: %w", err)
	}
	defer clear(plaintext)

	ct.Data = aesGCM.Seal(nil, ct.Nonce[:], plaintext, ct.header())
	return ct, nil
}

// header is bound into the GCM tag so the cost parameters cannot be swapped.
func (c Ciphertext) header() []byte {
	return []byte{ciphertextVersion, c.LogN, c.R, c.P}
}

func newGCM(key Field, ct Ciphertext) (cipher.AEAD, error) {
	if ct.LogN == 0 || ct.LogN > 30 || ct.R == 0 || ct.P == 0 {
		return nil, fmt.Errorf("invalid scrypt parameters logN=%d r=%d p=%d", ct.LogN, ct.R, ct.P)
	}

	// Derive AES key from the field key
	aesKey, err := scrypt.Key(key[:], ct.Salt[:], 1<<ct.LogN, int(ct.R), int(ct.P), scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(aesKey)

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
