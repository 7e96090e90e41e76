package crypto

import (
	"errors"
	"fmt"
)

// ErrDecrypt means the ciphertext was not produced under the given key, or was
// tampered with.
var ErrDecrypt = errors.New("invalid key or corrupted ciphertext")

// DecryptSymmetric reverses EncryptSymmetric using the parameters recorded in ct.
func (b *BN254) DecryptSymmetric(ct Ciphertext, key Field) (Plaintext, error) {
	aesGCM, err := newGCM(key, ct)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesGCM.Open(nil, ct.Nonce[:], ct.Data, ct.header())
	if err != nil {
		return nil, ErrDecrypt
	}
	defer clear(plaintext)

	pt, err := unmarshalPlaintext(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal plaintext: %w", err)
	}
	return pt, nil
}
