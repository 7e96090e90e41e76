package crypto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const (
	ciphertextPrefix  = "ciphertext1"
	ciphertextVersion = 1
	saltLen           = 32
	nonceLen          = 12
	headerLen         = 4
)

// Ciphertext is the output of symmetric encryption. It carries the key schedule
// parameters it was produced with, so changing the defaults never orphans old
// backups.
type Ciphertext struct {
	LogN  uint8
	R     uint8
	P     uint8
	Salt  [saltLen]byte
	Nonce [nonceLen]byte
	Data  []byte
}

// String returns the canonical "ciphertext1..." encoding.
func (c Ciphertext) String() string {
	raw := make([]byte, 0, headerLen+saltLen+nonceLen+len(c.Data))
	raw = append(raw, ciphertextVersion, c.LogN, c.R, c.P)
	raw = append(raw, c.Salt[:]...)
	raw = append(raw, c.Nonce[:]...)
	raw = append(raw, c.Data...)
	return ciphertextPrefix + base58.Encode(raw)
}

// MarshalText implements encoding.TextMarshaler.
func (c Ciphertext) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Ciphertext) UnmarshalText(text []byte) error {
	parsed, err := ParseCiphertext(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCiphertext decodes the canonical string form.
func ParseCiphertext(s string) (Ciphertext, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, ciphertextPrefix) {
		return Ciphertext{}, errors.New("ciphertext must start with " + ciphertextPrefix)
	}
	raw, err := base58.Decode(strings.TrimPrefix(s, ciphertextPrefix))
	if err != nil {
		return Ciphertext{}, fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(raw) <= headerLen+saltLen+nonceLen {
		return Ciphertext{}, errors.New("ciphertext is too short")
	}
	if raw[0] != ciphertextVersion {
		return Ciphertext{}, fmt.Errorf("unsupported ciphertext version %d", raw[0])
	}

	c := Ciphertext{LogN: raw[1], R: raw[2], P: raw[3]}
	raw = raw[headerLen:]
	copy(c.Salt[:], raw[:saltLen])
	copy(c.Nonce[:], raw[saltLen:saltLen+nonceLen])
	c.Data = append([]byte(nil), raw[saltLen+nonceLen:]...)
	return c, nil
}
