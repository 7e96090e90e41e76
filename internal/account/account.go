// Package account derives accounts from private keys, renders their canonical
// strings and backs up private keys under a password.
package account

import (
	"github.com/AlexZinkM/record-agent/internal/crypto"
	"github.com/AlexZinkM/record-agent/internal/errs"
)

// PrivateKey is the account seed together with the signing material derived from it.
type PrivateKey struct {
	seed  crypto.Field
	skSig crypto.SigningKey
	rSig  crypto.Scalar
	pkSig crypto.Point
	prSig crypto.Point
}

// Seed returns the field element the whole account is derived from.
func (k PrivateKey) Seed() crypto.Field {
	return k.seed
}

func (k PrivateKey) String() string {
	return encodeChecked(privateKeyPrefix, k.seed[:])
}

// ViewKey decrypts records owned by the account but cannot authorize spends.
type ViewKey crypto.Scalar

// Scalar returns the view key as a group scalar.
func (v ViewKey) Scalar() crypto.Scalar {
	return crypto.Scalar(v)
}

func (v ViewKey) String() string {
	return encodeChecked(viewKeyPrefix, v[:])
}

// ParseViewKey parses the canonical view key string.
func ParseViewKey(s string) (ViewKey, error) {
	raw, err := decodeChecked(viewKeyPrefix, s, len(ViewKey{}))
	if err != nil {
		return ViewKey{}, errs.Validation("invalid view key: %v", err)
	}
	var v ViewKey
	copy(v[:], raw)
	return v, nil
}

// Address is the public identity of an account: viewKey·B.
type Address crypto.Point

// Point returns the address as a group element.
func (a Address) Point() crypto.Point {
	return crypto.Point(a)
}

func (a Address) String() string {
	return encodeChecked(addressPrefix, a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses the canonical address string. Curve membership is checked
// by the provider when the address is used.
func ParseAddress(s string) (Address, error) {
	raw, err := decodeChecked(addressPrefix, s, len(Address{}))
	if err != nil {
		return Address{}, errs.Validation("invalid address: %v", err)
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

// Account is an internally consistent {private key, view key, address} triple.
// It is only built by Manager, never from loose parts.
type Account struct {
	privateKey PrivateKey
	viewKey    ViewKey
	address    Address
}

func (a *Account) PrivateKey() PrivateKey {
	return a.privateKey
}

func (a *Account) ViewKey() ViewKey {
	return a.viewKey
}

func (a *Account) Address() Address {
	return a.address
}

// String prints the address only, so accounts never leak keys into logs.
func (a *Account) String() string {
	return a.address.String()
}
