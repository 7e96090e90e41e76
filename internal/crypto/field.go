package crypto

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/mr-tron/base58"
)

const (
	fieldSuffix = "field"
	groupSuffix = "group"
)

// Field is a canonical big-endian element of the BN254 scalar field.
type Field [32]byte

// Scalar is an element of the BabyJubJub prime-order subgroup scalar field.
type Scalar [32]byte

// Point is a compressed BabyJubJub point.
type Point [32]byte

// SigningKey is the secret material a signature is produced from.
type SigningKey [32]byte

// FieldFromUint64 returns the field element holding v.
func FieldFromUint64(v uint64) Field {
	var e fr.Element
	e.SetUint64(v)
	return Field(e.Bytes())
}

// FieldFromBigInt reduces v modulo the field order.
func FieldFromBigInt(v *big.Int) Field {
	var e fr.Element
	e.SetBigInt(v)
	return Field(e.Bytes())
}

// BigInt returns f as an integer.
func (f Field) BigInt() *big.Int {
	return new(big.Int).SetBytes(f[:])
}

// Uint64 returns f when it fits in 64 bits.
func (f Field) Uint64() (uint64, bool) {
	v := f.BigInt()
	if !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}

// IsZero reports whether f is the additive identity.
func (f Field) IsZero() bool {
	return f == Field{}
}

// String renders f in its text form, e.g. "42field".
func (f Field) String() string {
	return f.BigInt().String() + fieldSuffix
}

// MarshalText implements encoding.TextMarshaler.
func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Field) UnmarshalText(text []byte) error {
	parsed, err := ParseField(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseField parses "<decimal>field" (the suffix is optional) and rejects values
// outside the field.
func ParseField(s string) (Field, error) {
	digits := strings.TrimSuffix(strings.TrimSpace(s), fieldSuffix)
	if digits == "" {
		return Field{}, fmt.Errorf("empty field literal")
	}
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok || v.Sign() < 0 {
		return Field{}, fmt.Errorf("invalid field literal %q", s)
	}
	if v.Cmp(fr.Modulus()) >= 0 {
		return Field{}, fmt.Errorf("field literal %q exceeds the modulus", s)
	}
	var f Field
	v.FillBytes(f[:])
	return f, nil
}

// FieldFromBytes interprets b as a big-endian canonical field element.
func FieldFromBytes(b []byte) (Field, error) {
	if len(b) != len(Field{}) {
		return Field{}, fmt.Errorf("invalid field length %d", len(b))
	}
	var f Field
	copy(f[:], b)
	if f.BigInt().Cmp(fr.Modulus()) >= 0 {
		return Field{}, fmt.Errorf("non-canonical field element")
	}
	return f, nil
}

// String renders p as "<base58>group".
func (p Point) String() string {
	return base58.Encode(p[:]) + groupSuffix
}

// MarshalText implements encoding.TextMarshaler.
func (p Point) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Point) UnmarshalText(text []byte) error {
	parsed, err := ParsePoint(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePoint parses the text form produced by Point.String. It does not check
// that the point is on the curve; the provider does that on use.
func ParsePoint(s string) (Point, error) {
	raw, err := base58.Decode(strings.TrimSuffix(strings.TrimSpace(s), groupSuffix))
	if err != nil {
		return Point{}, fmt.Errorf("invalid group literal %q: %w", s, err)
	}
	if len(raw) != len(Point{}) {
		return Point{}, fmt.Errorf("invalid group literal length %d", len(raw))
	}
	var p Point
	copy(p[:], raw)
	return p, nil
}
