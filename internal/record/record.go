// Package record implements confidential records: the encrypted form published on
// chain and the plaintext form recovered with a view key.
package record

import (
	"errors"
	"fmt"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/crypto"
	"github.com/AlexZinkM/record-agent/internal/errs"
)

// MicrocreditsEntry names the balance entry of a credits record.
const MicrocreditsEntry = "microcredits"

var (
	// ErrNotOwner is returned when a record is decrypted with a view key that does
	// not own it.
	ErrNotOwner = errors.New("view key does not own the record")
	// ErrNoMicrocredits is returned when a record has no u64 microcredits entry.
	ErrNoMicrocredits = errors.New("record has no microcredits entry")
)

// EntryType is the type of a record entry value.
type EntryType uint8

const (
	U64 EntryType = iota + 1
	FieldType
)

func (t EntryType) String() string {
	switch t {
	case U64:
		return "u64"
	case FieldType:
		return "field"
	default:
		return fmt.Sprintf("EntryType(%d)", uint8(t))
	}
}

// Visibility says whether an entry is masked in the ciphertext.
type Visibility uint8

const (
	Private Visibility = iota + 1
	Public
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case Public:
		return "public"
	default:
		return fmt.Sprintf("Visibility(%d)", uint8(v))
	}
}

// Entry is a named record value. In a Ciphertext, private entry values are masked.
type Entry struct {
	Name       string
	Type       EntryType
	Visibility Visibility
	Value      crypto.Field
}

// Ciphertext is a record as published on chain.
type Ciphertext struct {
	Owner   crypto.Field
	Entries []Entry
	Nonce   crypto.Point
}

// Plaintext is a decrypted record.
type Plaintext struct {
	Owner   account.Address
	Entries []Entry
	Nonce   crypto.Point
}

// Entry returns the entry called name.
func (p Plaintext) Entry(name string) (Entry, bool) {
	for _, e := range p.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Microcredits returns the record balance.
func (p Plaintext) Microcredits() (uint64, error) {
	e, ok := p.Entry(MicrocreditsEntry)
	if !ok || e.Type != U64 {
		return 0, ErrNoMicrocredits
	}
	v, ok := e.Value.Uint64()
	if !ok {
		return 0, fmt.Errorf("microcredits value %s overflows u64", e.Value)
	}
	return v, nil
}

// Encrypt publishes pt under randomizer r: the nonce is r·B and the record view key
// is X(r·owner), which the owner recomputes as X(viewKey·nonce). Any nonce carried
// by pt is ignored.
func Encrypt(p crypto.Provider, pt Plaintext, r crypto.Scalar) (Ciphertext, error) {
	nonce, err := p.MulBase(r)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("failed to derive nonce: %w", err)
	}
	shared, err := p.ScalarMul(pt.Owner.Point(), r)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("failed to derive record view key: %w", err)
	}
	rvk, err := p.PointX(shared)
	if err != nil {
		return Ciphertext{}, err
	}
	ownerX, err := p.PointX(pt.Owner.Point())
	if err != nil {
		return Ciphertext{}, err
	}

	ownerMask, err := p.Hash(rvk, crypto.FieldFromUint64(0))
	if err != nil {
		return Ciphertext{}, err
	}
	entries, err := applyMasks(p, rvk, pt.Entries, p.Add)
	if err != nil {
		return Ciphertext{}, err
	}
	return Ciphertext{Owner: p.Add(ownerX, ownerMask), Entries: entries, Nonce: nonce}, nil
}

// IsOwner reports whether the holder of vk (whose address has x coordinate addrX)
// owns c. It costs one scalar multiplication and one hash; no entry is decrypted.
func (c Ciphertext) IsOwner(p crypto.Provider, vk account.ViewKey, addrX crypto.Field) bool {
	rvk, err := recordViewKey(p, c.Nonce, vk)
	if err != nil {
		return false
	}
	mask, err := p.Hash(rvk, crypto.FieldFromUint64(0))
	if err != nil {
		return false
	}
	return p.Sub(c.Owner, mask) == addrX
}

// Decrypt recovers the plaintext. It fails with ErrNotOwner for a view key that
// does not own the record rather than returning garbage.
func (c Ciphertext) Decrypt(p crypto.Provider, vk account.ViewKey) (Plaintext, error) {
	addr, err := p.MulBase(vk.Scalar())
	if err != nil {
		return Plaintext{}, errs.Crypto("decrypt record", err)
	}
	addrX, err := p.PointX(addr)
	if err != nil {
		return Plaintext{}, errs.Crypto("decrypt record", err)
	}
	rvk, err := recordViewKey(p, c.Nonce, vk)
	if err != nil {
		return Plaintext{}, errs.Crypto("decrypt record", err)
	}
	mask, err := p.Hash(rvk, crypto.FieldFromUint64(0))
	if err != nil {
		return Plaintext{}, errs.Crypto("decrypt record", err)
	}
	if p.Sub(c.Owner, mask) != addrX {
		return Plaintext{}, errs.Crypto("decrypt record", ErrNotOwner)
	}

	entries, err := applyMasks(p, rvk, c.Entries, p.Sub)
	if err != nil {
		return Plaintext{}, errs.Crypto("decrypt record", err)
	}
	for _, e := range entries {
		if e.Type == U64 {
			if _, ok := e.Value.Uint64(); !ok {
				return Plaintext{}, errs.Crypto("decrypt record", fmt.Errorf("entry %s is not a u64", e.Name))
			}
		}
	}
	return Plaintext{Owner: account.Address(addr), Entries: entries, Nonce: c.Nonce}, nil
}

func recordViewKey(p crypto.Provider, nonce crypto.Point, vk account.ViewKey) (crypto.Field, error) {
	shared, err := p.ScalarMul(nonce, vk.Scalar())
	if err != nil {
		return crypto.Field{}, err
	}
	return p.PointX(shared)
}

// applyMasks adds (encrypt) or subtracts (decrypt) Hash(rvk, i+1) on every private
// entry i. Public entries pass through.
func applyMasks(p crypto.Provider, rvk crypto.Field, in []Entry, op func(a, b crypto.Field) crypto.Field) ([]Entry, error) {
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = e
		if e.Visibility != Private {
			continue
		}
		mask, err := p.Hash(rvk, crypto.FieldFromUint64(uint64(i)+1))
		if err != nil {
			return nil, err
		}
		out[i].Value = op(e.Value, mask)
	}
	return out, nil
}
