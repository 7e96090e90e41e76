package record

import (
	"fmt"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/crypto"
)

const (
	commitmentDomain   = "commitment"
	serialNumberDomain = "serial_number"
)

// Commitment computes the content address of a plaintext record. The chain reports
// commitments for every published record; this is for records built locally.
func Commitment(p crypto.Provider, pt Plaintext) (crypto.Field, error) {
	domain, err := p.HashToField([]byte(commitmentDomain))
	if err != nil {
		return crypto.Field{}, err
	}
	ownerX, err := p.PointX(pt.Owner.Point())
	if err != nil {
		return crypto.Field{}, fmt.Errorf("invalid owner: %w", err)
	}
	nonceX, err := p.PointX(pt.Nonce)
	if err != nil {
		return crypto.Field{}, fmt.Errorf("invalid nonce: %w", err)
	}

	inputs := make([]crypto.Field, 0, len(pt.Entries)+3)
	inputs = append(inputs, domain, ownerX)
	for _, e := range pt.Entries {
		inputs = append(inputs, e.Value)
	}
	inputs = append(inputs, nonceX)
	return p.Hash(inputs...)
}

// SerialNumber derives the spend tag of the record with the given commitment. Only
// the holder of the private key can compute it, and it is deterministic, so a
// record is spent exactly when a transition on chain reveals this value.
func SerialNumber(p crypto.Provider, pk account.PrivateKey, commitment crypto.Field) (crypto.Field, error) {
	domain, err := p.HashToField([]byte(serialNumberDomain))
	if err != nil {
		return crypto.Field{}, err
	}
	return p.Hash(domain, pk.Seed(), commitment)
}
