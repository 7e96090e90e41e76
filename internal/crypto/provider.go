// Package crypto holds the cryptographic capability the agent is written against:
// field arithmetic, a collision-resistant field hash, curve operations, symmetric
// encryption of structured plaintexts and signatures.
//
// The rest of the module depends only on the Provider interface; BN254 is the
// implementation used in production and in tests.
package crypto

// Provider is the capability injected into the key manager, record decryption and
// the scanner.
type Provider interface {
	// HashToField maps arbitrary bytes (domain separators, secrets) to a field element.
	HashToField(data []byte) (Field, error)
	// Hash is the field-native hash over one or more field elements.
	Hash(inputs ...Field) (Field, error)

	Add(a, b Field) Field
	Sub(a, b Field) Field
	Mul(a, b Field) Field
	// Div returns a / b and fails when b is zero.
	Div(a, b Field) (Field, error)
	// RandomField samples a uniformly random field element.
	RandomField() (Field, error)
	// RandomScalar samples a uniformly random non-zero group scalar.
	RandomScalar() (Scalar, error)

	// ScalarFromField reduces a field element into the group scalar field.
	ScalarFromField(f Field) (Scalar, error)
	// MulBase returns s·B for the fixed generator B.
	MulBase(s Scalar) (Point, error)
	// ScalarMul returns s·p.
	ScalarMul(p Point, s Scalar) (Point, error)
	// PointX returns the affine x coordinate of p.
	PointX(p Point) (Field, error)

	// EncryptSymmetric encrypts a structured plaintext under a field key.
	EncryptSymmetric(pt Plaintext, key Field) (Ciphertext, error)
	// DecryptSymmetric fails if ct was not produced under key.
	DecryptSymmetric(ct Ciphertext, key Field) (Plaintext, error)

	// SigningPublicKey returns the verification key for a signing key.
	SigningPublicKey(sk SigningKey) (Point, error)
	Sign(sk SigningKey, msg []byte) ([]byte, error)
	Verify(pk Point, msg, sig []byte) bool
}
