package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

const (
	// scrypt parameters for the symmetric key schedule, N=2^18 (~256MB RAM).
	defaultScryptLogN = 18
	defaultScryptR    = 8
	defaultScryptP    = 1
	scryptKeyLen      = 32

	maxHashInputs = 16
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrInvalidPoint   = errors.New("invalid group element")
	ErrZeroScalar     = errors.New("scalar reduces to zero")
)

// BN254 implements Provider over the BN254 scalar field: gnark-crypto for field
// arithmetic, Poseidon for hashing, BabyJubJub for group operations and EdDSA,
// scrypt + AES-GCM for symmetric encryption.
type BN254 struct {
	rand io.Reader
	logN uint8
	r    uint8
	p    uint8
}

// Option configures a BN254 provider.
type Option func(*BN254)

// WithRand replaces the entropy source. Tests pass a seeded reader.
func WithRand(r io.Reader) Option {
	return func(b *BN254) {
		b.rand = r
	}
}

// WithScrypt overrides the scrypt cost used for new ciphertexts.
func WithScrypt(logN, r, p uint8) Option {
	return func(b *BN254) {
		b.logN, b.r, b.p = logN, r, p
	}
}

// NewBN254 creates the default provider.
func NewBN254(opts ...Option) *BN254 {
	b := &BN254{
		rand: rand.Reader,
		logN: defaultScryptLogN,
		r:    defaultScryptR,
		p:    defaultScryptP,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HashToField hashes arbitrary bytes into the field. Empty input hashes the single
// element 0, since HashBytes yields no value for it.
func (b *BN254) HashToField(data []byte) (Field, error) {
	var (
		h   *big.Int
		err error
	)
	if len(data) == 0 {
		h, err = poseidon.Hash([]*big.Int{big.NewInt(0)})
	} else {
		h, err = poseidon.HashBytes(data)
	}
	if err != nil {
		return Field{}, fmt.Errorf("failed to hash to field: %w", err)
	}
	if h == nil {
		return Field{}, errors.New("failed to hash to field: no digest")
	}
	return FieldFromBigInt(h), nil
}

func (b *BN254) Hash(inputs ...Field) (Field, error) {
	if len(inputs) == 0 || len(inputs) > maxHashInputs {
		return Field{}, fmt.Errorf("hash takes 1 to %d inputs, got %d", maxHashInputs, len(inputs))
	}
	in := make([]*big.Int, len(inputs))
	for i, f := range inputs {
		in[i] = f.BigInt()
	}
	h, err := poseidon.Hash(in)
	if err != nil {
		return Field{}, fmt.Errorf("failed to hash: %w", err)
	}
	return FieldFromBigInt(h), nil
}

func (b *BN254) Add(x, y Field) Field {
	ex, ey := element(x), element(y)
	ex.Add(&ex, &ey)
	return Field(ex.Bytes())
}

func (b *BN254) Sub(x, y Field) Field {
	ex, ey := element(x), element(y)
	ex.Sub(&ex, &ey)
	return Field(ex.Bytes())
}

func (b *BN254) Mul(x, y Field) Field {
	ex, ey := element(x), element(y)
	ex.Mul(&ex, &ey)
	return Field(ex.Bytes())
}

func (b *BN254) Div(x, y Field) (Field, error) {
	if y.IsZero() {
		return Field{}, ErrDivisionByZero
	}
	ex, ey := element(x), element(y)
	ex.Div(&ex, &ey)
	return Field(ex.Bytes()), nil
}

func (b *BN254) RandomField() (Field, error) {
	v, err := b.randomBelow(fr.Modulus())
	if err != nil {
		return Field{}, err
	}
	return FieldFromBigInt(v), nil
}

func (b *BN254) RandomScalar() (Scalar, error) {
	for {
		v, err := b.randomBelow(babyjub.SubOrder)
		if err != nil {
			return Scalar{}, err
		}
		if v.Sign() != 0 {
			return scalarFromBigInt(v), nil
		}
	}
}

func (b *BN254) ScalarFromField(f Field) (Scalar, error) {
	v := new(big.Int).Mod(f.BigInt(), babyjub.SubOrder)
	if v.Sign() == 0 {
		return Scalar{}, ErrZeroScalar
	}
	return scalarFromBigInt(v), nil
}

func (b *BN254) MulBase(s Scalar) (Point, error) {
	k := new(big.Int).SetBytes(s[:])
	if k.Sign() == 0 {
		return Point{}, ErrZeroScalar
	}
	return Point(babyjub.NewPoint().Mul(k, babyjub.B8).Compress()), nil
}

func (b *BN254) ScalarMul(p Point, s Scalar) (Point, error) {
	q, err := decompress(p)
	if err != nil {
		return Point{}, err
	}
	k := new(big.Int).SetBytes(s[:])
	if k.Sign() == 0 {
		return Point{}, ErrZeroScalar
	}
	return Point(babyjub.NewPoint().Mul(k, q).Compress()), nil
}

func (b *BN254) PointX(p Point) (Field, error) {
	q, err := decompress(p)
	if err != nil {
		return Field{}, err
	}
	return FieldFromBigInt(q.X), nil
}

func (b *BN254) SigningPublicKey(sk SigningKey) (Point, error) {
	k := babyjub.PrivateKey(sk)
	return Point(k.Public().Compress()), nil
}

func (b *BN254) Sign(sk SigningKey, msg []byte) ([]byte, error) {
	digest, err := poseidon.HashBytes(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}
	k := babyjub.PrivateKey(sk)
	sig := k.SignPoseidon(digest).Compress()
	return sig[:], nil
}

func (b *BN254) Verify(pk Point, msg, sig []byte) bool {
	if len(sig) != len(babyjub.SignatureComp{}) {
		return false
	}
	pkc := babyjub.PublicKeyComp(pk)
	pub, err := pkc.Decompress()
	if err != nil {
		return false
	}
	var comp [64]byte
	copy(comp[:], sig)
	s, err := new(babyjub.Signature).Decompress(comp)
	if err != nil {
		return false
	}
	digest, err := poseidon.HashBytes(msg)
	if err != nil {
		return false
	}
	return pub.VerifyPoseidon(digest, s)
}

// randomBelow draws 64 bytes and reduces them, keeping the modulo bias negligible.
func (b *BN254) randomBelow(modulus *big.Int) (*big.Int, error) {
	buf := make([]byte, 64)
	if _, err := io.ReadFull(b.rand, buf); err != nil {
		return nil, fmt.Errorf("failed to read randomness: %w", err)
	}
	defer clear(buf)
	return new(big.Int).Mod(new(big.Int).SetBytes(buf), modulus), nil
}

func element(f Field) fr.Element {
	var e fr.Element
	e.SetBytes(f[:])
	return e
}

func scalarFromBigInt(v *big.Int) Scalar {
	var s Scalar
	v.FillBytes(s[:])
	return s
}

func decompress(p Point) (*babyjub.Point, error) {
	q, err := babyjub.NewPoint().Decompress(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	if !q.InSubGroup() {
		return nil, ErrInvalidPoint
	}
	return q, nil
}
