package crypto

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap scrypt cost keeps the symmetric tests fast
func newTestProvider() *BN254 {
	return NewBN254(WithScrypt(10, 8, 1))
}

func TestFieldArithmetic(t *testing.T) {
	p := newTestProvider()
	a, b := FieldFromUint64(21), FieldFromUint64(2)

	assert.Equal(t, FieldFromUint64(23), p.Add(a, b))
	assert.Equal(t, FieldFromUint64(19), p.Sub(a, b))
	assert.Equal(t, FieldFromUint64(42), p.Mul(a, b))

	q, err := p.Div(p.Mul(a, b), b)
	require.NoError(t, err)
	assert.Equal(t, a, q)

	// wraps around the modulus
	minusOne := p.Sub(FieldFromUint64(0), FieldFromUint64(1))
	assert.Equal(t, new(big.Int).Sub(fr.Modulus(), big.NewInt(1)), minusOne.BigInt())
	assert.True(t, p.Add(minusOne, FieldFromUint64(1)).IsZero())
}

func TestDivByZero(t *testing.T) {
	p := newTestProvider()
	_, err := p.Div(FieldFromUint64(7), Field{})
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestHashIsDeterministicAndOrderSensitive(t *testing.T) {
	p := newTestProvider()
	a, b := FieldFromUint64(1), FieldFromUint64(2)

	h1, err := p.Hash(a, b)
	require.NoError(t, err)
	h2, err := p.Hash(a, b)
	require.NoError(t, err)
	h3, err := p.Hash(b, a)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)

	_, err = p.Hash()
	assert.Error(t, err)
}

func TestHashToFieldSeparatesDomains(t *testing.T) {
	p := newTestProvider()
	d1, err := p.HashToField([]byte("private_key"))
	require.NoError(t, err)
	d2, err := p.HashToField([]byte("view_key"))
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}

func TestHashToFieldEmptyInput(t *testing.T) {
	p := newTestProvider()
	empty, err := p.HashToField(nil)
	require.NoError(t, err)
	again, err := p.HashToField([]byte{})
	require.NoError(t, err)
	assert.Equal(t, empty, again)
	assert.False(t, empty.IsZero())

	named, err := p.HashToField([]byte("private_key"))
	require.NoError(t, err)
	assert.NotEqual(t, empty, named)
}

func TestScalarMulCommutes(t *testing.T) {
	p := newTestProvider()
	a, err := p.RandomScalar()
	require.NoError(t, err)
	b, err := p.RandomScalar()
	require.NoError(t, err)

	aB, err := p.MulBase(a)
	require.NoError(t, err)
	bB, err := p.MulBase(b)
	require.NoError(t, err)

	abB, err := p.ScalarMul(aB, b)
	require.NoError(t, err)
	baB, err := p.ScalarMul(bB, a)
	require.NoError(t, err)
	assert.Equal(t, abB, baB)

	x1, err := p.PointX(abB)
	require.NoError(t, err)
	x2, err := p.PointX(baB)
	require.NoError(t, err)
	assert.Equal(t, x1, x2)
}

func TestPointXRejectsGarbage(t *testing.T) {
	p := newTestProvider()
	var bad Point
	for i := range bad {
		bad[i] = 0xff
	}
	_, err := p.PointX(bad)
	assert.ErrorIs(t, err, ErrInvalidPoint)
}

func TestScalarFromFieldRejectsZero(t *testing.T) {
	p := newTestProvider()
	_, err := p.ScalarFromField(Field{})
	assert.ErrorIs(t, err, ErrZeroScalar)
}

func TestSymmetricRoundTrip(t *testing.T) {
	p := newTestProvider()
	key, err := p.RandomField()
	require.NoError(t, err)

	pt := Plaintext{
		{Name: "key", Value: FieldFromUint64(99)},
		{Name: "nonce", Value: FieldFromUint64(7)},
	}
	ct, err := p.EncryptSymmetric(pt, key)
	require.NoError(t, err)

	got, err := p.DecryptSymmetric(ct, key)
	require.NoError(t, err)
	assert.Equal(t, pt, got)

	v, err := got.Find("nonce")
	require.NoError(t, err)
	assert.Equal(t, FieldFromUint64(7), v)

	_, err = got.Find("missing")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestSymmetricFreshness(t *testing.T) {
	p := newTestProvider()
	key := FieldFromUint64(5)
	pt := Plaintext{{Name: "key", Value: FieldFromUint64(1)}}

	c1, err := p.EncryptSymmetric(pt, key)
	require.NoError(t, err)
	c2, err := p.EncryptSymmetric(pt, key)
	require.NoError(t, err)
	assert.NotEqual(t, c1.String(), c2.String())
}

func TestSymmetricWrongKey(t *testing.T) {
	p := newTestProvider()
	pt := Plaintext{{Name: "key", Value: FieldFromUint64(1)}}
	ct, err := p.EncryptSymmetric(pt, FieldFromUint64(5))
	require.NoError(t, err)

	_, err = p.DecryptSymmetric(ct, FieldFromUint64(6))
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestSymmetricTamperedHeader(t *testing.T) {
	p := newTestProvider()
	key := FieldFromUint64(5)
	ct, err := p.EncryptSymmetric(Plaintext{{Name: "key", Value: FieldFromUint64(1)}}, key)
	require.NoError(t, err)

	ct.R = 9
	_, err = p.DecryptSymmetric(ct, key)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestCiphertextString(t *testing.T) {
	p := newTestProvider()
	ct, err := p.EncryptSymmetric(Plaintext{{Name: "key", Value: FieldFromUint64(1)}}, FieldFromUint64(5))
	require.NoError(t, err)

	parsed, err := ParseCiphertext(ct.String())
	require.NoError(t, err)
	assert.Equal(t, ct, parsed)

	_, err = ParseCiphertext("record1abc")
	assert.Error(t, err)
	_, err = ParseCiphertext("ciphertext1")
	assert.Error(t, err)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("42field")
	require.NoError(t, err)
	assert.Equal(t, FieldFromUint64(42), f)
	assert.Equal(t, "42field", f.String())

	_, err = ParseField(fr.Modulus().String() + "field")
	assert.Error(t, err)
	_, err = ParseField("-1field")
	assert.Error(t, err)
	_, err = ParseField("field")
	assert.Error(t, err)
}

func TestPointString(t *testing.T) {
	p := newTestProvider()
	s, err := p.RandomScalar()
	require.NoError(t, err)
	pt, err := p.MulBase(s)
	require.NoError(t, err)

	parsed, err := ParsePoint(pt.String())
	require.NoError(t, err)
	assert.Equal(t, pt, parsed)
}

func TestSignVerify(t *testing.T) {
	p := newTestProvider()
	sk := SigningKey(FieldFromUint64(12345))
	pk, err := p.SigningPublicKey(sk)
	require.NoError(t, err)

	msg := []byte("transfer 1000000u64")
	sig, err := p.Sign(sk, msg)
	require.NoError(t, err)

	assert.True(t, p.Verify(pk, msg, sig))
	assert.False(t, p.Verify(pk, []byte("transfer 1000001u64"), sig))
	assert.False(t, p.Verify(pk, msg, sig[:10]))
}
