package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/crypto"
	"github.com/AlexZinkM/record-agent/internal/errs"
)

func setup(t *testing.T) (crypto.Provider, *account.Account, *account.Account) {
	t.Helper()
	p := crypto.NewBN254(crypto.WithScrypt(10, 8, 1))
	m := account.NewManager(p)
	alice, err := m.FromSeed(1)
	require.NoError(t, err)
	bob, err := m.FromSeed(2)
	require.NoError(t, err)
	return p, alice, bob
}

func credits(owner account.Address, amount uint64) Plaintext {
	return Plaintext{
		Owner: owner,
		Entries: []Entry{
			{Name: MicrocreditsEntry, Type: U64, Visibility: Private, Value: crypto.FieldFromUint64(amount)},
			{Name: "memo", Type: FieldType, Visibility: Public, Value: crypto.FieldFromUint64(9)},
		},
	}
}

func addrX(t *testing.T, p crypto.Provider, a *account.Account) crypto.Field {
	t.Helper()
	x, err := p.PointX(a.Address().Point())
	require.NoError(t, err)
	return x
}

func TestEncryptDecrypt(t *testing.T) {
	p, alice, _ := setup(t)
	r, err := p.RandomScalar()
	require.NoError(t, err)

	ct, err := Encrypt(p, credits(alice.Address(), 1_500_000), r)
	require.NoError(t, err)

	// private entries are masked, public ones are not
	assert.NotEqual(t, crypto.FieldFromUint64(1_500_000), ct.Entries[0].Value)
	assert.Equal(t, crypto.FieldFromUint64(9), ct.Entries[1].Value)

	pt, err := ct.Decrypt(p, alice.ViewKey())
	require.NoError(t, err)
	assert.Equal(t, alice.Address(), pt.Owner)
	assert.Equal(t, ct.Nonce, pt.Nonce)

	amount, err := pt.Microcredits()
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), amount)
}

func TestOwnershipSoundness(t *testing.T) {
	p, alice, bob := setup(t)
	r, err := p.RandomScalar()
	require.NoError(t, err)

	ct, err := Encrypt(p, credits(alice.Address(), 10), r)
	require.NoError(t, err)

	assert.True(t, ct.IsOwner(p, alice.ViewKey(), addrX(t, p, alice)))
	assert.False(t, ct.IsOwner(p, bob.ViewKey(), addrX(t, p, bob)))

	_, err = ct.Decrypt(p, bob.ViewKey())
	require.Error(t, err)
	assert.True(t, errs.IsCrypto(err))
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestMicrocreditsMissing(t *testing.T) {
	pt := Plaintext{Entries: []Entry{{Name: "data", Type: FieldType, Visibility: Private}}}
	_, err := pt.Microcredits()
	assert.ErrorIs(t, err, ErrNoMicrocredits)
}

func TestCiphertextString(t *testing.T) {
	p, alice, _ := setup(t)
	r, err := p.RandomScalar()
	require.NoError(t, err)
	ct, err := Encrypt(p, credits(alice.Address(), 42), r)
	require.NoError(t, err)

	parsed, err := ParseCiphertext(ct.String())
	require.NoError(t, err)
	assert.Equal(t, ct, parsed)

	_, err = ParseCiphertext("ciphertext1abc")
	assert.True(t, errs.IsValidation(err))
}

func TestPlaintextText(t *testing.T) {
	p, alice, _ := setup(t)
	r, err := p.RandomScalar()
	require.NoError(t, err)
	ct, err := Encrypt(p, credits(alice.Address(), 100), r)
	require.NoError(t, err)
	pt, err := ct.Decrypt(p, alice.ViewKey())
	require.NoError(t, err)

	text := pt.String()
	assert.Contains(t, text, "owner: "+alice.Address().String()+".private")
	assert.Contains(t, text, "microcredits: 100u64.private")
	assert.Contains(t, text, "memo: 9field.public")
	assert.Contains(t, text, "_nonce: "+pt.Nonce.String()+".public")

	parsed, err := ParsePlaintext(text)
	require.NoError(t, err)
	assert.Equal(t, pt, parsed)
}

func TestParsePlaintextRejects(t *testing.T) {
	for name, in := range map[string]string{
		"no braces":  "owner: x.private",
		"no nonce":   "{ microcredits: 1u64.private }",
		"bad vis":    "{ microcredits: 1u64.secret }",
		"bad suffix": "{ microcredits: 1i32.private }",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePlaintext(in)
			assert.True(t, errs.IsValidation(err), "got %v", err)
		})
	}
}

func TestSerialNumberIsDeterministic(t *testing.T) {
	p, alice, bob := setup(t)
	commitment := crypto.FieldFromUint64(1234)

	s1, err := SerialNumber(p, alice.PrivateKey(), commitment)
	require.NoError(t, err)
	s2, err := SerialNumber(p, alice.PrivateKey(), commitment)
	require.NoError(t, err)
	s3, err := SerialNumber(p, bob.PrivateKey(), commitment)
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
	assert.NotEqual(t, s1, s3)
}

func TestCommitmentBindsContent(t *testing.T) {
	p, alice, _ := setup(t)
	r, err := p.RandomScalar()
	require.NoError(t, err)
	ct, err := Encrypt(p, credits(alice.Address(), 5), r)
	require.NoError(t, err)
	pt, err := ct.Decrypt(p, alice.ViewKey())
	require.NoError(t, err)

	c1, err := Commitment(p, pt)
	require.NoError(t, err)

	pt.Entries[0].Value = crypto.FieldFromUint64(6)
	c2, err := Commitment(p, pt)
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)
}
