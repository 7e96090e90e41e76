package keystore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/crypto"
)

func backup(t *testing.T) (*account.Manager, *account.Account, crypto.Ciphertext) {
	t.Helper()
	m := account.NewManager(crypto.NewBN254(crypto.WithScrypt(10, 8, 1)))
	acc, err := m.FromSeed(3)
	require.NoError(t, err)
	ct, err := m.EncryptPrivateKey(acc, "hunter2")
	require.NoError(t, err)
	return m, acc, ct
}

func TestWriteReadRoundTrip(t *testing.T) {
	m, acc, ct := backup(t)
	path := filepath.Join(t.TempDir(), "agent"+Extension)

	kf, err := NewKeyFile("testnet", acc.Address(), ct)
	require.NoError(t, err)
	assert.NotEmpty(t, kf.QR)
	require.NoError(t, Write(path, kf))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	addr, err := ReadAddress(path)
	require.NoError(t, err)
	assert.Equal(t, acc.Address(), addr)

	read, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "testnet", read.Network)

	parsed, err := Ciphertext(read)
	require.NoError(t, err)
	recovered, err := m.DecryptPrivateKey(parsed, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, acc.PrivateKey().String(), recovered.PrivateKey().String())
}

func TestWriteRefusesNonEmptyFile(t *testing.T) {
	_, acc, ct := backup(t)
	path := filepath.Join(t.TempDir(), "agent"+Extension)
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	kf, err := NewKeyFile("testnet", acc.Address(), ct)
	require.NoError(t, err)
	err = Write(path, kf)
	require.Error(t, err)
	assert.True(t, IsFileExistsError(err))
}

func TestWriteAcceptsEmptyFile(t *testing.T) {
	_, acc, ct := backup(t)
	path := filepath.Join(t.TempDir(), "agent"+Extension)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	kf, err := NewKeyFile("testnet", acc.Address(), ct)
	require.NoError(t, err)
	assert.NoError(t, Write(path, kf))
}

func TestWriteRejectsExtension(t *testing.T) {
	_, acc, ct := backup(t)
	kf, err := NewKeyFile("testnet", acc.Address(), ct)
	require.NoError(t, err)

	err = Write(filepath.Join(t.TempDir(), "agent.json"), kf)
	assert.ErrorContains(t, err, Extension)
}

func TestReadSkipsBOM(t *testing.T) {
	_, acc, ct := backup(t)
	path := filepath.Join(t.TempDir(), "agent"+Extension)
	body := `{"network":"testnet","address":"` + acc.Address().String() + `","cipherText":"` + ct.String() + `"}`
	require.NoError(t, os.WriteFile(path, append([]byte{0xEF, 0xBB, 0xBF}, body...), 0o600))

	addr, err := ReadAddress(path)
	require.NoError(t, err)
	assert.Equal(t, acc.Address(), addr)
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Read(filepath.Join(dir, "missing"+Extension))
	assert.ErrorContains(t, err, "does not exist")

	empty := filepath.Join(dir, "empty"+Extension)
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = Read(empty)
	assert.ErrorContains(t, err, "empty")

	partial := filepath.Join(dir, "partial"+Extension)
	require.NoError(t, os.WriteFile(partial, []byte(`{"network":"testnet"}`), 0o600))
	_, err = Read(partial)
	assert.ErrorContains(t, err, "missing")
}

func TestReplaceKeepsEnvelope(t *testing.T) {
	m, acc, ct := backup(t)
	path := filepath.Join(t.TempDir(), "agent"+Extension)
	kf, err := NewKeyFile("testnet", acc.Address(), ct)
	require.NoError(t, err)
	require.NoError(t, Write(path, kf))

	rekeyed, err := m.EncryptPrivateKey(acc, "correct horse")
	require.NoError(t, err)
	require.NoError(t, Replace(path, rekeyed))

	read, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, kf.QR, read.QR)
	assert.Equal(t, kf.CreatedAt, read.CreatedAt)

	parsed, err := Ciphertext(read)
	require.NoError(t, err)
	_, err = m.DecryptPrivateKey(parsed, "hunter2")
	assert.Error(t, err)
	recovered, err := m.DecryptPrivateKey(parsed, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, acc.Address(), recovered.Address())
}
