package agent

import (
	"fmt"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/keystore"
)

// GenerateWallet generates a new account and saves its encrypted private key to
// a key file. Returns the generated address on success.
// password must be []byte for security (caller should zero it after use)
func GenerateWallet(m *account.Manager, filePath, network string, password []byte) (account.Address, error) {
	if err := keystore.CheckWritable(filePath); err != nil {
		return account.Address{}, err
	}

	acc, err := m.Generate()
	if err != nil {
		return account.Address{}, fmt.Errorf("failed to generate account: %w", err)
	}
	if err := SaveAccount(m, acc, filePath, network, password); err != nil {
		return account.Address{}, err
	}

	logger.Infof("generated account %s in %s", acc.Address(), filePath)
	return acc.Address(), nil
}

// SaveAccount encrypts an existing account (e.g. imported from a private key
// string) into a new key file.
func SaveAccount(m *account.Manager, acc *account.Account, filePath, network string, password []byte) error {
	ct, err := m.EncryptPrivateKey(acc, string(password))
	if err != nil {
		return fmt.Errorf("failed to encrypt private key: %w", err)
	}
	kf, err := keystore.NewKeyFile(network, acc.Address(), ct)
	if err != nil {
		return err
	}
	if err := keystore.Write(filePath, kf); err != nil {
		return fmt.Errorf("failed to save key file: %w", err)
	}
	return nil
}

// LoadAccount decrypts the key file and checks the recovered account against the
// address stored next to the ciphertext.
func LoadAccount(m *account.Manager, filePath string, password []byte) (*account.Account, error) {
	kf, err := keystore.Read(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	ct, err := keystore.Ciphertext(kf)
	if err != nil {
		return nil, err
	}

	acc, err := m.DecryptPrivateKey(ct, string(password))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt private key: %w", err)
	}
	if acc.Address().String() != kf.Address {
		return nil, fmt.Errorf("private key does not match address %s", kf.Address)
	}
	return acc, nil
}

// Rekey re-encrypts the key file under a new password. The old password must
// open it first.
func Rekey(m *account.Manager, filePath string, oldPassword, newPassword []byte) (account.Address, error) {
	acc, err := LoadAccount(m, filePath, oldPassword)
	if err != nil {
		return account.Address{}, err
	}
	ct, err := m.EncryptPrivateKey(acc, string(newPassword))
	if err != nil {
		return account.Address{}, fmt.Errorf("failed to encrypt private key: %w", err)
	}
	if err := keystore.Replace(filePath, ct); err != nil {
		return account.Address{}, err
	}
	logger.Infof("re-encrypted key file %s", filePath)
	return acc.Address(), nil
}
