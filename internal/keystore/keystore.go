// Package keystore reads and writes the password-protected key backup file.
package keystore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/AlexZinkM/record-agent/internal/account"
	"github.com/AlexZinkM/record-agent/internal/crypto"
	"github.com/AlexZinkM/record-agent/internal/jsonx"
	"github.com/AlexZinkM/record-agent/internal/model"
)

// Extension is the required suffix of key backup files.
const Extension = ".akey"

// FileExistsError is an error when file already exists and is not empty
type FileExistsError struct {
	Path string
}

func (e *FileExistsError) Error() string {
	return fmt.Sprintf("file %s is not empty", e.Path)
}

// IsFileExistsError checks if error is FileExistsError
func IsFileExistsError(err error) bool {
	var target *FileExistsError
	return errors.As(err, &target)
}

// NewKeyFile builds the envelope for an encrypted private key, including a QR
// code of the address.
func NewKeyFile(network string, addr account.Address, ct crypto.Ciphertext) (*model.KeyFile, error) {
	qr, err := generateQRCode(addr.String())
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return &model.KeyFile{
		Network:    network,
		Address:    addr.String(),
		QR:         qr,
		CipherText: ct.String(),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// CheckWritable fails when filePath has the wrong extension or already holds data.
func CheckWritable(filePath string) error {
	if filepath.Ext(filePath) != Extension {
		return fmt.Errorf("file must have %s extension", Extension)
	}
	if info, err := os.Stat(filePath); err == nil && info.Size() > 0 {
		return &FileExistsError{Path: filePath}
	}
	return nil
}

// Write stores kf at filePath. An existing non-empty file is never overwritten.
func Write(filePath string, kf *model.KeyFile) error {
	if err := CheckWritable(filePath); err != nil {
		return err
	}

	data, err := jsonx.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal key file: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// Replace overwrites the ciphertext of an existing key file, keeping the rest
// of the envelope. It writes to a temporary file first and renames it over.
func Replace(filePath string, ct crypto.Ciphertext) error {
	kf, err := Read(filePath)
	if err != nil {
		return err
	}
	kf.CipherText = ct.String()

	data, err := jsonx.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal key file: %w", err)
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace key file: %w", err)
	}
	return nil
}

// Read loads and parses the key file without decrypting it.
func Read(filePath string) (*model.KeyFile, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("file does not exist")
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() == 0 {
		return nil, errors.New("file is empty")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Skip UTF-8 BOM if present
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}

	var kf model.KeyFile
	if err := jsonx.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key file: %w", err)
	}
	if kf.Address == "" || kf.CipherText == "" {
		return nil, errors.New("key file is missing address or cipherText")
	}
	return &kf, nil
}

// ReadAddress reads only the address from the key file (without decryption)
func ReadAddress(filePath string) (account.Address, error) {
	kf, err := Read(filePath)
	if err != nil {
		return account.Address{}, err
	}
	addr, err := account.ParseAddress(kf.Address)
	if err != nil {
		return account.Address{}, fmt.Errorf("key file address: %w", err)
	}
	return addr, nil
}

// Ciphertext returns the parsed encrypted private key of kf.
func Ciphertext(kf *model.KeyFile) (crypto.Ciphertext, error) {
	ct, err := crypto.ParseCiphertext(kf.CipherText)
	if err != nil {
		return crypto.Ciphertext{}, fmt.Errorf("key file cipherText: %w", err)
	}
	return ct, nil
}

// generateQRCode generates QR code of address in base64
func generateQRCode(address string) (string, error) {
	qr, err := qrcode.New(address, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate PNG: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
