package account

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

const (
	privateKeyPrefix = "APrivateKey1"
	viewKeyPrefix    = "AViewKey1"
	addressPrefix    = "aleo1"
	signaturePrefix  = "sign1"
	checksumLen      = 4
)

func checksum(prefix string, payload []byte) []byte {
	h := sha3.New256()
	h.Write([]byte(prefix))
	h.Write(payload)
	return h.Sum(nil)[:checksumLen]
}

// encodeChecked renders prefix ‖ base58(payload ‖ checksum).
func encodeChecked(prefix string, payload []byte) string {
	raw := make([]byte, 0, len(payload)+checksumLen)
	raw = append(raw, payload...)
	raw = append(raw, checksum(prefix, payload)...)
	return prefix + base58.Encode(raw)
}

// decodeChecked reverses encodeChecked and expects exactly n payload bytes.
func decodeChecked(prefix, s string, n int) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, prefix) {
		return nil, fmt.Errorf("expected prefix %s", prefix)
	}
	raw, err := base58.Decode(strings.TrimPrefix(s, prefix))
	if err != nil {
		return nil, fmt.Errorf("invalid base58: %w", err)
	}
	if len(raw) != n+checksumLen {
		return nil, fmt.Errorf("invalid length %d", len(raw))
	}
	payload, sum := raw[:n], raw[n:]
	if !bytes.Equal(sum, checksum(prefix, payload)) {
		return nil, fmt.Errorf("checksum mismatch")
	}
	return payload, nil
}
