// Package errs defines the error kinds surfaced by the agent. Callers branch on
// the kind with the Is* helpers; messages stay wrapped with fmt.Errorf elsewhere.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError is raised before any network or crypto work: malformed ranges,
// identifiers or insufficient record balances.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation builds a ValidationError from a format string.
func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// CryptoError is raised when decryption yields an invalid structure, key recovery
// fails or a signature does not verify.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// Crypto wraps err as a CryptoError for the named operation.
func Crypto(op string, err error) error {
	return &CryptoError{Op: op, Err: err}
}

// NetworkError is a non-success response or a transport failure talking to the
// chain service. StatusCode is zero for transport failures.
type NetworkError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request to %s failed (status code %d: %q)", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("request to %s failed (%v)", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DecodeError means a response body does not match the expected schema.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsValidation checks if err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsCrypto checks if err is (or wraps) a CryptoError
func IsCrypto(err error) bool {
	var target *CryptoError
	return errors.As(err, &target)
}

// IsNetwork checks if err is (or wraps) a NetworkError
func IsNetwork(err error) bool {
	var target *NetworkError
	return errors.As(err, &target)
}

// IsDecode checks if err is (or wraps) a DecodeError
func IsDecode(err error) bool {
	var target *DecodeError
	return errors.As(err, &target)
}

// StatusCode returns the HTTP status carried by a NetworkError, or zero.
func StatusCode(err error) int {
	var target *NetworkError
	if errors.As(err, &target) {
		return target.StatusCode
	}
	return 0
}
