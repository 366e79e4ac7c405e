// Package secrets handles credential hashing for dashboard accounts.
package secrets

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "regdesk/pkg/domain-errors"
)

// Hash creates a bcrypt hash of the provided credential.
func Hash(credential string) (string, error) {
	if credential == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "credential is too long")
		}
		return "", fmt.Errorf("could not hash credential: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a plaintext credential against a stored bcrypt hash.
func Verify(credential, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(credential)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeInvalidInput, "invalid credential")
		}
		return fmt.Errorf("could not verify credential: %w", err)
	}
	return nil
}
