package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher stores only a derived hash and verifies plaintext against it
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Check(hash, plaintext string) bool
}

type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("password must not be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Check never errors: a malformed hash is simply a mismatch
func (h *BcryptHasher) Check(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
