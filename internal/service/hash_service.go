package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHashService implements ports.HashService using bcrypt. It is a
// stateless capability injected by explicit construction; the engine never
// reaches for a process-wide hasher.
type BcryptHashService struct {
	cost int
}

// NewBcryptHashService creates a bcrypt hash service with the default cost.
func NewBcryptHashService() *BcryptHashService {
	return &BcryptHashService{cost: bcrypt.DefaultCost}
}

// NewBcryptHashServiceWithCost creates a bcrypt hash service with an
// explicit cost. Lower costs are useful in tests.
func NewBcryptHashServiceWithCost(cost int) *BcryptHashService {
	return &BcryptHashService{cost: cost}
}

// Hash generates a salted bcrypt hash of the PIN.
func (s *BcryptHashService) Hash(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.cost)
	if err != nil {
		return "", fmt.Errorf("hashing pin: %w", err)
	}
	return string(hash), nil
}

// Verify checks the PIN against a stored hash. A mismatch is a boolean
// result, not an error; only malformed hashes error.
func (s *BcryptHashService) Verify(pin string, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("comparing pin hash: %w", err)
}
