package service

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Password storage modes.
const (
	PasswordModePlaintext = "plaintext"
	PasswordModeBcrypt    = "bcrypt"
)

// PasswordHasher turns a password into its stored form and checks candidates against it.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(stored, candidate string) bool
}

// NewPasswordHasher returns the hasher for mode. Plaintext keeps compatibility with stores
// seeded before hashing existed.
func NewPasswordHasher(mode string) (PasswordHasher, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", PasswordModePlaintext:
		return PlaintextPasswords{}, nil
	case PasswordModeBcrypt:
		return BcryptPasswords{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown password mode %q", mode)
	}
}

// PlaintextPasswords stores passwords as given and compares in constant time.
type PlaintextPasswords struct{}

func (PlaintextPasswords) Hash(password string) (string, error) {
	return password, nil
}

func (PlaintextPasswords) Verify(stored, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

// BcryptPasswords stores bcrypt hashes.
type BcryptPasswords struct {
	Cost int
}

func (b BcryptPasswords) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (BcryptPasswords) Verify(stored, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil
}
