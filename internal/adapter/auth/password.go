package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// Compile-time check: Bcrypt implements domain.PasswordHasher.
var _ domain.PasswordHasher = Bcrypt{}

// Bcrypt hashes passwords with bcrypt at the given cost.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func (Bcrypt) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
