package hashing

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"company-service/internal/config"
)

var ErrHashTooWeak = errors.New("bcrypt cost below minimum")

// minBcryptCost is the floor for stored password hashes. Costs below
// this are rejected at construction time rather than silently bumped.
const minBcryptCost = 10

// Hasher wraps bcrypt password hashing with the configured cost.
type Hasher struct {
	cost int
}

func NewHasher(cfg *config.Config) (*Hasher, error) {
	cost := cfg.Hashing.BcryptCost
	if cost < minBcryptCost {
		return nil, ErrHashTooWeak
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}, nil
}

// HashPassword hashes a plaintext password. bcrypt generates and
// embeds its own salt, so the result is directly storable.
func (h *Hasher) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword reports whether password matches the stored hash.
func (h *Hasher) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
