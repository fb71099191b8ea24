package hashing

import (
	"errors"
	"strings"
	"testing"

	"company-service/internal/config"
)

func testConfig(cost int) *config.Config {
	return &config.Config{Hashing: config.HashingConfig{BcryptCost: cost}}
}

func TestNewHasherRejectsWeakCost(t *testing.T) {
	if _, err := NewHasher(testConfig(4)); !errors.Is(err, ErrHashTooWeak) {
		t.Fatalf("cost 4: got %v, want ErrHashTooWeak", err)
	}
	if _, err := NewHasher(testConfig(9)); !errors.Is(err, ErrHashTooWeak) {
		t.Fatalf("cost 9: got %v, want ErrHashTooWeak", err)
	}
	if _, err := NewHasher(testConfig(10)); err != nil {
		t.Fatalf("cost 10: %v", err)
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	h, err := NewHasher(testConfig(10))
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	hash, err := h.HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash equals plaintext")
	}
	if !strings.HasPrefix(hash, "$2a$10$") {
		t.Fatalf("unexpected hash prefix: %s", hash)
	}

	if !h.VerifyPassword("correct horse battery", hash) {
		t.Fatal("correct password rejected")
	}
	if h.VerifyPassword("wrong password", hash) {
		t.Fatal("wrong password accepted")
	}
}

func TestHashesAreSalted(t *testing.T) {
	h, err := NewHasher(testConfig(10))
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	a, err := h.HashPassword("same input")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	b, err := h.HashPassword("same input")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
}
