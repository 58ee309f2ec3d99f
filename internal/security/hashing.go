package security

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned by Compare when the password does not match the hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// PasswordHasher hashes and verifies passwords. Burn spends the same work as a real Compare so
// a login for an unknown email takes as long as one with a wrong password.
type PasswordHasher interface {
	Hash(password []byte) (string, error)
	Compare(hash string, password []byte) error
	Burn(password []byte)
}

// Hasher is the bcrypt PasswordHasher. Plaintext passwords are never logged or stored.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

var _ PasswordHasher = (*Hasher)(nil)

// NewHasher returns a Hasher at cost, clamped to bcrypt's range. Zero or less uses bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	switch {
	case cost <= 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Cost returns the bcrypt cost in use.
func (h *Hasher) Cost() int { return h.cost }

func (h *Hasher) Hash(password []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(password, h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare returns nil on a match, ErrPasswordMismatch on a wrong password and the bcrypt error
// for a corrupt hash.
func (h *Hasher) Compare(hash string, password []byte) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), password)
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// Burn compares password against a fixed hash at the configured cost and discards the result.
func (h *Hasher) Burn(password []byte) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("referral-hub-timing-equalizer"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, password)
}
