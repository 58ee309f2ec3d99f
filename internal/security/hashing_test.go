package security

import (
	"errors"
	"testing"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(4)
	password := []byte("Referral-Secret-123")
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" || hash == string(password) {
		t.Fatal("Hash returned empty or plaintext")
	}
	if err := h.Compare(hash, password); err != nil {
		t.Fatalf("Compare: %v", err)
	}
}

func TestHasher_CompareWrongPassword(t *testing.T) {
	h := NewHasher(4)
	hash, _ := h.Hash([]byte("Referral-Secret-123"))
	if err := h.Compare(hash, []byte("wrong")); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("wrong password: want ErrPasswordMismatch, got %v", err)
	}
	if err := h.Compare("not-a-bcrypt-hash", []byte("wrong")); err == nil || errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("corrupt hash: want a bcrypt error, got %v", err)
	}
}

func TestHasher_Cost(t *testing.T) {
	testCases := []struct{ in, want int }{
		{12, 12},
		{0, 10},
		{2, 4},
		{99, 31},
	}
	for _, tc := range testCases {
		if got := NewHasher(tc.in).Cost(); got != tc.want {
			t.Errorf("NewHasher(%d).Cost() = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestHasher_BurnIsReusable(t *testing.T) {
	h := NewHasher(4)
	h.Burn([]byte("anything"))
	h.Burn([]byte("anything else"))
	if len(h.dummy) == 0 {
		t.Fatal("dummy hash not initialized")
	}
}
