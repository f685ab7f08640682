package auth_test

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/neomorfeo/tillpoint/internal/adapter/auth"
	"github.com/neomorfeo/tillpoint/internal/domain"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens, err := auth.NewTokens("s3cret", "tillpoint", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens failed: %v", err)
	}

	p := domain.NewPrincipal("u-1", "a@shop.test", "A", "", domain.RoleStoreAdmin)
	token, err := tokens.Issue(p)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	id, err := tokens.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if id != "u-1" {
		t.Errorf("subject = %q, want %q", id, "u-1")
	}
}

func TestTokens_RejectsForeignSignature(t *testing.T) {
	ours, _ := auth.NewTokens("s3cret", "tillpoint", time.Hour)
	theirs, _ := auth.NewTokens("other", "tillpoint", time.Hour)

	token, err := theirs.Issue(domain.NewPrincipal("u-1", "a@shop.test", "A", "", domain.RoleStoreAdmin))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := ours.Parse(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestTokens_RejectsExpired(t *testing.T) {
	tokens, _ := auth.NewTokens("s3cret", "tillpoint", -time.Minute)

	token, err := tokens.Issue(domain.NewPrincipal("u-1", "a@shop.test", "A", "", domain.RoleStoreAdmin))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := tokens.Parse(token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestNewTokens_EmptySecret(t *testing.T) {
	if _, err := auth.NewTokens("", "tillpoint", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestBcrypt(t *testing.T) {
	h := auth.Bcrypt{Cost: bcrypt.MinCost}

	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if hash == "secret123" {
		t.Fatal("hash must not equal the password")
	}
	if !h.Verify(hash, "secret123") {
		t.Error("Verify rejected the right password")
	}
	if h.Verify(hash, "secret124") {
		t.Error("Verify accepted a wrong password")
	}
}
