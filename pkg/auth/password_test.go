package auth

import "testing"

func TestHashPasswordAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if hash == "s3cret" {
		t.Fatalf("hash must not equal the plaintext")
	}
	if !CheckPassword("s3cret", hash) {
		t.Fatalf("expected password check to pass")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestHashPasswordIsSalted(t *testing.T) {
	first, err := HashPassword("p1")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	second, err := HashPassword("p1")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct digests for the same plaintext")
	}
	if !CheckPassword("p1", first) || !CheckPassword("p1", second) {
		t.Fatalf("expected both digests to verify")
	}
}

func TestCheckPasswordMalformedDigest(t *testing.T) {
	if CheckPassword("anything", "not-a-bcrypt-digest") {
		t.Fatalf("expected malformed digest to verify false")
	}
	if CheckPassword("anything", "") {
		t.Fatalf("expected empty digest to verify false")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("p1"); err != nil {
		t.Fatalf("expected short password to be accepted: %v", err)
	}
	if err := ValidatePassword(""); err == nil {
		t.Fatalf("expected empty password to fail")
	}
	if err := ValidatePassword("   "); err == nil {
		t.Fatalf("expected whitespace password to fail")
	}
	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidatePassword(string(long)); err == nil {
		t.Fatalf("expected over-length password to fail")
	}
}
