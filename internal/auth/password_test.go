package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "pbkdf2$sha256$210000$") {
		t.Fatalf("unexpected hash format %q", hash)
	}
	if err := VerifyPassword(hash, "correct horse"); err != nil {
		t.Fatalf("VerifyPassword rejected the right password: %v", err)
	}
	if err := VerifyPassword(hash, "wrong horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("VerifyPassword error = %v, want ErrInvalidCredentials", err)
	}

	again, _ := HashPassword("correct horse")
	if again == hash {
		t.Fatal("hashes should be salted")
	}
}

func TestHashPasswordTooShort(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestVerifyPasswordMalformed(t *testing.T) {
	cases := []string{
		"",
		"plain",
		"bcrypt$sha256$1$c2FsdA$a2V5",
		"pbkdf2$sha256$zero$c2FsdA$a2V5",
		"pbkdf2$sha256$10$!!!$a2V5",
	}
	for _, hash := range cases {
		err := VerifyPassword(hash, "whatever")
		if err == nil || errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("VerifyPassword(%q) error = %v, want a format error", hash, err)
		}
	}
}

func TestCredentialsCheck(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	creds := Credentials{User: "admin", PasswordHash: hash}

	if err := creds.Check("admin", "hunter2hunter2"); err != nil {
		t.Fatalf("Check rejected valid login: %v", err)
	}
	if err := creds.Check("root", "hunter2hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong user error = %v", err)
	}
	if err := creds.Check("admin", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password error = %v", err)
	}
}
