package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueVerify(t *testing.T) {
	now := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	iss := NewIssuer("secret", 30*24*time.Hour, func() time.Time { return now })

	tok, err := iss.Issue(7)
	if err != nil {
		t.Fatal(err)
	}
	id, err := iss.Verify(tok)
	if err != nil {
		t.Fatal(err)
	}
	if id != 7 {
		t.Error("Expected user 7, got", id)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	now := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	iss := NewIssuer("secret", 30*24*time.Hour, func() time.Time { return now })
	tok, _ := iss.Issue(7)

	later := NewIssuer("secret", 30*24*time.Hour, func() time.Time { return now.Add(31 * 24 * time.Hour) })
	if _, err := later.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Error("Expected expired token rejected, got", err)
	}
}

func TestVerifyRejectsTampered(t *testing.T) {
	iss := NewIssuer("secret", time.Hour, nil)
	tok, _ := iss.Issue(7)

	other := NewIssuer("other-secret", time.Hour, nil)
	if _, err := other.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Error("Expected wrong-key token rejected, got", err)
	}

	parts := strings.Split(tok, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	if _, err := iss.Verify(strings.Join(parts, ".")); !errors.Is(err, ErrInvalidToken) {
		t.Error("Expected bad signature rejected, got", err)
	}

	if _, err := iss.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Error("Expected garbage rejected, got", err)
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	iss := NewIssuer("secret", time.Hour, nil)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := tok.SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := iss.Verify(s); !errors.Is(err, ErrInvalidToken) {
		t.Error("Expected HS512 token rejected, got", err)
	}
}

func TestVerifyRequiresExpiry(t *testing.T) {
	iss := NewIssuer("secret", time.Hour, nil)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "7"})
	s, _ := tok.SignedString([]byte("secret"))
	if _, err := iss.Verify(s); !errors.Is(err, ErrInvalidToken) {
		t.Error("Expected token without exp rejected, got", err)
	}
}
