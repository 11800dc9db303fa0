package jwtutil

import (
	"testing"
	"time"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("secret", time.Minute, "user-1", "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "alice" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", time.Minute, "user-1", "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseToken("other", token); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken("secret", -time.Minute, "user-1", "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseToken("secret", token); err == nil {
		t.Fatal("expected error for expired token")
	}
}
